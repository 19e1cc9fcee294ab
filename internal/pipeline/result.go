package pipeline

import (
	"time"

	"shelf-vision/internal/classify"
	"shelf-vision/internal/detect"
	"shelf-vision/pkg/geometry"
)

// ShelfItem pairs one detection with its final classification.
type ShelfItem struct {
	ID             string
	Detection      detect.Detection
	Classification *classify.Classification // nil when the crop had no pixels
	Candidates     []classify.Candidate     // Visual ranking before refinement
	Review         bool                     // Routed to the review queue
}

// Known reports whether the item was matched to a catalog SKU.
func (it ShelfItem) Known() bool {
	return it.Classification != nil && !it.Classification.IsUnknown
}

// Result is the output of one Process call.
//
// TotalItems always equals len(Items). Items without a classification count
// toward neither SKUCounts nor UnknownCount.
type Result struct {
	Items        []ShelfItem
	SKUCounts    map[string]int
	TotalItems   int
	UnknownCount int
	Latency      time.Duration
	ReviewItems  []ShelfItem // Items routed for human review, in item order
}

func (r *Result) add(item ShelfItem) {
	r.Items = append(r.Items, item)
	r.TotalItems++
	switch {
	case item.Known():
		r.SKUCounts[item.Classification.SKUID]++
	case item.Classification != nil:
		r.UnknownCount++
	}
	if item.Review {
		r.ReviewItems = append(r.ReviewItems, item)
	}
}

// LatencyMS returns the processing time in milliseconds.
func (r *Result) LatencyMS() float64 {
	return float64(r.Latency) / float64(time.Millisecond)
}

// Record is the plain serialisable form of a Result.
type Record struct {
	Items        []ItemRecord   `json:"items"`
	SKUCounts    map[string]int `json:"sku_counts"`
	TotalItems   int            `json:"total_items"`
	UnknownCount int            `json:"unknown_count"`
	LatencyMS    float64        `json:"latency_ms"`
	ReviewItems  []string       `json:"review_items"`
}

// ItemRecord is the plain form of a ShelfItem.
type ItemRecord struct {
	ID         string       `json:"id"`
	Box        geometry.Box `json:"box"`
	Class      string       `json:"class"`
	Confidence float64      `json:"confidence"`
	Synthetic  bool         `json:"synthetic,omitempty"`

	Classification *classify.Classification `json:"classification"`
	Review         bool                     `json:"review"`
}

// Record converts the result for serialisation.
func (r *Result) Record() Record {
	rec := Record{
		Items:        make([]ItemRecord, len(r.Items)),
		SKUCounts:    make(map[string]int, len(r.SKUCounts)),
		TotalItems:   r.TotalItems,
		UnknownCount: r.UnknownCount,
		LatencyMS:    r.LatencyMS(),
		ReviewItems:  make([]string, len(r.ReviewItems)),
	}
	for i, it := range r.Items {
		rec.Items[i] = ItemRecord{
			ID:             it.ID,
			Box:            it.Detection.Box,
			Class:          it.Detection.Class,
			Confidence:     it.Detection.Confidence,
			Synthetic:      it.Detection.Synthetic,
			Classification: it.Classification,
			Review:         it.Review,
		}
	}
	for sku, n := range r.SKUCounts {
		rec.SKUCounts[sku] = n
	}
	for i, it := range r.ReviewItems {
		rec.ReviewItems[i] = it.ID
	}
	return rec
}
