// Package classify matches object crops against the SKU catalog by
// embedding similarity.
package classify

import (
	"image"
	"sort"

	"shelf-vision/internal/backend"
	"shelf-vision/internal/catalog"
	"shelf-vision/internal/config"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// Reserved SKU ids and fallback values.
const (
	UnknownSKU = "unknown"

	MockSKU        = "mock_sku"
	MockName       = "Mock Product"
	MockConfidence = 0.5
)

// Classification is the recognised identity of one crop. Values are
// replaced, never mutated, by later stages.
type Classification struct {
	SKUID      string    `json:"sku_id"`
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"` // Cosine similarity, or fused score after OCR boost
	IsUnknown  bool      `json:"is_unknown"`
	Embedding  []float64 `json:"-"`

	OCRText       string  `json:"ocr_text,omitempty"`
	OCRConfidence float64 `json:"ocr_confidence,omitempty"`
	OCRBoosted    bool    `json:"ocr_boosted"`
}

// Candidate is one ranked catalog match.
type Candidate struct {
	SKUID      string  `json:"sku_id"`
	Similarity float64 `json:"similarity"`
}

// Params holds classification parameters.
type Params struct {
	UnknownThreshold float64 // Best similarity below this is "not in catalog"
	TopK             int     // Length bound of the ranked candidate list
}

// ParamsFromConfig converts the [classifier] config section.
func ParamsFromConfig(c config.ClassifierConfig) Params {
	return Params{UnknownThreshold: c.UnknownThreshold, TopK: c.TopK}
}

// Classifier ranks crops against a read-only embedding index.
type Classifier struct {
	params   Params
	index    *catalog.Index
	mapping  catalog.Mapping
	backends *backend.Registry
}

// New creates a Classifier. index and mapping may be nil.
func New(backends *backend.Registry, index *catalog.Index, mapping catalog.Mapping, params Params) *Classifier {
	if params.TopK < 1 {
		params.TopK = 1
	}
	return &Classifier{params: params, index: index, mapping: mapping, backends: backends}
}

// Mapping returns the SKU display mapping.
func (c *Classifier) Mapping() catalog.Mapping {
	return c.mapping
}

// Classify returns the best match for crop along with the top-K ranked
// candidates, most similar first. Candidates are returned even when the
// best one falls below the unknown threshold.
//
// An empty index or an unusable embedding backend yields the mock
// classification and no candidates; Classify never fails.
func (c *Classifier) Classify(crop image.Image) (Classification, []Candidate) {
	if c.index.Len() == 0 {
		return Mock(), nil
	}

	extractor := c.backends.Extractor()
	raw, err := extractor.Extract(crop)
	if err != nil {
		log.Debug().Err(err).Str("extractor", extractor.Name()).Msg("embedding unavailable, using mock classification")
		return Mock(), nil
	}
	if len(raw) != c.index.Dim() {
		log.Warn().Int("got", len(raw)).Int("want", c.index.Dim()).Msg("embedding dimension mismatch, using mock classification")
		return Mock(), nil
	}
	embedding, ok := catalog.Normalize(raw)
	if !ok {
		log.Debug().Str("extractor", extractor.Name()).Msg("zero or non-finite embedding, using mock classification")
		return Mock(), nil
	}

	ranked := c.rank(embedding)
	best := ranked[0]

	if best.Similarity < c.params.UnknownThreshold {
		return Classification{
			SKUID:      UnknownSKU,
			Name:       UnknownSKU,
			Confidence: clampUnit(best.Similarity),
			IsUnknown:  true,
			Embedding:  embedding,
		}, ranked
	}

	return Classification{
		SKUID:      best.SKUID,
		Name:       c.mapping.DisplayName(best.SKUID),
		Confidence: clampUnit(best.Similarity),
		Embedding:  embedding,
	}, ranked
}

// rank scores every index entry and returns the top K, ties broken by SKU id.
func (c *Classifier) rank(embedding []float64) []Candidate {
	all := make([]Candidate, c.index.Len())
	for i := range all {
		id, vec := c.index.Entry(i)
		all[i] = Candidate{SKUID: id, Similarity: floats.Dot(embedding, vec)}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Similarity != all[j].Similarity {
			return all[i].Similarity > all[j].Similarity
		}
		return all[i].SKUID < all[j].SKUID
	})
	if len(all) > c.params.TopK {
		all = all[:c.params.TopK]
	}
	return all
}

// Mock returns the deterministic classification used when no catalog
// matching is possible.
func Mock() Classification {
	return Classification{SKUID: MockSKU, Name: MockName, Confidence: MockConfidence}
}

// Cosine similarity can reach -1; confidence is reported on [0,1].
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
