// Package refine re-ranks visual classification candidates using text read
// off the product label.
package refine

import (
	"image"
	"sort"
	"strings"

	"shelf-vision/internal/backend"
	"shelf-vision/internal/catalog"
	"shelf-vision/internal/classify"
	"shelf-vision/internal/config"
	shelfimage "shelf-vision/internal/image"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/stat"
)

// Params holds label text refinement parameters.
type Params struct {
	ConfidenceFloor       float64 // Aggregate OCR confidence below this disables refinement
	BoostThreshold        float64 // Required margin of the fused winner over the original pick
	Weight                float64 // Share of text similarity in the fused score
	MinTextSimilarity     float64 // Winner's text similarity must exceed this
	TopN                  int     // Candidates considered for fusion
	MinFragmentConfidence float64
	MinFragmentLength     int
}

// DefaultParams returns the default refinement parameters.
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().OCR)
}

// ParamsFromConfig converts the [ocr] config section.
func ParamsFromConfig(c config.OCRConfig) Params {
	return Params{
		ConfidenceFloor:       c.ConfidenceFloor,
		BoostThreshold:        c.BoostThreshold,
		Weight:                c.Weight,
		MinTextSimilarity:     c.MinTextSimilarity,
		TopN:                  c.TopN,
		MinFragmentConfidence: c.MinFragmentConfidence,
		MinFragmentLength:     c.MinFragmentLength,
	}
}

// Scored is a candidate with its visual, text and fused scores.
type Scored struct {
	SKUID    string
	Name     string
	Visual   float64
	Text     float64
	Combined float64
	Rank     int // Position in the visual ranking
}

// Refiner fuses OCR evidence with visual similarity.
type Refiner struct {
	params   Params
	backends *backend.Registry
}

// New creates a Refiner.
func New(backends *backend.Registry, params Params) *Refiner {
	if params.TopN < 1 {
		params.TopN = 1
	}
	return &Refiner{params: params, backends: backends}
}

// ReadText runs OCR on crop and returns the kept fragments as one
// lower-cased string along with their mean confidence. Fragments that are
// too short or too uncertain are discarded first.
func (r *Refiner) ReadText(crop image.Image) (string, float64) {
	if shelfimage.Empty(crop) {
		return "", 0
	}
	reader := r.backends.TextReader()
	fragments, err := reader.Read(crop)
	if err != nil {
		log.Debug().Err(err).Str("reader", reader.Name()).Msg("ocr failed")
		return "", 0
	}

	var words []string
	var confs []float64
	for _, f := range fragments {
		text := strings.TrimSpace(f.Text)
		if f.Confidence < r.params.MinFragmentConfidence || len([]rune(text)) < r.params.MinFragmentLength || text == "" {
			continue
		}
		words = append(words, strings.ToLower(text))
		confs = append(confs, f.Confidence)
	}
	if len(words) == 0 {
		return "", 0
	}
	return strings.Join(words, " "), stat.Mean(confs, nil)
}

// Refine returns cls, possibly replaced by a better-supported candidate.
//
// When OCR yields nothing usable the input is returned unchanged. When it
// yields text that does not justify an override, the input is returned with
// the OCR text and confidence attached. An override requires a different
// winner, a fused margin above BoostThreshold and a text similarity above
// MinTextSimilarity.
func (r *Refiner) Refine(crop image.Image, cls classify.Classification, candidates []classify.Candidate, mapping catalog.Mapping) classify.Classification {
	text, conf := r.ReadText(crop)
	if text == "" || conf < r.params.ConfidenceFloor {
		return cls
	}

	out := cls
	out.OCRText = text
	out.OCRConfidence = conf

	scored := Fuse(text, candidates, mapping, r.params.Weight, r.params.TopN)
	if len(scored) == 0 {
		return out
	}
	winner := scored[0]
	if winner.SKUID == cls.SKUID {
		return out
	}

	baseline := cls.Confidence * (1 - r.params.Weight)
	for _, s := range scored {
		if s.SKUID == cls.SKUID {
			baseline = s.Combined
			break
		}
	}

	margin := winner.Combined - baseline
	if margin <= r.params.BoostThreshold || winner.Text <= r.params.MinTextSimilarity {
		return out
	}

	log.Debug().
		Str("from", cls.SKUID).
		Str("to", winner.SKUID).
		Float64("margin", margin).
		Float64("text_similarity", winner.Text).
		Msg("ocr override")

	out.SKUID = winner.SKUID
	out.Name = winner.Name
	out.Confidence = clamp01(winner.Combined)
	out.IsUnknown = false
	out.OCRBoosted = true
	return out
}

// Fuse scores the top n candidates against text and orders them by fused
// score, ties broken by visual similarity and then visual rank.
func Fuse(text string, candidates []classify.Candidate, mapping catalog.Mapping, weight float64, n int) []Scored {
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		name := mapping.DisplayName(c.SKUID)
		sim := TextSimilarity(text, name)
		scored[i] = Scored{
			SKUID:    c.SKUID,
			Name:     name,
			Visual:   c.Similarity,
			Text:     sim,
			Combined: c.Similarity*(1-weight) + sim*weight,
			Rank:     i,
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Combined != b.Combined {
			return a.Combined > b.Combined
		}
		if a.Visual != b.Visual {
			return a.Visual > b.Visual
		}
		return a.Rank < b.Rank
	})
	return scored
}
