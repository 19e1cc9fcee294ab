package refine

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"shelf-vision/internal/backend"
	"shelf-vision/internal/catalog"
	"shelf-vision/internal/classify"
	shelfimage "shelf-vision/internal/image"

	"github.com/stretchr/testify/assert"
)

type fakeReader struct {
	fragments []backend.TextFragment
	err       error
}

func (f fakeReader) Name() string { return "fake" }

func (f fakeReader) Read(image.Image) ([]backend.TextFragment, error) {
	return f.fragments, f.err
}

func readerWith(fragments ...backend.TextFragment) *backend.Registry {
	return backend.NewRegistry(backend.WithTextReader(func() (backend.TextReader, error) {
		return fakeReader{fragments: fragments}, nil
	}))
}

func words(conf float64, text ...string) []backend.TextFragment {
	out := make([]backend.TextFragment, len(text))
	for i, t := range text {
		out[i] = backend.TextFragment{Text: t, Confidence: conf}
	}
	return out
}

var (
	crop    = shelfimage.Solid(30, 90, color.RGBA{R: 180, G: 160, B: 140, A: 255})
	mapping = catalog.Mapping{
		"savoy-vodka":  {Name: "Savoy Vodka"},
		"savoy-silver": {Name: "Savoy Silver Vodka"},
		"nordic-gin":   {Name: "Nordic Gin"},
		"alpine-berry": {Name: "Alpine Berry"},
	}
)

func TestRefine_OverridesToMatchingVariant(t *testing.T) {
	r := New(readerWith(words(0.9, "Savoy", "SILVER", "700ml")...), DefaultParams())

	cls := classify.Classification{SKUID: "savoy-vodka", Name: "Savoy Vodka", Confidence: 0.9}
	candidates := []classify.Candidate{
		{SKUID: "savoy-vodka", Similarity: 0.9},
		{SKUID: "savoy-silver", Similarity: 0.88},
	}

	got := r.Refine(crop, cls, candidates, mapping)

	assert.Equal(t, "savoy-silver", got.SKUID)
	assert.Equal(t, "Savoy Silver Vodka", got.Name)
	assert.True(t, got.OCRBoosted)
	assert.False(t, got.IsUnknown)
	assert.InDelta(t, 0.88*0.7+1.0*0.3, got.Confidence, 1e-9)
	assert.Equal(t, "savoy silver 700ml", got.OCRText)
	assert.InDelta(t, 0.9, got.OCRConfidence, 1e-9)

	// Input is not mutated.
	assert.Equal(t, "savoy-vodka", cls.SKUID)
	assert.False(t, cls.OCRBoosted)
}

func TestRefine_ConfirmsOriginalPick(t *testing.T) {
	r := New(readerWith(words(0.8, "savoy", "vodka")...), DefaultParams())

	cls := classify.Classification{SKUID: "savoy-vodka", Name: "Savoy Vodka", Confidence: 0.9}
	candidates := []classify.Candidate{
		{SKUID: "savoy-vodka", Similarity: 0.9},
		{SKUID: "savoy-silver", Similarity: 0.88},
	}

	got := r.Refine(crop, cls, candidates, mapping)

	assert.Equal(t, "savoy-vodka", got.SKUID)
	assert.False(t, got.OCRBoosted)
	assert.Equal(t, 0.9, got.Confidence)
	assert.Equal(t, "savoy vodka", got.OCRText)
	assert.InDelta(t, 0.8, got.OCRConfidence, 1e-9)
}

func TestRefine_RescuesUnknown(t *testing.T) {
	r := New(readerWith(words(0.85, "nordic", "gin", "1l")...), DefaultParams())

	cls := classify.Classification{SKUID: classify.UnknownSKU, Name: classify.UnknownSKU, Confidence: 0.4, IsUnknown: true}
	candidates := []classify.Candidate{
		{SKUID: "savoy-vodka", Similarity: 0.4},
		{SKUID: "nordic-gin", Similarity: 0.38},
	}

	got := r.Refine(crop, cls, candidates, mapping)

	assert.Equal(t, "nordic-gin", got.SKUID)
	assert.False(t, got.IsUnknown)
	assert.True(t, got.OCRBoosted)
	assert.InDelta(t, 0.38*0.7+0.98*0.3, got.Confidence, 1e-9)
}

func TestRefine_WeakTextMatchDoesNotOverride(t *testing.T) {
	r := New(readerWith(words(0.9, "alpine")...), DefaultParams())

	cls := classify.Classification{SKUID: "savoy-vodka", Name: "Savoy Vodka", Confidence: 0.6}
	candidates := []classify.Candidate{
		{SKUID: "savoy-vodka", Similarity: 0.6},
		{SKUID: "alpine-berry", Similarity: 0.59},
	}

	got := r.Refine(crop, cls, candidates, mapping)

	assert.Equal(t, "savoy-vodka", got.SKUID)
	assert.False(t, got.OCRBoosted)
	assert.Equal(t, "alpine", got.OCRText)
}

func TestRefine_SmallMarginDoesNotOverride(t *testing.T) {
	r := New(readerWith(words(0.9, "savoy", "silver", "700ml")...), DefaultParams())

	cls := classify.Classification{SKUID: "savoy-vodka", Name: "Savoy Vodka", Confidence: 0.9}
	candidates := []classify.Candidate{
		{SKUID: "savoy-vodka", Similarity: 0.9},
		{SKUID: "savoy-silver", Similarity: 0.8},
	}

	got := r.Refine(crop, cls, candidates, mapping)
	assert.Equal(t, "savoy-vodka", got.SKUID)
	assert.False(t, got.OCRBoosted)
}

func TestRefine_NoUsableText(t *testing.T) {
	cls := classify.Classification{SKUID: "savoy-vodka", Name: "Savoy Vodka", Confidence: 0.9}
	candidates := []classify.Candidate{{SKUID: "savoy-vodka", Similarity: 0.9}}

	tests := []struct {
		name string
		reg  *backend.Registry
	}{
		{"null reader", backend.NewRegistry()},
		{"low confidence", readerWith(words(0.4, "savoy", "silver")...)},
		{"fragments filtered", readerWith(words(0.9, "x", "y")...)},
		{"reader error", backend.NewRegistry(backend.WithTextReader(func() (backend.TextReader, error) {
			return fakeReader{err: errors.New("tesseract crashed")}, nil
		}))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.reg, DefaultParams()).Refine(crop, cls, candidates, mapping)
			assert.Equal(t, cls, got)
		})
	}
}

func TestReadText_FiltersFragments(t *testing.T) {
	r := New(readerWith(
		backend.TextFragment{Text: "Savoy", Confidence: 0.9},
		backend.TextFragment{Text: "x", Confidence: 0.95},
		backend.TextFragment{Text: "VODKA", Confidence: 0.2},
		backend.TextFragment{Text: "  700ML ", Confidence: 0.7},
	), DefaultParams())

	text, conf := r.ReadText(crop)
	assert.Equal(t, "savoy 700ml", text)
	assert.InDelta(t, 0.8, conf, 1e-9)
}

func TestReadText_EmptyCrop(t *testing.T) {
	r := New(readerWith(words(0.9, "savoy")...), DefaultParams())
	text, conf := r.ReadText(nil)
	assert.Empty(t, text)
	assert.Zero(t, conf)
}

func TestFuse_Ordering(t *testing.T) {
	candidates := []classify.Candidate{
		{SKUID: "b", Similarity: 0.5},
		{SKUID: "a", Similarity: 0.5},
		{SKUID: "c", Similarity: 0.7},
	}

	scored := Fuse("", candidates, nil, 0.3, 5)
	ids := []string{scored[0].SKUID, scored[1].SKUID, scored[2].SKUID}
	assert.Equal(t, []string{"c", "b", "a"}, ids)
	assert.Equal(t, "b", scored[1].Name)

	assert.Len(t, Fuse("", candidates, nil, 0.3, 2), 2)
}
