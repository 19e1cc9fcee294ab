package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"shelf-vision/internal/backend"
	"shelf-vision/internal/catalog"
	"shelf-vision/internal/config"
	shelfimage "shelf-vision/internal/image"
	"shelf-vision/internal/version"

	"github.com/lithammer/dedent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redness embeds an image as its mean red and green channels.
type redness struct{}

func (redness) Name() string { return "redness" }

func (redness) Extract(img image.Image) ([]float64, error) {
	b := img.Bounds()
	var r, g float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			r += float64(c.R)
			g += float64(c.G)
		}
	}
	return []float64{r, g}, nil
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		configPath, verbose, logFile = "", false, ""
		scanStatus, indexOutput = false, ""
		newBackend = func(config.Config) *backend.Registry { return backend.NewRegistry() }
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shelfscan.toml")
	require.NoError(t, os.WriteFile(path, []byte(dedent.Dedent(body)), 0o644))
	return path
}

func writePNG(t *testing.T, dir, name string, c color.RGBA) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, shelfimage.WritePNG(f, shelfimage.Solid(40, 80, c)))
	return path
}

const mockConfig = `
	[classifier]
	embeddings_path = ""
	sku_mapping_path = ""

	[review_queue]
	enabled = false
`

func TestVersionCmd_Executes(t *testing.T) {
	original := version.Version
	version.Version = "test-version-1.0.0"
	defer func() { version.Version = original }()

	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "shelfscan version test-version-1.0.0")
}

func TestScanCmd_MockMode(t *testing.T) {
	img := writePNG(t, t.TempDir(), "shelf.png", color.RGBA{R: 90, G: 90, B: 90, A: 255})

	out, err := execute(t, "scan", "--config", writeConfig(t, mockConfig), "--status", img)
	require.NoError(t, err)

	var got struct {
		Image      string            `json:"image"`
		Backends   map[string]string `json:"backends"`
		TotalItems int               `json:"total_items"`
		SKUCounts  map[string]int    `json:"sku_counts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, img, got.Image)
	assert.Equal(t, 1, got.TotalItems)
	assert.Equal(t, map[string]int{"mock_sku": 1}, got.SKUCounts)
	assert.Equal(t, "mock", got.Backends["detector"])
	assert.Equal(t, "null", got.Backends["embedding"])
}

func TestScanCmd_DecodeError(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(bad, []byte("not a jpeg"), 0o644))

	_, err := execute(t, "scan", "--config", writeConfig(t, mockConfig), bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, shelfimage.ErrDecode)
}

func TestScanCmd_InvalidConfig(t *testing.T) {
	path := writeConfig(t, `
		[ocr]
		weight = 1.5
	`)
	_, err := execute(t, "scan", "--config", path, "whatever.png")
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestBatchCmd_ReportsFailuresAndTotals(t *testing.T) {
	dir := t.TempDir()
	a := writePNG(t, dir, "a.png", color.RGBA{R: 200, A: 255})
	b := writePNG(t, dir, "b.png", color.RGBA{G: 200, A: 255})
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))

	out, err := execute(t, "batch", "--config", writeConfig(t, mockConfig), "-j", "2", a, bad, b)
	require.NoError(t, err)

	var got batchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Images, 3)
	assert.Equal(t, a, got.Images[0].Image)
	assert.NotEmpty(t, got.Images[1].Error)
	assert.Nil(t, got.Images[1].Scan)
	assert.Equal(t, b, got.Images[2].Image)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, 2, got.TotalItems)
	assert.Equal(t, map[string]int{"mock_sku": 2}, got.SKUCounts)
}

func TestIndexCmd_BuildsStore(t *testing.T) {
	refs := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(refs, "red-cola"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(refs, "green-lime"), 0o755))
	writePNG(t, filepath.Join(refs, "red-cola"), "front.png", color.RGBA{R: 255, A: 255})
	writePNG(t, filepath.Join(refs, "red-cola"), "side.png", color.RGBA{R: 128, A: 255})
	writePNG(t, filepath.Join(refs, "green-lime"), "front.png", color.RGBA{G: 255, A: 255})
	require.NoError(t, os.WriteFile(filepath.Join(refs, "green-lime", "notes.txt"), []byte("x"), 0o644))

	SetBackendFactory(func(config.Config) *backend.Registry {
		return backend.NewRegistry(backend.WithExtractor(func() (backend.EmbeddingExtractor, error) {
			return redness{}, nil
		}))
	})

	store := filepath.Join(t.TempDir(), "models", "store.db")
	out, err := execute(t, "index", "--config", writeConfig(t, mockConfig), "-o", store, refs)
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 2 skus")

	idx, err := catalog.LoadIndex(store)
	require.NoError(t, err)
	assert.Equal(t, []string{"green-lime", "red-cola"}, idx.IDs())
	_, red := idx.Entry(1)
	assert.InDeltaSlice(t, []float64{1, 0}, red, 1e-9)
}

func TestIndexCmd_NeedsEmbeddingBackend(t *testing.T) {
	refs := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(refs, "red-cola"), 0o755))
	writePNG(t, filepath.Join(refs, "red-cola"), "front.png", color.RGBA{R: 255, A: 255})

	_, err := execute(t, "index", "--config", writeConfig(t, mockConfig), "-o", filepath.Join(t.TempDir(), "store.db"), refs)
	assert.ErrorIs(t, err, backend.ErrUnavailable)
}

func TestIndexCmd_EmptyDirectory(t *testing.T) {
	_, err := execute(t, "index", "--config", writeConfig(t, mockConfig), "-o", filepath.Join(t.TempDir(), "store.db"), t.TempDir())
	assert.Error(t, err)
}
