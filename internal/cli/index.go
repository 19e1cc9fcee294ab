package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"shelf-vision/internal/catalog"
	shelfimage "shelf-vision/internal/image"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var indexOutput string

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Build the SKU embedding store from reference photos",
	Long: `Reads reference photos laid out as <dir>/<sku_id>/<photo>, embeds every
photo with the configured embedding model and stores the mean embedding per
SKU in a SQLite store. Existing SKUs in the store are updated in place.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexOutput, "output", "o", "", "embedding store to write (default: classifier.embeddings_path)")
	rootCmd.AddCommand(indexCmd)
}

var referenceExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

func runIndex(cmd *cobra.Command, args []string) error {
	out := indexOutput
	if out == "" {
		out = cfg.Classifier.EmbeddingsPath
	}

	photos, err := referencePhotos(args[0])
	if err != nil {
		return err
	}
	if len(photos) == 0 {
		return fmt.Errorf("no reference photos under %s", args[0])
	}

	backends := newBackend(cfg)
	defer backends.Close()
	extractor := backends.Extractor()

	entries := make(map[string][]float64, len(photos))
	skus := make([]string, 0, len(photos))
	for sku := range photos {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	for _, sku := range skus {
		var vectors [][]float64
		for _, path := range photos[sku] {
			img, err := shelfimage.Load(path)
			if err != nil {
				log.Warn().Err(err).Str("photo", path).Msg("skipping unreadable photo")
				continue
			}
			vec, err := extractor.Extract(img)
			if err != nil {
				return fmt.Errorf("embedding %s with %s: %w", path, extractor.Name(), err)
			}
			vectors = append(vectors, vec)
		}
		mean, err := catalog.Mean(vectors)
		if err != nil {
			log.Warn().Err(err).Str("sku", sku).Msg("skipping sku")
			continue
		}
		entries[sku] = mean
		log.Debug().Str("sku", sku).Int("photos", len(vectors)).Msg("indexed sku")
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("cannot create store directory: %w", err)
	}
	if err := catalog.SaveIndex(out, entries); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "indexed %d skus into %s\n", len(entries), out)
	return err
}

// referencePhotos lists image files per SKU directory, in name order.
func referencePhotos(root string) (map[string][]string, error) {
	dirs, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("cannot read reference directory: %w", err)
	}

	photos := make(map[string][]string)
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, d.Name()))
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", d.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || !referenceExts[strings.ToLower(filepath.Ext(f.Name()))] {
				continue
			}
			photos[d.Name()] = append(photos[d.Name()], filepath.Join(root, d.Name(), f.Name()))
		}
	}
	return photos, nil
}
