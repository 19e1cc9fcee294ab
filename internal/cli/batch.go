package cli

import (
	"context"
	"fmt"
	"runtime"

	"shelf-vision/internal/pipeline"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var batchJobs int

var batchCmd = &cobra.Command{
	Use:   "batch [images...]",
	Short: "Recognise the products in many shelf photos",
	Long: `Processes several images with a bounded worker pool sharing one set of
loaded models, and prints per-image results plus combined SKU counts.
An image that cannot be decoded is reported and does not stop the batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchJobs, "jobs", "j", runtime.NumCPU(), "number of images processed concurrently")
	rootCmd.AddCommand(batchCmd)
}

type batchImage struct {
	Image string           `json:"image"`
	Error string           `json:"error,omitempty"`
	Scan  *pipeline.Record `json:"result,omitempty"`
}

type batchOutput struct {
	Images       []batchImage   `json:"images"`
	SKUCounts    map[string]int `json:"sku_counts"`
	TotalItems   int            `json:"total_items"`
	UnknownCount int            `json:"unknown_count"`
	Failed       int            `json:"failed"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	backends := newBackend(cfg)
	defer backends.Close()
	index, mapping := pipeline.LoadCatalog(cfg.Classifier)

	images := make([]batchImage, len(args))

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(1, batchJobs))
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p := pipeline.New(cfg, backends, index, mapping)
			res, err := p.ProcessFile(path)
			if err != nil {
				log.Error().Err(err).Str("image", path).Msg("scan failed")
				images[i] = batchImage{Image: path, Error: err.Error()}
				return nil
			}
			rec := res.Record()
			images[i] = batchImage{Image: path, Scan: &rec}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("batch failed: %w", err)
	}

	return printJSON(cmd, summarize(images))
}

func summarize(images []batchImage) batchOutput {
	out := batchOutput{Images: images, SKUCounts: make(map[string]int)}
	for _, img := range images {
		if img.Scan == nil {
			out.Failed++
			continue
		}
		out.TotalItems += img.Scan.TotalItems
		out.UnknownCount += img.Scan.UnknownCount
		for sku, n := range img.Scan.SKUCounts {
			out.SKUCounts[sku] += n
		}
	}
	return out
}
