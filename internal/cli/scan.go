package cli

import (
	"encoding/json"
	"fmt"

	"shelf-vision/internal/pipeline"

	"github.com/spf13/cobra"
)

var scanStatus bool

var scanCmd = &cobra.Command{
	Use:   "scan [image]",
	Short: "Recognise the products in one shelf photo",
	Long: `Runs detection, catalog matching and label text refinement over one image
and prints the result as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanStatus, "status", false, "include the resolved backends in the output")
	rootCmd.AddCommand(scanCmd)
}

type scanOutput struct {
	Image    string            `json:"image"`
	Backends map[string]string `json:"backends,omitempty"`
	pipeline.Record
}

func runScan(cmd *cobra.Command, args []string) error {
	p := pipeline.NewFromConfig(cfg, newBackend(cfg))
	defer p.Close()

	res, err := p.ProcessFile(args[0])
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	out := scanOutput{Image: args[0], Record: res.Record()}
	if scanStatus {
		out.Backends = p.Backends().Status()
	}
	return printJSON(cmd, out)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
