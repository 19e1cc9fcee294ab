// Package cli implements the shelfscan command line.
package cli

import (
	"io"

	"shelf-vision/internal/backend"
	"shelf-vision/internal/config"
	"shelf-vision/internal/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// BackendFactory builds the inference backends for a configuration.
type BackendFactory func(cfg config.Config) *backend.Registry

var (
	configPath string
	verbose    bool
	logFile    string

	cfg        config.Config
	logCloser  io.Closer
	newBackend BackendFactory = func(config.Config) *backend.Registry { return backend.NewRegistry() }
)

var rootCmd = &cobra.Command{
	Use:   "shelfscan",
	Short: "Recognise products on retail shelf photos",
	Long: `shelfscan detects bottles and other packaged products in shelf photos,
matches each one against a catalog of reference embeddings, refines the match
with label text and routes uncertain items to a review directory.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to TOML configuration")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
}

// SetBackendFactory replaces the backend wiring. Without it every stage
// runs on its fallback backend.
func SetBackendFactory(f BackendFactory) {
	newBackend = f
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(_ *cobra.Command, _ []string) error {
	cfg = config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if verbose {
		cfg.Logging.Verbose = true
	}
	if logFile != "" {
		cfg.Logging.File = logFile
	}

	closer, err := logging.Setup(logging.Options{
		Verbose: cfg.Logging.Verbose,
		JSON:    cfg.Logging.JSON,
		File:    cfg.Logging.File,
	})
	if err != nil {
		return err
	}
	logCloser = closer

	log.Debug().Str("config", configPath).Msg("configuration loaded")
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if logCloser == nil {
		return nil
	}
	err := logCloser.Close()
	logCloser = nil
	return err
}
