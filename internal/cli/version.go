package cli

import (
	"shelf-vision/internal/version"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("shelfscan version %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
