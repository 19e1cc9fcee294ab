// Package main provides the entry point for shelfscan.
package main

import (
	"os"

	"shelf-vision/internal/cli"
)

func main() {
	cli.SetBackendFactory(newRegistry)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
