// Package main is the entry point for the Forge CLI.
// Forge provides command-line access to the AssetForge service,
// which generates images and videos from text prompts.
package main

import (
	"os"

	"github.com/assetforge/forge-cli/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
