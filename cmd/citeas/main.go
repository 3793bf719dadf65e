// Package main provides the citeas CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	debugLog    bool
	configFile  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "citeas",
	Short: "Find out how to cite a piece of research software",
	Long: `citeas discovers how to cite software from a URL, DOI, arXiv id or
package name.

It searches repository files, package registries, DOI metadata and web
pages in priority order until one of them yields citation metadata, then
renders that metadata in several citation styles and export formats.
All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; values already in the environment win.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Log every step attempt to stderr")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/citeas/config.yml)")
	rootCmd.Version = Version
}
