package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/citeas/internal/export"
)

var exportFormat string

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", export.FormatBibTeX,
		"Export format: "+strings.Join(export.Formats, ", "))
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <identifier>",
	Short: "Print the citation of an identifier in a reference manager format",
	Long: `Resolve an identifier and print its citation as BibTeX, RIS,
EndNote (enw) or CSV.

Examples:
  citeas export https://github.com/citeas/citeas-api
  citeas export 10.5281/zenodo.160400 --format ris > tool.ris`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	format := strings.ToLower(exportFormat)
	if !slices.Contains(export.Formats, format) {
		return fmt.Errorf("unknown format %q (valid: %s)", exportFormat, strings.Join(export.Formats, ", "))
	}

	a := setup(true)
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := a.service.Resolve(ctx, strings.Join(args, " "))
	if err != nil {
		a.Close()
		exitWithError(exitCodeFor(err), "%s", errorMessage(err))
	}

	out, err := export.Render(b.Metadata, format)
	if err != nil {
		return err
	}
	fmt.Print(out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Println()
	}
	return nil
}
