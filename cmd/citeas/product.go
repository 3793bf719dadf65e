package main

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

var (
	productStrict     bool
	productProvenance bool
)

func init() {
	productCmd.Flags().BoolVar(&productStrict, "strict", false, "Exit with a distinct code when no citation metadata is found")
	productCmd.Flags().BoolVar(&productProvenance, "provenance", false, "With --human, also list every step tried")
	rootCmd.AddCommand(productCmd)
}

var productCmd = &cobra.Command{
	Use:   "product <identifier>",
	Short: "Find the citation for a URL, DOI, arXiv id or name",
	Long: `Find the citation for a piece of software.

The identifier may be a URL, a DOI (10.xxxx/...), an arXiv id, a bare
host such as scipy.org, or free text such as a package name.

Examples:
  citeas product https://github.com/citeas/citeas-api
  citeas product 10.5281/zenodo.160400 --human
  citeas product ggplot2`,
	Args: cobra.MinimumNArgs(1),
	Run:  runProduct,
}

func runProduct(cmd *cobra.Command, args []string) {
	a := setup(true)
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := a.service.Resolve(ctx, strings.Join(args, " "))
	if err != nil {
		a.Close()
		exitWithError(exitCodeFor(err), "%s", errorMessage(err))
	}

	if humanOutput {
		outputHuman("%s", formatBundleHuman(b))
		if productProvenance {
			outputHuman("\n%s", formatProvenanceHuman(b))
		}
	} else {
		outputJSON(b)
	}

	if productStrict && b.Exhausted {
		a.Close()
		os.Exit(ExitNotFound)
	}
}
