package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/matsen/citeas/internal/classify"
	"github.com/matsen/citeas/internal/product"
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...any) {
	fmt.Printf(format, args...)
}

// exitWithError outputs an error in the appropriate format (human or JSON) and exits.
func exitWithError(code int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitCodeFor maps a resolution error to an exit code.
func exitCodeFor(err error) int {
	if classify.IsUnsupported(err) {
		return ExitUnsupported
	}
	return ExitError
}

// errorMessage is the user-facing text for a resolution error.
func errorMessage(err error) string {
	var ue *classify.UnsupportedError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return err.Error()
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// formatBundleHuman renders the citations of b as plain text.
func formatBundleHuman(b *product.Bundle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s\n", b.Name, b.URL)
	if b.DOI != "" {
		fmt.Fprintf(&sb, "doi: %s\n", b.DOI)
	}
	if b.Exhausted {
		sb.WriteString("(no citation metadata found; showing a citation of the URL)\n")
	}
	sb.WriteString("\n")
	for _, c := range b.Citations {
		fmt.Fprintf(&sb, "%s:\n  %s\n", c.FullName, stripTags(c.Citation))
	}
	return sb.String()
}

// formatProvenanceHuman lists the steps tried, marking those that found content.
func formatProvenanceHuman(b *product.Bundle) string {
	var sb strings.Builder
	for i, p := range b.Provenance {
		mark := " "
		if p.HasContent {
			mark = "+"
		}
		fmt.Fprintf(&sb, "%2d %s %-32s %s\n", i+1, mark, p.Name, p.ContentURL)
	}
	return sb.String()
}

var tagReplacer = strings.NewReplacer("<i>", "", "</i>", "", "<b>", "", "</b>", "")

func stripTags(s string) string {
	return tagReplacer.Replace(s)
}
