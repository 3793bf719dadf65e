package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/matsen/citeas/internal/metadata"
)

// Export format names.
const (
	FormatCSV     = "csv"
	FormatEndNote = "enw"
	FormatRIS     = "ris"
	FormatBibTeX  = "bibtex"
)

// Formats lists export formats in response order.
var Formats = []string{FormatCSV, FormatEndNote, FormatRIS, FormatBibTeX}

// Record is one rendered export.
type Record struct {
	Name   string `json:"export_name"`
	Export string `json:"export"`
}

// All renders m in every format.
func All(m *metadata.Metadata) []Record {
	records := make([]Record, 0, len(Formats))
	for _, f := range Formats {
		out, _ := Render(m, f)
		records = append(records, Record{Name: f, Export: out})
	}
	return records
}

// Render renders m in the named format.
func Render(m *metadata.Metadata, format string) (string, error) {
	if m == nil {
		m = &metadata.Metadata{}
	}
	switch strings.ToLower(format) {
	case FormatCSV:
		return ToCSV(m), nil
	case FormatEndNote, "endnote":
		return ToEndNote(m), nil
	case FormatRIS:
		return ToRIS(m), nil
	case FormatBibTeX, "bib":
		return ToBibTeX(m), nil
	}
	return "", fmt.Errorf("unknown export format %q", format)
}

var csvHeader = []string{"type", "title", "author", "year", "container-title", "volume", "issue", "page", "publisher", "DOI", "URL"}

// ToCSV renders a header row and a single value row.
func ToCSV(m *metadata.Metadata) string {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	// Writes to a bytes.Buffer cannot fail.
	_ = w.Write(csvHeader)
	_ = w.Write([]string{
		m.Type,
		m.Title.String(),
		strings.Join(displayNames(m.Author), "; "),
		m.Year,
		m.ContainerTitle.String(),
		m.Volume.String(),
		m.Issue.String(),
		m.Page.String(),
		m.Publisher.String(),
		m.DOI,
		m.URL,
	})
	w.Flush()
	return buf.String()
}

// risTypes maps CSL types to RIS reference types.
var risTypes = map[string]string{
	"article":          "JOUR",
	"article-journal":  "JOUR",
	"book":             "BOOK",
	"chapter":          "CHAP",
	"paper-conference": "CPAPER",
	"report":           "RPRT",
	"thesis":           "THES",
	"software":         "COMP",
	"manual":           "COMP",
	"webpage":          "ELEC",
}

// ToRIS renders m as a RIS record.
func ToRIS(m *metadata.Metadata) string {
	var b strings.Builder
	ty := risTypes[strings.ToLower(m.Type)]
	if ty == "" {
		ty = "GEN"
	}
	risLine(&b, "TY", ty)
	risLine(&b, "TI", m.Title.String())
	for _, name := range displayNames(m.Author) {
		risLine(&b, "AU", name)
	}
	risLine(&b, "PY", m.Year)
	risLine(&b, "T2", m.ContainerTitle.String())
	risLine(&b, "VL", m.Volume.String())
	risLine(&b, "IS", m.Issue.String())
	if start, end, ok := strings.Cut(m.Page.String(), "-"); ok {
		risLine(&b, "SP", strings.TrimSpace(start))
		risLine(&b, "EP", strings.Trim(end, " -"))
	} else {
		risLine(&b, "SP", start)
	}
	risLine(&b, "PB", m.Publisher.String())
	risLine(&b, "DO", m.DOI)
	risLine(&b, "UR", m.URL)
	b.WriteString("ER  - \n")
	return b.String()
}

func risLine(b *strings.Builder, tag, value string) {
	fmt.Fprintf(b, "%s  - %s\n", tag, strings.TrimSpace(value))
}

// endNoteTypes maps CSL types to EndNote reference types.
var endNoteTypes = map[string]string{
	"article":          "Journal Article",
	"article-journal":  "Journal Article",
	"book":             "Book",
	"chapter":          "Book Section",
	"paper-conference": "Conference Paper",
	"report":           "Report",
	"thesis":           "Thesis",
	"software":         "Computer Program",
	"manual":           "Computer Program",
	"webpage":          "Web Page",
}

// ToEndNote renders m in EndNote tagged format (.enw).
func ToEndNote(m *metadata.Metadata) string {
	var b strings.Builder
	ty := endNoteTypes[strings.ToLower(m.Type)]
	if ty == "" {
		ty = "Generic"
	}
	enwLine(&b, "0", ty)
	enwLine(&b, "T", m.Title.String())
	for _, name := range displayNames(m.Author) {
		enwLine(&b, "A", name)
	}
	enwLine(&b, "D", m.Year)
	enwLine(&b, "J", m.ContainerTitle.String())
	enwLine(&b, "V", m.Volume.String())
	enwLine(&b, "N", m.Issue.String())
	enwLine(&b, "P", m.Page.String())
	enwLine(&b, "I", m.Publisher.String())
	enwLine(&b, "R", m.DOI)
	enwLine(&b, "U", m.URL)
	return b.String()
}

func enwLine(b *strings.Builder, tag, value string) {
	fmt.Fprintf(b, "%%%s %s\n", tag, strings.TrimSpace(value))
}

// displayNames formats authors as "Family, Given".
func displayNames(authors []metadata.Author) []string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		family := a.Family
		if family == "" {
			family = a.Literal
		}
		switch {
		case family == "" && a.Given == "":
			continue
		case a.Given == "":
			names = append(names, family)
		case family == "":
			names = append(names, a.Given)
		default:
			names = append(names, family+", "+a.Given)
		}
	}
	return names
}
