// Package export renders metadata into reference manager formats.
package export

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/matsen/citeas/internal/metadata"
)

// ToBibTeX converts metadata to a BibTeX entry.
func ToBibTeX(m *metadata.Metadata) string {
	entryType := determineEntryType(m.Type)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, CiteKey(m)))

	// Authors
	if len(m.Author) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(m.Author)))
	}

	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(m.Title.String())))

	// Container
	if m.ContainerTitle != "" {
		fieldName := "journal"
		switch entryType {
		case "inproceedings", "incollection":
			fieldName = "booktitle"
		case "misc", "manual":
			fieldName = "howpublished"
		}
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", fieldName, escapeLatex(m.ContainerTitle.String())))
	}

	writeField(&b, "publisher", m.Publisher.String())
	writeField(&b, "volume", m.Volume.String())
	writeField(&b, "number", m.Issue.String())
	writeField(&b, "pages", bibtexPages(m.Page.String()))
	writeField(&b, "year", m.Year)
	writeField(&b, "version", m.Version.String())
	writeField(&b, "note", m.Note.String())

	// DOI and URL are not LaTeX-escaped.
	if m.DOI != "" {
		b.WriteString(fmt.Sprintf("  doi = {%s},\n", m.DOI))
	}
	if m.URL != "" {
		b.WriteString(fmt.Sprintf("  url = {%s},\n", m.URL))
	}

	b.WriteString("}\n")

	return b.String()
}

// pageDashes matches a range separator: any run of hyphens or unicode dashes.
var pageDashes = regexp.MustCompile(`\s*[-\x{2010}-\x{2015}]+\s*`)

// bibtexPages writes page ranges with the BibTeX en dash "--".
func bibtexPages(pages string) string {
	return pageDashes.ReplaceAllString(strings.TrimSpace(pages), "--")
}

func writeField(b *strings.Builder, name, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	b.WriteString(fmt.Sprintf("  %s = {%s},\n", name, escapeLatex(value)))
}

// determineEntryType maps a CSL type to a BibTeX entry type.
func determineEntryType(cslType string) string {
	switch strings.ToLower(cslType) {
	case "article", "article-journal", "article-magazine", "article-newspaper":
		return "article"
	case "book":
		return "book"
	case "chapter":
		return "incollection"
	case "paper-conference":
		return "inproceedings"
	case "report":
		return "techreport"
	case "thesis":
		return "phdthesis"
	case "manual":
		return "manual"
	}
	return "misc"
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First"
func formatAuthors(authors []metadata.Author) string {
	var formatted []string
	for _, a := range authors {
		family := a.Family
		if family == "" {
			family = a.Literal
		}
		if a.Suffix != "" {
			family = fmt.Sprintf("%s, %s", family, a.Suffix)
		}
		if a.Given != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", family, a.Given))
		} else {
			formatted = append(formatted, family)
		}
	}
	return escapeLatex(strings.Join(formatted, " and "))
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// Order matters: & must be first (before other escapes that might produce &)
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}

// CiteKey generates a citation key: FamilyName + Year + two-letter title
// suffix, e.g. "Zhang2018-vi".
func CiteKey(m *metadata.Metadata) string {
	family := "Unknown"
	if len(m.Author) > 0 {
		if f := sanitizeForCiteKey(m.Author[0].Family); f != "" {
			family = f
		}
	}
	year := m.Year
	if year == "" {
		year = "nd"
	}
	return fmt.Sprintf("%s%s-%s", family, year, titleSuffix(m.Title.String()))
}

// sanitizeForCiteKey removes non-alphanumeric characters.
func sanitizeForCiteKey(s string) string {
	var result strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

var citeKeyStopWords = map[string]bool{"a": true, "an": true, "the": true, "of": true, "and": true, "in": true, "on": true, "for": true, "to": true, "with": true}

// titleSuffix creates a 2-letter suffix from the first significant words.
func titleSuffix(title string) string {
	var suffix strings.Builder
	for _, word := range strings.Fields(strings.ToLower(title)) {
		word = sanitizeForCiteKey(word)
		if word == "" || citeKeyStopWords[word] {
			continue
		}
		r := []rune(word)[0]
		if r < unicode.MaxASCII {
			suffix.WriteRune(r)
		}
		if suffix.Len() >= 2 {
			break
		}
	}
	for suffix.Len() < 2 {
		suffix.WriteByte('x')
	}
	return suffix.String()
}
