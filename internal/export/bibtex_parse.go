package export

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/citeas/internal/metadata"
)

// ErrInvalidEntry is returned when text cannot be parsed as a BibTeX entry.
var ErrInvalidEntry = errors.New("invalid BibTeX entry")

var validEntryTypes = map[string]bool{
	"article":       true,
	"book":          true,
	"booklet":       true,
	"conference":    true,
	"inbook":        true,
	"incollection":  true,
	"inproceedings": true,
	"manual":        true,
	"mastersthesis": true,
	"misc":          true,
	"phdthesis":     true,
	"proceedings":   true,
	"techreport":    true,
	"unpublished":   true,
}

var (
	// Match entry start: @type
	entryTypeRegex = regexp.MustCompile(`@(\w+-?\w+)`)
	yearRegex      = regexp.MustCompile(`\d{4}`)
)

// ExtractEntry returns the first BibTeX entry embedded in text. The first
// "@word" in text must be a known entry type, otherwise nothing is returned;
// this keeps e-mail addresses and handles from being read as entries.
func ExtractEntry(text string) string {
	loc := entryTypeRegex.FindStringSubmatchIndex(text)
	if loc == nil {
		return ""
	}
	if !validEntryTypes[strings.ToLower(text[loc[2]:loc[3]])] {
		return ""
	}
	rest := text[loc[1]:]
	open := strings.IndexByte(rest, '{')
	if open < 0 || strings.TrimSpace(rest[:open]) != "" {
		return ""
	}
	end := matchingBrace(rest, open)
	if end < 0 {
		return ""
	}
	return text[loc[0] : loc[1]+end+1]
}

// matchingBrace returns the index of the brace closing s[open], or -1.
func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Entry is a parsed BibTeX entry. Field names are lowercased and values
// have their delimiters and grouping braces removed.
type Entry struct {
	Type   string
	Key    string
	Fields map[string]string
}

// ParseEntry parses a single BibTeX entry.
func ParseEntry(s string) (*Entry, error) {
	s = ExtractEntry(s)
	if s == "" {
		return nil, fmt.Errorf("%w: no entry found", ErrInvalidEntry)
	}
	s = strings.ReplaceAll(s, `\url`, "url")

	m := entryTypeRegex.FindStringSubmatchIndex(s)
	e := &Entry{Type: strings.ToLower(s[m[2]:m[3]]), Fields: make(map[string]string)}

	body := s[strings.IndexByte(s, '{')+1 : len(s)-1]
	key, rest, ok := strings.Cut(body, ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing citation key", ErrInvalidEntry)
	}
	e.Key = strings.TrimSpace(key)

	p := &fieldParser{s: rest}
	for {
		name, value, ok, err := p.next()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
		if !ok {
			break
		}
		e.Fields[name] = value
	}
	return e, nil
}

type fieldParser struct {
	s   string
	pos int
}

func (p *fieldParser) skipSpace() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t' || p.s[p.pos] == '\n' || p.s[p.pos] == '\r' || p.s[p.pos] == ',') {
		p.pos++
	}
}

// next reads one "name = value" pair. ok is false at the end of the entry.
func (p *fieldParser) next() (name, value string, ok bool, err error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return "", "", false, nil
	}
	eq := strings.IndexByte(p.s[p.pos:], '=')
	if eq < 0 {
		if strings.TrimSpace(p.s[p.pos:]) == "" {
			return "", "", false, nil
		}
		return "", "", false, fmt.Errorf("field without value near %q", truncate(p.s[p.pos:], 20))
	}
	name = strings.ToLower(strings.TrimSpace(p.s[p.pos : p.pos+eq]))
	if name == "" || strings.ContainsAny(name, " {}\"") {
		return "", "", false, fmt.Errorf("bad field name %q", name)
	}
	p.pos += eq + 1

	var parts []string
	for {
		p.skipBlank()
		part, err := p.value()
		if err != nil {
			return "", "", false, err
		}
		parts = append(parts, part)
		p.skipBlank()
		if p.pos < len(p.s) && p.s[p.pos] == '#' {
			p.pos++
			continue
		}
		break
	}
	return name, cleanValue(strings.Join(parts, "")), true, nil
}

func (p *fieldParser) skipBlank() {
	for p.pos < len(p.s) && strings.IndexByte(" \t\r\n", p.s[p.pos]) >= 0 {
		p.pos++
	}
}

func (p *fieldParser) value() (string, error) {
	if p.pos >= len(p.s) {
		return "", errors.New("unexpected end of entry")
	}
	switch p.s[p.pos] {
	case '{':
		end := matchingBrace(p.s, p.pos)
		if end < 0 {
			return "", errors.New("unbalanced braces")
		}
		v := p.s[p.pos+1 : end]
		p.pos = end + 1
		return v, nil
	case '"':
		depth := 0
		for i := p.pos + 1; i < len(p.s); i++ {
			switch p.s[i] {
			case '{':
				depth++
			case '}':
				depth--
			case '"':
				if depth == 0 && p.s[i-1] != '\\' {
					v := p.s[p.pos+1 : i]
					p.pos = i + 1
					return v, nil
				}
			}
		}
		return "", errors.New("unterminated quoted value")
	default:
		start := p.pos
		for p.pos < len(p.s) && strings.IndexByte(", \t\r\n#}", p.s[p.pos]) < 0 {
			p.pos++
		}
		return p.s[start:p.pos], nil
	}
}

// cleanValue drops grouping braces and collapses whitespace.
func cleanValue(v string) string {
	v = strings.NewReplacer("{", "", "}", "").Replace(v)
	return strings.Join(strings.Fields(v), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Metadata converts a parsed entry into a citation record. raw is kept as
// the record's BibTeX source.
func (e *Entry) Metadata(raw string) *metadata.Metadata {
	f := e.Fields
	m := &metadata.Metadata{
		Type:    "manual",
		Title:   metadata.Text(f["title"]),
		Volume:  metadata.Text(f["volume"]),
		Page:    metadata.Text(f["pages"]),
		Eprint:  metadata.Text(f["eprint"]),
		URL:     f["url"],
		BibTeX:  raw,
		Version: metadata.Text(f["version"]),
	}

	issue := f["number"]
	if issue == "" {
		issue = f["issue"]
	}
	m.Issue = metadata.Text(issue)

	switch {
	case f["note"] != "":
		m.ContainerTitle = metadata.Text(f["note"])
	case f["journal"] != "":
		m.ContainerTitle = metadata.Text(f["journal"])
	case f["booktitle"] != "":
		m.ContainerTitle = metadata.Text(f["booktitle"])
	}

	if authors := strings.TrimSpace(f["author"]); authors != "" {
		for _, name := range strings.Split(authors, " and ") {
			if name = strings.TrimSpace(name); name != "" {
				m.Author = append(m.Author, metadata.Author{Literal: name})
			}
		}
	}

	if y := yearRegex.FindString(f["year"]); y != "" {
		year, _ := strconv.Atoi(y)
		m.Issued = metadata.NewYearDate(year)
	}

	if doi := NormalizeDOI(f["doi"]); doi != "" {
		m.DOI = doi
		m.URL = "http://doi.org/" + doi
	}

	for k, v := range f {
		if !mappedFields[k] && v != "" {
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[k] = v
		}
	}
	return m
}

// mappedFields are the BibTeX fields read into dedicated record fields.
var mappedFields = map[string]bool{
	"title": true, "volume": true, "pages": true, "eprint": true, "url": true,
	"version": true, "number": true, "issue": true, "note": true, "journal": true,
	"booktitle": true, "author": true, "year": true, "doi": true,
}

// ParseMetadata extracts, parses, and converts the first entry in text.
func ParseMetadata(text string) (*metadata.Metadata, error) {
	raw := ExtractEntry(text)
	e, err := ParseEntry(raw)
	if err != nil {
		return nil, err
	}
	return e.Metadata(raw), nil
}

// NormalizeDOI strips resolver prefixes from a DOI and lowercases it.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "https://dx.doi.org/")
	doi = strings.TrimPrefix(doi, "http://dx.doi.org/")
	doi = strings.TrimPrefix(doi, "doi.org/")
	doi = strings.TrimPrefix(doi, "DOI:")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(strings.TrimSpace(doi))
}
