package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/matsen/citeas/internal/export"
	"github.com/matsen/citeas/internal/fetch"
	"github.com/matsen/citeas/internal/metadata"
	"github.com/matsen/citeas/internal/step"
)

var (
	citEntryCall = regexp.MustCompile(`(?i)(?:citEntry|bibentry)\((.*)\)`)
	citEntryType = regexp.MustCompile(`(?i)entry\s*=\s*"(.*?)"`)
	citEntryAuth = regexp.MustCompile(`(?i)author\s*=.*?"(.*?)"`)

	bibtexDataURL = regexp.MustCompile(`https?://[^"'\s]*data_type=BIBTEX[^"'\s]*`)
	vhubBibtexURL = regexp.MustCompile(`/resources/.*/citation\?citationFormat=bibtex.*no_html=1&.*rev=\d*`)

	zenodoRecord = regexp.MustCompile(`zenodo\.org/record/(\d+)`)
)

// citEntryField returns the quoted value of an R citEntry argument.
func citEntryField(content, name string) string {
	re := regexp.MustCompile(`(?i)` + name + `\s*=\s*"(.*?)"`)
	return findOrEmpty(re, content)
}

// citentry extracts the argument list of an R citEntry or bibentry call.
func citentry(_ context.Context, in step.Input) (step.Output, error) {
	text := in.ContentString()
	lower := strings.ToLower(text)
	if !strings.Contains(lower, "citentry(") && !strings.Contains(lower, "bibentry(") {
		return step.Output{}, nil
	}
	args := findOrEmpty(citEntryCall, strings.ReplaceAll(text, "\n", ""))
	return step.Output{Content: args, ContentURL: in.ContentURL}, nil
}

// citentryMetadata reads the fields of a citEntry call. Only the first
// author is kept.
func citentryMetadata(_ context.Context, in step.Input) (step.Output, error) {
	c := in.ContentString()
	if c == "" {
		return step.Output{}, nil
	}
	m := &metadata.Metadata{
		Type:           strings.ToLower(findOrEmpty(citEntryType, c)),
		Title:          metadata.Text(citEntryField(c, "title")),
		URL:            citEntryField(c, "url"),
		Volume:         metadata.Text(citEntryField(c, "volume")),
		Issue:          metadata.Text(citEntryField(c, "number")),
		Page:           metadata.Text(citEntryField(c, "pages")),
		Publisher:      metadata.Text(citEntryField(c, "publisher")),
		ISBN:           metadata.Text(citEntryField(c, "isbn")),
		ContainerTitle: metadata.Text(citEntryField(c, "journal")),
		Note:           metadata.Text(citEntryField(c, "note")),
		DOI:            citEntryField(c, "doi"),
	}
	if y, err := strconv.Atoi(strings.TrimSpace(citEntryField(c, "year"))); err == nil {
		m.Issued = metadata.NewYearDate(y)
	}
	if first := findOrEmpty(citEntryAuth, c); first != "" {
		m.Author = []metadata.Author{metadata.ParseName(first)}
	}
	contentURL := in.ContentURL
	if m.URL != "" {
		contentURL = m.URL
	}
	return step.Output{Content: m, ContentURL: contentURL}, nil
}

// bibtex finds a BibTeX entry in the parent content, or follows a BibTeX
// download link to one.
func (s *Sources) bibtex(ctx context.Context, in step.Input) (step.Output, error) {
	text := in.ContentString()
	if entry := export.ExtractEntry(text); entry != "" {
		return step.Output{Content: entry, ContentURL: in.ContentURL}, nil
	}

	if m := vhubBibtexURL.FindString(text); m != "" {
		u := html.UnescapeString("https://vhub.org" + m)
		body, err := s.page(ctx, u)
		if err != nil {
			return step.Output{}, err
		}
		return step.Output{Content: body, ContentURL: strings.ReplaceAll(u, "amp;", "")}, nil
	}
	if u := bibtexDataURL.FindString(text); u != "" {
		u = html.UnescapeString(u)
		body, err := s.page(ctx, u)
		if err != nil {
			return step.Output{}, err
		}
		return step.Output{Content: export.ExtractEntry(body), ContentURL: in.ContentURL}, nil
	}
	return step.Output{}, nil
}

// bibtexMetadata parses a BibTeX entry into a record.
func bibtexMetadata(_ context.Context, in step.Input) (step.Output, error) {
	text := in.ContentString()
	if text == "" {
		return step.Output{}, nil
	}
	m, err := export.ParseMetadata(text)
	if err != nil {
		return step.Output{}, fetch.Malformed("BibTeX entry", err)
	}
	contentURL := in.ContentURL
	if m.URL != "" {
		contentURL = m.URL
	}
	return step.Output{Content: m, ContentURL: contentURL}, nil
}

// codemetaDoc is the subset of a codemeta.json file that is read.
type codemetaDoc map[string]json.RawMessage

func (d codemetaDoc) str(key string) string {
	raw, ok := d[key]
	if !ok || bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return ""
	}
	var t metadata.Text
	if err := json.Unmarshal(raw, &t); err != nil {
		return ""
	}
	return strings.TrimSpace(t.String())
}

type codemetaPerson struct {
	GivenName  metadata.Text `json:"givenName"`
	FamilyName metadata.Text `json:"familyName"`
	Name       metadata.Text `json:"name"`
}

func (p codemetaPerson) author() metadata.Author {
	if p.FamilyName != "" || p.GivenName != "" {
		return metadata.Author{Given: p.GivenName.String(), Family: p.FamilyName.String()}
	}
	return metadata.ParseName(p.Name.String())
}

// people decodes a person or a list of persons.
func (d codemetaDoc) people(key string) []metadata.Author {
	raw, ok := d[key]
	if !ok {
		return nil
	}
	var list []codemetaPerson
	if err := json.Unmarshal(raw, &list); err != nil {
		var one codemetaPerson
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil
		}
		list = []codemetaPerson{one}
	}
	var authors []metadata.Author
	for _, p := range list {
		if a := p.author(); !a.IsEmpty() {
			authors = append(authors, a)
		}
	}
	return authors
}

// parseCodemeta decodes a hand-edited codemeta.json, which may carry
// comments and trailing commas, then re-encodes it as strict JSON.
func parseCodemeta(text string) (codemetaDoc, error) {
	var loose map[string]any
	if err := json5.Unmarshal([]byte(text), &loose); err != nil {
		return nil, err
	}
	strict, err := json.Marshal(loose)
	if err != nil {
		return nil, err
	}
	var doc codemetaDoc
	if err := json.Unmarshal(strict, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// codemeta parses a codemeta.json document into a software record.
func codemeta(_ context.Context, in step.Input) (step.Output, error) {
	text := strings.TrimSpace(in.ContentString())
	if text == "" {
		return step.Output{}, nil
	}
	doc, err := parseCodemeta(text)
	if err != nil {
		return step.Output{}, fetch.Malformed("codemeta.json", err)
	}
	if raw, ok := doc["citation"]; ok {
		var inner codemetaDoc
		if json.Unmarshal(raw, &inner) == nil && len(inner) > 0 {
			doc = inner
		}
	}

	m := &metadata.Metadata{Type: "software"}
	if rec := findOrEmpty(zenodoRecord, doc.str("id")); rec != "" {
		m.DOI = "10.5281/zenodo." + rec
	} else if id := doc.str("identifier"); id != "" {
		if doi, ok := CleanDOI(id); ok && strings.HasPrefix(doi, "10.") && strings.Contains(doi, "/") {
			m.DOI = doi
		}
	}
	switch {
	case m.DOI != "":
		m.URL = DOIResolver + m.DOI
	case doc.str("codeRepository") != "":
		m.URL = doc.str("codeRepository")
	default:
		m.URL = doc.str("url")
	}

	m.Title = metadata.Text(doc.str("name"))
	if t := doc.str("title"); t != "" {
		m.Title = metadata.Text(t)
	}
	m.Author = append(doc.people("author"), doc.people("agents")...)

	date := doc.str("dateCreated")
	if date == "" {
		date = doc.str("datePublished")
	}
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			m.Issued = metadata.NewYearDate(y)
		}
	}
	m.Version = metadata.Text(doc.str("version"))

	contentURL := in.ContentURL
	if m.URL != "" {
		contentURL = m.URL
	}
	return step.Output{Content: m, ContentURL: contentURL}, nil
}

// passInput is the extractor of root kinds, whose content is seeded by
// the classifier.
func passInput(_ context.Context, in step.Input) (step.Output, error) {
	return step.Output{Content: in.Content, ContentURL: in.ContentURL}, nil
}
