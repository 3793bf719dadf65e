package extract

import (
	"context"
	"encoding/xml"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/citeas/internal/fetch"
	"github.com/matsen/citeas/internal/metadata"
	"github.com/matsen/citeas/internal/step"
)

// DefaultArxivAPI is the arXiv Atom query endpoint.
const DefaultArxivAPI = "http://export.arxiv.org/api/query"

var (
	arxivIDInText = regexp.MustCompile(`(?i)arXiv:(\d{4}.\d{4,5})`)

	// New-style ids (1812.02329v2) and old-style ids (math.GT/0309136).
	validArxivID = regexp.MustCompile(`^(\d{4}\.\d{4,5}(v\d+)?|[a-z\-]+(\.[a-z]{2})?/\d{7}(v\d+)?)$`)
)

type arxivFeed struct {
	Entries []arxivEntry `xml:"http://www.w3.org/2005/Atom entry"`
}

type arxivEntry struct {
	ID        string `xml:"http://www.w3.org/2005/Atom id"`
	Title     string `xml:"http://www.w3.org/2005/Atom title"`
	Published string `xml:"http://www.w3.org/2005/Atom published"`
	Authors   []struct {
		Name string `xml:"http://www.w3.org/2005/Atom name"`
	} `xml:"http://www.w3.org/2005/Atom author"`
}

// ArxivID returns the arXiv id named by text, either as an "arXiv:<id>"
// mention anywhere in the text or as an "arxiv:<id>" content token.
func ArxivID(text string) (string, bool) {
	id := findOrEmpty(arxivIDInText, text)
	if id == "" {
		_, rest, ok := strings.Cut(strings.TrimSpace(text), ":")
		if !ok || !strings.HasPrefix(strings.ToLower(text), "arxiv:") {
			return "", false
		}
		id = rest
	}
	id = strings.ToLower(strings.TrimSpace(id))
	return id, validArxivID.MatchString(id)
}

// arxiv fetches paper metadata from the arXiv API.
func (s *Sources) arxiv(ctx context.Context, in step.Input) (step.Output, error) {
	id, ok := ArxivID(in.ContentString())
	if !ok {
		return step.Output{}, nil
	}
	absURL := "https://arxiv.org/abs/" + id

	resp, err := s.fetch.Get(ctx, s.arxivAPI+"?id_list="+url.QueryEscape(id))
	if err != nil {
		return step.Output{ContentURL: absURL}, err
	}
	var feed arxivFeed
	if err := xml.Unmarshal(resp.Body, &feed); err != nil {
		return step.Output{ContentURL: absURL}, fetch.Malformed("arXiv feed", err)
	}
	if len(feed.Entries) == 0 || strings.EqualFold(strings.TrimSpace(feed.Entries[0].Title), "error") {
		return step.Output{ContentURL: absURL}, nil
	}
	e := feed.Entries[0]

	m := &metadata.Metadata{
		Type:           "article",
		Title:          metadata.Text(strings.Join(strings.Fields(e.Title), " ")),
		ContainerTitle: "arXiv",
		Eprint:         metadata.Text(id),
		URL:            absURL,
	}
	if len(e.Published) >= 4 {
		if y, err := strconv.Atoi(e.Published[:4]); err == nil {
			m.Issued = metadata.NewYearDate(y)
		}
	}
	for _, a := range e.Authors {
		m.Author = append(m.Author, metadata.ParseName(strings.TrimSpace(a.Name)))
	}
	return step.Output{Content: m, ContentURL: absURL}, nil
}
