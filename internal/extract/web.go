package extract

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/matsen/citeas/internal/fetch"
	"github.com/matsen/citeas/internal/metadata"
	"github.com/matsen/citeas/internal/step"
)

var (
	pubmedLegacyURL = regexp.MustCompile(`(?i)www\.ncbi\.nlm\.nih\.gov/pubmed/\d{8}`)
	pubmedURL       = regexp.MustCompile(`(?i)pubmed\.ncbi\.nlm\.nih\.gov/\d{8}`)
	pmcID           = regexp.MustCompile(`(?i)PMC\d{7}`)

	cranPackagePath = regexp.MustCompile(`(?i)cran\.r-project\.org/web/packages/(\w+\.?\w+)/?`)
	cranPackageArg  = regexp.MustCompile(`(?i)cran\.r-project\.org/package=([^/\s"'&]+)`)
)

// webpage fetches the page at the parent URL.
func (s *Sources) webpage(ctx context.Context, in step.Input) (step.Output, error) {
	if !isHTTP(in.ContentURL) {
		return step.Output{}, nil
	}
	body, err := s.page(ctx, in.ContentURL)
	if err != nil {
		return step.Output{ContentURL: in.ContentURL}, err
	}
	return step.Output{Content: body, ContentURL: in.ContentURL}, nil
}

// pmid follows a PubMed or PubMed Central link in the parent content.
func (s *Sources) pmid(ctx context.Context, in step.Input) (step.Output, error) {
	text := in.ContentString()
	var target string
	switch {
	case pubmedLegacyURL.MatchString(text):
		target = pubmedLegacyURL.FindString(text)
	case pubmedURL.MatchString(text):
		target = pubmedURL.FindString(text)
	case pmcID.MatchString(text):
		target = "pubmed.ncbi.nlm.nih.gov/" + pmcID.FindString(text)
	default:
		return step.Output{}, nil
	}
	u := "https://" + target
	body, err := s.page(ctx, u)
	if err != nil {
		return step.Output{ContentURL: u}, err
	}
	return step.Output{Content: body, ContentURL: u}, nil
}

// pypi fetches a PyPI or Read the Docs project page, keeping only the
// project body so index navigation links are not mistaken for the project's.
func (s *Sources) pypi(ctx context.Context, in step.Input) (step.Output, error) {
	u := in.ContentString()
	if !isHTTP(u) {
		return step.Output{}, nil
	}
	if !strings.Contains(u, "pypi.python.org/pypi") && !strings.Contains(u, "pypi.org/project") && !strings.Contains(u, "readthedocs.org") {
		return step.Output{}, nil
	}
	body, err := s.page(ctx, u)
	if err != nil {
		return step.Output{ContentURL: u}, err
	}
	if _, after, ok := strings.Cut(body, `<div id="content-body">`); ok {
		body = after
	}
	return step.Output{Content: body, ContentURL: u}, nil
}

// CRANPackageURL maps any CRAN package URL form to the package's index page.
func CRANPackageURL(u string) (string, bool) {
	name := findOrEmpty(cranPackagePath, u)
	if name == "" {
		name = findOrEmpty(cranPackageArg, u)
	}
	if name == "" {
		return "", false
	}
	return "https://cran.r-project.org/web/packages/" + name, true
}

// cran fetches a CRAN package page.
func (s *Sources) cran(ctx context.Context, in step.Input) (step.Output, error) {
	u, ok := CRANPackageURL(in.ContentURL)
	if !ok {
		return step.Output{}, nil
	}
	body, err := s.page(ctx, u)
	if err != nil {
		return step.Output{ContentURL: u}, err
	}
	return step.Output{Content: body, ContentURL: u}, nil
}

// cranCitationFile fetches the package's rendered CITATION page.
func (s *Sources) cranCitationFile(ctx context.Context, in step.Input) (step.Output, error) {
	return s.cranFile(ctx, in, "/citation.html")
}

// cranDescriptionFile fetches the package's DESCRIPTION file.
func (s *Sources) cranDescriptionFile(ctx context.Context, in step.Input) (step.Output, error) {
	return s.cranFile(ctx, in, "/DESCRIPTION")
}

func (s *Sources) cranFile(ctx context.Context, in step.Input, suffix string) (step.Output, error) {
	if !isHTTP(in.ContentURL) {
		return step.Output{}, nil
	}
	u := strings.TrimRight(in.ContentURL, "/") + suffix
	resp, err := s.fetch.Get(ctx, u)
	if err != nil {
		if fetch.IsNotFound(err) {
			return step.Output{}, nil
		}
		return step.Output{}, err
	}
	return step.Output{Content: resp.Text(), ContentURL: u}, nil
}

// relationHeader follows an RFC 8574 cite-as Link header on the parent URL.
// DOI targets are handed to the DOI step as a URL; other targets are fetched.
func (s *Sources) relationHeader(ctx context.Context, in step.Input) (step.Output, error) {
	if !isHTTP(in.ContentURL) {
		return step.Output{}, nil
	}
	resp, err := s.fetch.Get(ctx, in.ContentURL)
	if err != nil {
		return step.Output{}, err
	}

	var citeAs []fetch.Link
	for _, l := range fetch.ParseLinkHeader(resp.Header) {
		if l.HasRel("cite-as") {
			citeAs = append(citeAs, l)
		}
	}
	if len(citeAs) == 0 {
		return step.Output{}, nil
	}
	target := citeAs[0].URL
	for _, l := range citeAs {
		if strings.Contains(l.URL, "doi.org") {
			target = l.URL
			break
		}
	}

	out := step.Output{ContentURL: target, OriginalURL: in.ContentURL}
	if strings.Contains(target, "doi.org") {
		out.Content = "found"
		return out, nil
	}
	body, err := s.page(ctx, target)
	if err != nil {
		return out, err
	}
	out.Content = body
	return out, nil
}

// webpageMetadata titles a page from its <title>, falling back to the first
// <h1> and then <h2>. It always yields a record, so a plain webpage ends the
// search.
func webpageMetadata(_ context.Context, in step.Input) (step.Output, error) {
	page := in.ContentString()
	title := pageTitle(page)
	m := &metadata.Metadata{
		Type:  "misc",
		Title: metadata.Text(title),
		URL:   in.ContentURL,
	}
	out := step.Output{Content: m, ContentURL: in.ContentURL}
	if p := step.BuildPreview(in.ContentURL, stripNewLines(page), "title", title); p != "" {
		out.Preview = map[string]string{"title": p}
	}
	return out, nil
}

// pageTitle returns the trimmed text of the first title-like element.
func pageTitle(page string) string {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return ""
	}
	for _, a := range []atom.Atom{atom.Title, atom.H1, atom.H2} {
		if n := findElement(doc, a); n != nil {
			if t := strings.TrimSpace(nodeText(n)); t != "" {
				return t
			}
		}
	}
	return ""
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}
