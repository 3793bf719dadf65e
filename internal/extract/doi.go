package extract

import (
	"context"
	"regexp"
	"strings"
	"unicode"
)

var (
	// DOI pattern: 10.XXXX/... where XXXX is 4-9 digits
	doiPattern = regexp.MustCompile(`(?i)10.\d{4,9}/[-._;()/:A-Za-z0-9+]+`)

	zenodoBadgeDOI    = regexp.MustCompile(`(?i)://zenodo.org/badge/doi/(.+?).svg`)
	zenodoLatestBadge = regexp.MustCompile(`(?i)zenodo.org/badge/latestdoi/\d+`)
	zenodoDOI         = regexp.MustCompile(`(?i)10\.5281/zenodo\.\d+`)
	htmlTag           = regexp.MustCompile(`<[^<]+?>`)
	whitespace        = regexp.MustCompile(`\s+`)
)

// codemetaSchemaDOI is cited by every codemeta.json and never names the software.
const codemetaSchemaDOI = "10.5063/schema/codemeta-2.0"

// CleanDOI trims a string down to the DOI it contains: invisible characters
// are dropped, everything before the first "10" is discarded, and any URL
// fragment is removed.
func CleanDOI(dirty string) (string, bool) {
	dirty = strings.Map(func(r rune) rune {
		if unicode.In(r, unicode.C, unicode.M, unicode.Z) {
			return -1
		}
		return r
	}, dirty)
	idx := strings.Index(dirty, "10")
	if idx < 0 || idx+2 >= len(dirty) {
		return "", false
	}
	doi := dirty[idx:]
	doi, _, _ = strings.Cut(doi, "#")
	return doi, doi != ""
}

// stripDOIJunk removes markup and punctuation that regex matches drag along
// from the surrounding text.
func stripDOIJunk(doi string) string {
	doi = whitespace.ReplaceAllString(doi, "")
	doi, _, _ = strings.Cut(doi, `">`)
	doi, _, _ = strings.Cut(doi, "</a>")
	for _, cut := range []string{",", ".", "'", `"`, "}"} {
		doi = strings.Trim(doi, cut)
	}
	clean, ok := CleanDOI(doi)
	if !ok {
		return ""
	}
	return strings.ToLower(clean)
}

// findDOI searches text for a DOI, preferring Zenodo badges. Zenodo record
// pages and latest-DOI badges are fetched to read the DOI they point at.
func (s *Sources) findDOI(ctx context.Context, text string) string {
	if strings.HasPrefix(text, "https://zenodo.org/record/") {
		page, err := s.page(ctx, text)
		if err != nil {
			return ""
		}
		text = page
	}

	if badge := findOrEmpty(zenodoBadgeDOI, text); badge != "" {
		return stripDOIJunk(badge)
	}
	if latest := findOrEmpty(zenodoLatestBadge, text); latest != "" {
		if page, err := s.page(ctx, "https://"+latest); err == nil {
			text = page
		}
	}
	if z := findOrEmpty(zenodoDOI, text); z != "" {
		return stripDOIJunk(z)
	}

	if strings.Contains(text, "<html>") {
		text = htmlTag.ReplaceAllString(text, "")
	}
	for _, candidate := range doiPattern.FindAllString(text, -1) {
		if strings.Contains(strings.ToLower(candidate), codemetaSchemaDOI) {
			continue
		}
		if doi := stripDOIJunk(candidate); doi != "" {
			return doi
		}
	}
	return ""
}
