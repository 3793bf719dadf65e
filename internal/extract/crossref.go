package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/matsen/citeas/internal/fetch"
	"github.com/matsen/citeas/internal/metadata"
	"github.com/matsen/citeas/internal/step"
)

const (
	// DOIResolver is prefixed to a DOI to build its URL.
	DOIResolver = "https://doi.org/"

	cslJSON = "application/vnd.citationstyles.csl+json"
)

// crossref locates a DOI in the parent's URL or content and fetches its
// CSL-JSON record through DOI content negotiation.
func (s *Sources) crossref(ctx context.Context, in step.Input) (step.Output, error) {
	doi := s.locateDOI(ctx, in)
	if doi == "" {
		return step.Output{}, nil
	}
	doiURL := DOIResolver + doi

	// Negotiated records are not cached: the same URL serves HTML otherwise.
	resp, err := s.fetch.Get(ctx, doiURL, fetch.WithAccept(cslJSON), fetch.NoCache())
	if err != nil {
		return step.Output{ContentURL: doiURL}, err
	}
	var m metadata.Metadata
	if err := json.Unmarshal(resp.Body, &m); err != nil {
		return step.Output{ContentURL: doiURL}, fetch.Malformed("DOI record for "+doi, err)
	}
	m.URL = doiURL
	if m.DOI == "" {
		m.DOI = doi
	}
	return step.Output{Content: &m, ContentURL: doiURL}, nil
}

// locateDOI checks the parent URL first and then its content.
func (s *Sources) locateDOI(ctx context.Context, in step.Input) string {
	for _, candidate := range []string{in.ContentURL, in.ContentString()} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if strings.HasPrefix(candidate, "10.") || (isHTTP(candidate) && strings.Contains(candidate, "doi.org/10.")) {
			if doi, ok := CleanDOI(candidate); ok {
				return doi
			}
			continue
		}
		if doi := s.findDOI(ctx, candidate); doi != "" {
			return doi
		}
		// Repository pages carry Zenodo badges.
		if isHTTP(candidate) && strings.Contains(candidate, "github.com") {
			if page, err := s.page(ctx, candidate); err == nil {
				if doi := s.findDOI(ctx, page); doi != "" {
					return doi
				}
			}
		}
	}
	return ""
}

// passMetadata is the extractor of terminal kinds whose parent already
// produced a metadata record.
func passMetadata(_ context.Context, in step.Input) (step.Output, error) {
	m, ok := in.Content.(*metadata.Metadata)
	if !ok || m == nil {
		return step.Output{}, nil
	}
	return step.Output{Content: m.Clone(), ContentURL: in.ContentURL}, nil
}
