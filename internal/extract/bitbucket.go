package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/matsen/citeas/internal/step"
)

var (
	bitbucketURLInText = regexp.MustCompile(`"(https?://bitbucket\.org/\w+/\w+/?)"`)

	bitbucketReadmeHref      = regexp.MustCompile(`(?i)/readme.*?\?`)
	bitbucketCodemetaHref    = regexp.MustCompile(`(?i)/codemeta\.json.*?\?`)
	bitbucketCitationHref    = regexp.MustCompile(`(?i)/citation`)
	bitbucketDescriptionHref = regexp.MustCompile(`(?i)/description`)
)

// bitbucketRepo fetches the source listing of a Bitbucket repository named
// by the parent content.
func (s *Sources) bitbucketRepo(ctx context.Context, in step.Input) (step.Output, error) {
	text := in.ContentString()
	if !strings.Contains(text, "bitbucket.org") {
		return step.Output{}, nil
	}
	var u string
	if isHTTP(text) {
		u = strings.TrimSpace(text)
	} else {
		u = findOrEmpty(bitbucketURLInText, text)
	}
	if u == "" {
		return step.Output{}, nil
	}
	u = strings.TrimRight(repoRoot(u), "/") + "/src"

	body, err := s.page(ctx, u)
	if err != nil {
		return step.Output{ContentURL: u}, err
	}
	return step.Output{Content: body, ContentURL: u}, nil
}

// RawBitbucketURL maps a source view link such as
// "/owner/repo/src/master/README.md?at=default" to its raw file URL.
func RawBitbucketURL(href string) string {
	href = strings.TrimPrefix(href, "https://bitbucket.org")
	s := strings.Split(href, "/")
	if len(s) < 5 {
		return ""
	}
	raw := "https://bitbucket.org/" + s[1] + "/" + s[2] + "/raw/" + strings.Join(s[4:], "/")
	return strings.TrimSuffix(raw, "?at=default")
}

// bitbucketFile returns an extractor that follows the first source link
// matching re and fetches the raw file.
func (s *Sources) bitbucketFile(re *regexp.Regexp) step.ExtractorFunc {
	return func(ctx context.Context, in step.Input) (step.Output, error) {
		href := firstHref(in.ContentString(), re)
		if href == "" {
			return step.Output{}, nil
		}
		raw := RawBitbucketURL(href)
		if raw == "" {
			return step.Output{}, nil
		}
		body, err := s.page(ctx, raw)
		if err != nil {
			return step.Output{ContentURL: raw}, err
		}
		return step.Output{Content: body, ContentURL: raw}, nil
	}
}
