package extract

import (
	"context"
	"errors"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/matsen/citeas/internal/github"
	"github.com/matsen/citeas/internal/metadata"
	"github.com/matsen/citeas/internal/step"
)

var (
	githubURLInText = regexp.MustCompile(`"(https?://github\.com/.+?)"`)
	pinnedMarker    = regexp.MustCompile(`(?i)PINNED_REPO|pinned-item`)
	pinnedRepoHref  = regexp.MustCompile(`href="(/[\w.-]+/[\w.-]+)"`)

	githubCodemetaHref    = regexp.MustCompile(`(?i)blob/.*/codemeta\.json$`)
	githubReadmeHref      = regexp.MustCompile(`(?i)blob/.*/readme`)
	githubCitationHref    = regexp.MustCompile(`(?i)blob/.*/citation`)
	githubDescriptionHref = regexp.MustCompile(`(?i)blob/.*/description`)
	githubInstHref        = regexp.MustCompile(`(?i)/inst$`)
)

// githubRecord is the content of the GitHub API step.
type githubRecord struct {
	Repo *github.Repo
	Gist *github.Gist
	User *github.User
}

// repoRoot keeps scheme, host, owner, and repo of a URL.
func repoRoot(u string) string {
	parts := strings.SplitN(u, "/", 6)
	if len(parts) > 5 {
		parts = parts[:5]
	}
	return strings.Join(parts, "/")
}

// githubRepo fetches a repository page named by the parent content, either
// as a URL or as the first GitHub link in a page. Organization URLs resolve
// to their first pinned repository.
func (s *Sources) githubRepo(ctx context.Context, in step.Input) (step.Output, error) {
	text := in.ContentString()
	if !strings.Contains(text, "github.com") {
		return step.Output{}, nil
	}

	var u string
	if isHTTP(text) {
		u = repoRoot(strings.TrimSpace(text))
	} else {
		u = findOrEmpty(githubURLInText, text)
		u = strings.Replace(u, "/issues", "", 1)
		u = strings.Replace(u, "/new", "", 1)
		if (strings.Contains(u, "sphinx") && strings.Contains(u, "theme")) || strings.HasSuffix(u, ".zip") {
			return step.Output{}, nil
		}
		u = repoRoot(u)
	}
	if u == "" {
		return step.Output{}, nil
	}

	if github.IsOrganizationURL(u) {
		if pinned := s.pinnedRepo(ctx, u); pinned != "" {
			u = pinned
		}
	}

	body, err := s.page(ctx, u)
	if err != nil {
		return step.Output{ContentURL: u}, err
	}
	return step.Output{Content: body, ContentURL: u}, nil
}

func (s *Sources) pinnedRepo(ctx context.Context, orgURL string) string {
	body, err := s.page(ctx, orgURL)
	if err != nil {
		return ""
	}
	loc := pinnedMarker.FindStringIndex(body)
	if loc == nil {
		return ""
	}
	if href := findOrEmpty(pinnedRepoHref, body[loc[0]:]); href != "" {
		return "https://github.com" + href
	}
	return ""
}

// githubAPI fetches the repository (or gist) record and its owner's profile.
func (s *Sources) githubAPI(ctx context.Context, in step.Input) (step.Output, error) {
	u := strings.TrimRight(in.ContentURL, "/")
	if !strings.Contains(u, "github.com") || strings.HasSuffix(u, "github.com") {
		return step.Output{}, nil
	}
	apiURL, err := s.github.RepoAPIURL(u)
	if err != nil {
		return step.Output{}, err
	}

	rec := &githubRecord{}
	var login string
	if id, ok := github.GistID(u); ok {
		if rec.Gist, err = s.github.FetchGist(ctx, id); err != nil {
			return step.Output{ContentURL: apiURL}, err
		}
		login = rec.Gist.Owner.Login
	} else {
		owner, repo, err := github.ParseRepoURL(strings.Replace(u, "/wiki", "", 1))
		if err != nil {
			return step.Output{}, err
		}
		if rec.Repo, err = s.github.FetchRepo(ctx, owner, repo); err != nil {
			return step.Output{ContentURL: apiURL}, err
		}
		login = rec.Repo.Owner.Login
	}
	if login == "" {
		return step.Output{ContentURL: apiURL}, errors.New("GitHub record has no owner")
	}
	if rec.User, err = s.github.FetchUser(ctx, login); err != nil {
		return step.Output{ContentURL: apiURL}, err
	}

	return step.Output{
		Content:    rec,
		ContentURL: apiURL,
		AdditionalURL: &step.AdditionalURL{
			URL:         s.github.UserAPIURL(login),
			Description: "author source",
		},
	}, nil
}

// githubAPIMetadata builds a software record from the API responses.
func githubAPIMetadata(_ context.Context, in step.Input) (step.Output, error) {
	rec, ok := in.Content.(*githubRecord)
	if !ok || rec == nil || (rec.Repo == nil && rec.Gist == nil) {
		return step.Output{}, nil
	}

	m := &metadata.Metadata{
		Type:      "software",
		Publisher: "GitHub repository",
	}
	var created string
	if rec.Gist != nil {
		// Gists are titled by their file name.
		names := make([]string, 0, len(rec.Gist.Files))
		for name := range rec.Gist.Files {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) > 0 {
			m.Title = metadata.Text(names[len(names)-1])
		}
		m.URL = rec.Gist.HTMLURL
		created = rec.Gist.CreatedAt
	} else {
		m.Title = metadata.Text(rec.Repo.Name)
		if m.Title == "" {
			m.Title = metadata.Text(rec.Repo.HTMLURL)
		}
		m.URL = rec.Repo.HTMLURL
		created = rec.Repo.CreatedAt
	}
	if rec.User != nil {
		if a := metadata.ParseName(rec.User.DisplayName()); !a.IsEmpty() {
			m.Author = []metadata.Author{a}
		}
	}
	if len(created) >= 4 {
		if y, err := strconv.Atoi(created[:4]); err == nil {
			m.Issued = metadata.NewYearDate(y)
		}
	}
	return step.Output{Content: m, ContentURL: m.URL}, nil
}

// githubFile returns an extractor that follows the first repository file
// link matching re and fetches the raw file.
func (s *Sources) githubFile(re *regexp.Regexp, transform func(string) string) step.ExtractorFunc {
	return func(ctx context.Context, in step.Input) (step.Output, error) {
		href := firstHref(in.ContentString(), re)
		if href == "" {
			return step.Output{}, nil
		}
		raw := github.RawFileURL(href)
		body, err := s.page(ctx, raw)
		if err != nil {
			return step.Output{ContentURL: raw}, err
		}
		if transform != nil {
			body = transform(body)
		}
		return step.Output{Content: body, ContentURL: raw}, nil
	}
}

// stripDependencies drops a README's dependency section, whose DOIs belong
// to other projects.
func stripDependencies(readme string) string {
	readme = stripNewLines(readme)
	if i := strings.Index(readme, "# Dependencies #"); i >= 0 {
		readme = readme[:i]
	}
	return readme
}

// githubCitation fetches a CITATION file from the repository root or from
// the R package inst/ directory. A symlinked CITATION is read through the
// contents API.
func (s *Sources) githubCitation(ctx context.Context, in step.Input) (step.Output, error) {
	page := in.ContentString()
	href := firstHref(page, githubCitationHref)
	if href == "" {
		if inst := firstHref(page, githubInstHref); inst != "" {
			if instPage, err := s.page(ctx, "https://github.com"+strings.TrimPrefix(inst, "https://github.com")); err == nil {
				href = firstHref(instPage, githubCitationHref)
			}
		}
	}
	if href == "" {
		return step.Output{}, nil
	}

	raw := github.RawFileURL(href)
	body, err := s.page(ctx, raw)
	if err != nil {
		return step.Output{ContentURL: raw}, err
	}
	if target, ok := symlinkTarget(body); ok {
		if resolved, err := s.readLinkedFile(ctx, raw, target); err == nil {
			body = resolved
		} else {
			return step.Output{ContentURL: raw}, err
		}
	}
	return step.Output{Content: body, ContentURL: raw}, nil
}

// symlinkTarget reports whether a raw file body is a bare relative path,
// which is how raw file hosting serves a symlink.
func symlinkTarget(body string) (string, bool) {
	body = strings.TrimSpace(body)
	if body == "" || len(body) > 255 || strings.ContainsAny(body, " \t\n(){}:\"") {
		return "", false
	}
	return body, true
}

// readLinkedFile resolves target relative to the raw file URL and fetches
// it through the contents API.
func (s *Sources) readLinkedFile(ctx context.Context, rawURL, target string) (string, error) {
	rest := strings.TrimPrefix(rawURL, "https://raw.githubusercontent.com/")
	parts := strings.SplitN(rest, "/", 4)
	if len(parts) < 4 {
		return "", github.ErrInvalidURL
	}
	owner, repo, ref, file := parts[0], parts[1], parts[2], parts[3]
	return s.github.FetchFile(ctx, owner, repo, path.Join(path.Dir(file), target), ref)
}
