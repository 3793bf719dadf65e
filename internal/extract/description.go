package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/citeas/internal/metadata"
	"github.com/matsen/citeas/internal/step"
)

var (
	descPackage   = regexp.MustCompile(`(?m)Package: (.*)`)
	descTitle     = regexp.MustCompile(`(?m)Title: (.*)`)
	descVersion   = regexp.MustCompile(`(?m)Version: (.*)`)
	descPublished = regexp.MustCompile(`(?m)Date/Publication: (.*)`)
	descAuthor    = regexp.MustCompile(`(?m)Author: (.*)`)

	descGiven   = regexp.MustCompile(`given\s?=\s?"(.*?)"`)
	descFamily  = regexp.MustCompile(`family\s?=\s?"(.*?)"`)
	descPerson  = regexp.MustCompile(`person\(\n?(.*)`)
	descRole    = regexp.MustCompile(`role(.*)\)`)
	descQuoted  = regexp.MustCompile(`"([^"]*)"`)
	descRoleTag = regexp.MustCompile(`\[\w+,?\s?\w+,?\s?\w+]`)
)

func descField(re *regexp.Regexp, text string) string {
	return strings.TrimSpace(findOrEmpty(re, text))
}

// descriptionMetadata reads an R package DESCRIPTION file.
func descriptionMetadata(_ context.Context, in step.Input) (step.Output, error) {
	text := in.ContentString()
	pkg := descField(descPackage, text)
	if pkg == "" {
		return step.Output{}, nil
	}
	title := descField(descTitle, text)
	preview := make(map[string]string)

	m := &metadata.Metadata{
		Type:  "manual",
		Title: metadata.Text(pkg + ": " + title),
		URL:   "https://CRAN.R-project.org/package=" + pkg,
	}
	if p := step.BuildPreview(in.ContentURL, text, "title", title); p != "" {
		preview["title"] = p
	}

	m.Author = descriptionAuthors(text)
	if p := step.BuildAuthorPreview(in.ContentURL, text, "author", m.Author); p != "" {
		preview["author"] = p
	}

	note := "R package version " + descField(descVersion, text)
	m.Note = metadata.Text(note)
	m.ContainerTitle = metadata.Text(note)

	if published := descField(descPublished, text); len(published) >= 4 {
		if y, err := strconv.Atoi(published[:4]); err == nil {
			m.Issued = metadata.NewYearDate(y)
			if p := step.BuildPreview(in.ContentURL, text, "year", published); p != "" {
				preview["year"] = p
			}
		}
	}

	return step.Output{Content: m, ContentURL: m.URL, Preview: preview}, nil
}

// descriptionAuthors reads Authors@R person() entries and falls back to the
// free-text Author field. Only authors and creators are kept when roles are
// given.
func descriptionAuthors(text string) []metadata.Author {
	if authors := personAuthors(text); len(authors) > 0 {
		return authors
	}
	return authorFieldAuthors(text)
}

func personAuthors(text string) []metadata.Author {
	var people []metadata.Author
	givens := descGiven.FindAllStringSubmatch(text, -1)
	families := descFamily.FindAllStringSubmatch(text, -1)
	for i := 0; i < len(givens) && i < len(families); i++ {
		people = append(people, metadata.Author{Given: givens[i][1], Family: families[i][1]})
	}
	if len(people) == 0 {
		for _, m := range descPerson.FindAllStringSubmatch(text, -1) {
			section := strings.Split(strings.ReplaceAll(m[1], `"`, ""), ",")
			if len(section) < 2 {
				continue
			}
			name := strings.TrimSpace(section[0])
			if last := strings.TrimSpace(section[1]); !strings.HasPrefix(last, "role") {
				name += " " + last
			}
			people = append(people, metadata.ParseName(name))
		}
	}

	roles := descRole.FindAllStringSubmatch(text, -1)
	if len(roles) == 0 {
		return people
	}
	var authors []metadata.Author
	for i := 0; i < len(people) && i < len(roles); i++ {
		if hasAuthorRole(descQuoted.FindAllStringSubmatch(roles[i][1], -1)) {
			authors = append(authors, people[i])
		}
	}
	return authors
}

func hasAuthorRole(quoted [][]string) bool {
	for _, q := range quoted {
		if q[1] == "aut" || q[1] == "cre" {
			return true
		}
	}
	return false
}

// authorFieldAuthors parses "Author: Jane Doe [aut, cre], John Roe [ctb]".
func authorFieldAuthors(text string) []metadata.Author {
	raw := descField(descAuthor, text)
	if raw == "" {
		return nil
	}
	roles := descRoleTag.FindAllString(raw, -1)
	for _, r := range roles {
		raw = strings.Replace(raw, r, "", 1)
	}
	names := strings.Split(raw, ",")

	var authors []metadata.Author
	for i, name := range names {
		if len(roles) > 0 {
			if i >= len(roles) {
				break
			}
			if !strings.Contains(roles[i], "aut") && !strings.Contains(roles[i], "cre") {
				continue
			}
		}
		name, _, _ = strings.Cut(name, "<")
		if a := metadata.ParseName(strings.TrimSpace(name)); !a.IsEmpty() {
			authors = append(authors, a)
		}
	}
	return authors
}
