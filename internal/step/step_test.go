package step

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/matsen/citeas/internal/metadata"
)

var nopExtractor = ExtractorFunc(func(context.Context, Input) (Output, error) {
	return Output{}, nil
})

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Kind{Name: "GithubRepo", Extractor: nopExtractor, Intro: "GitHub"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	k, ok := r.Lookup("GithubRepo")
	if !ok {
		t.Fatal("Lookup() did not find registered kind")
	}
	if k.Subject != "GitHub repository main page" {
		t.Errorf("Subject = %q", k.Subject)
	}
	if k.Host != "github" {
		t.Errorf("Host = %q", k.Host)
	}
	if k.ProxyType != "link" {
		t.Errorf("ProxyType = %q", k.ProxyType)
	}

	err := r.Register(Kind{Name: "GithubRepo", Extractor: nopExtractor})
	if !errors.Is(err, ErrDuplicateKind) {
		t.Errorf("duplicate Register() error = %v, want ErrDuplicateKind", err)
	}

	err = r.Register(Kind{Name: "NoExtractor"})
	if !errors.Is(err, ErrNoExtractor) {
		t.Errorf("Register() without extractor error = %v, want ErrNoExtractor", err)
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Kind{Name: "Root", Children: []string{"Leaf", "Missing"}, Extractor: nopExtractor},
		Kind{Name: "Leaf", Terminal: true, Extractor: nopExtractor},
	)

	err := r.Validate()
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("Validate() error = %v, want ErrUnknownKind", err)
	}
	if !strings.Contains(err.Error(), "Missing") {
		t.Errorf("Validate() error should name the missing kind: %v", err)
	}
}

func TestRegistry_Configs(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Kind{Name: "Bibtex", Intro: "BibTeX is a format", Links: []Link{{Title: "examples", URL: "https://example.org"}}, Extractor: nopExtractor},
		Kind{Name: "BibtexMetadata", Terminal: true, Extractor: nopExtractor},
	)

	configs := r.Configs()
	if len(configs) != 1 {
		t.Fatalf("Configs() returned %d entries, want 1", len(configs))
	}
	c := configs["Bibtex"]
	if c.Subject != "BibTeX" || c.Intro != "BibTeX is a format" || len(c.Links) != 1 {
		t.Errorf("unexpected config: %+v", c)
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		name      string
		subject   string
		host      string
		proxyType string
	}{
		{"UserInput", "user input", "", ""},
		{"CrossrefResponse", "DOI API response", "crossref", "doi"},
		{"CrossrefResponseMetadata", "DOI API response", "crossref", ""},
		{"ArxivResponse", "ArXiv page", "", "arXiv ID"},
		{"GithubCodemetaFile", "CodeMeta file", "github", ""},
		{"CranCitationFile", "CITATION file", "cran", "link"},
		{"GithubApiResponse", "GitHub repository API response", "github", "link"},
		{"RelationHeader", "cite-as relation header", "", "link"},
		{"Citentry", "R CITATION format", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SubjectFor(tt.name); got != tt.subject {
				t.Errorf("SubjectFor() = %q, want %q", got, tt.subject)
			}
			if got := HostFor(tt.name); got != tt.host {
				t.Errorf("HostFor() = %q, want %q", got, tt.host)
			}
			if got := ProxyTypeFor(tt.name); got != tt.proxyType {
				t.Errorf("ProxyTypeFor() = %q, want %q", got, tt.proxyType)
			}
		})
	}
}

func TestIsEmpty(t *testing.T) {
	var nilMeta *metadata.Metadata
	tests := []struct {
		name    string
		content any
		want    bool
	}{
		{"nil", nil, true},
		{"blank string", "  \n", true},
		{"text", "hello", false},
		{"nil metadata", nilMeta, true},
		{"metadata", &metadata.Metadata{}, false},
		{"empty map", map[string]any{}, true},
		{"map", map[string]any{"a": 1}, false},
		{"empty bytes", []byte{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsEmpty(tt.content); got != tt.want {
				t.Errorf("IsEmpty(%v) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestInstance_Provenance(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(
		Kind{Name: "UserInput", Extractor: nopExtractor},
		Kind{Name: "CrossrefResponse", Extractor: nopExtractor},
	)
	rootKind, _ := r.Lookup("UserInput")
	childKind, _ := r.Lookup("CrossrefResponse")

	root := &Instance{Kind: rootKind, Content: "10.1/x", ContentURL: "https://doi.org/10.1/x"}
	child := NewInstance(childKind, root, Output{ContentURL: "https://doi.org/10.1/x"}, errors.New("status 404"))

	p := child.Provenance()
	if p.Name != "CrossrefResponse" || p.ParentStepName != "UserInput" {
		t.Errorf("names = %q / %q", p.Name, p.ParentStepName)
	}
	if p.HasContent || p.Outcome != OutcomeFailure {
		t.Errorf("HasContent = %v, Outcome = %q", p.HasContent, p.Outcome)
	}
	if p.Error != "status 404" {
		t.Errorf("Error = %q", p.Error)
	}
	if p.ParentSubject != "user input" || p.FoundViaProxyType != "doi" {
		t.Errorf("labels = %q / %q", p.ParentSubject, p.FoundViaProxyType)
	}

	rp := root.Provenance()
	if rp.ParentStepName != "" || rp.Outcome != OutcomeSuccess {
		t.Errorf("root provenance = %+v", rp)
	}
}

func TestBuildPreview(t *testing.T) {
	source := "Package: ggplot2\nTitle: Create Elegant Data Visualisations\nVersion: 3.4.0"
	got := BuildPreview("https://cran.r-project.org/DESCRIPTION", source, "title", "Create Elegant Data Visualisations")

	if !strings.HasPrefix(got, "<i>Snapshot of title data found at https://cran.r-project.org/DESCRIPTION.</i><br>") {
		t.Errorf("unexpected header: %q", got)
	}
	if !strings.Contains(got, `<span class="highlight">Create Elegant Data Visualisations</span>`) {
		t.Errorf("match not highlighted: %q", got)
	}
	if !strings.Contains(got, "<br />") {
		t.Errorf("newlines not converted: %q", got)
	}

	if BuildPreview("u", source, "title", "absent") != "" {
		t.Error("BuildPreview() should be empty when content is missing")
	}
}

func TestBuildPreview_Window(t *testing.T) {
	source := strings.Repeat("a", 2000) + "TARGET" + strings.Repeat("b", 2000)
	got := BuildPreview("u", source, "title", "TARGET")
	body := got[strings.Index(got, "<br>")+len("<br>"):]

	if !strings.HasPrefix(body, strings.Repeat("a", previewWindow)+"<span") {
		t.Errorf("leading context should be exactly %d chars: %.40q", previewWindow, body)
	}
	if strings.Count(body, "b") != previewWindow-len("TARGET") {
		t.Errorf("trailing context = %d chars", strings.Count(body, "b"))
	}
}

func TestBuildAuthorPreview(t *testing.T) {
	source := `person("Hadley", "Wickham", role = c("aut", "cre"))`
	authors := []metadata.Author{{Family: "Wickham", Given: "Hadley"}}
	got := BuildAuthorPreview("u", source, "author", authors)

	for _, want := range []string{
		`<span class="highlight">Hadley</span>`,
		`<span class="highlight">Wickham</span>`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("BuildAuthorPreview() missing %q in %q", want, got)
		}
	}
}
