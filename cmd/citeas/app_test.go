package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/matsen/citeas/internal/citation"
	"github.com/matsen/citeas/internal/classify"
	"github.com/matsen/citeas/internal/config"
	"github.com/matsen/citeas/internal/extract"
	"github.com/matsen/citeas/internal/product"
	"github.com/matsen/citeas/internal/step"
)

func TestNewApp(t *testing.T) {
	cfg := config.Default()
	cfg.CacheDB = filepath.Join(t.TempDir(), "responses.db")
	cfg.GitHubTokens = []string{"alice:tok1", "bob:tok2"}

	a, err := newApp(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	defer a.Close()

	if a.db == nil {
		t.Error("persisted cache not opened")
	}
	if _, ok := a.registry.Lookup(extract.KindUserInput); !ok {
		t.Error("registry lacks the root step")
	}
	if a.service == nil {
		t.Error("service not wired")
	}
}

func TestNewApp_BadTokens(t *testing.T) {
	cfg := config.Default()
	cfg.GitHubTokens = []string{"alice:"}
	if _, err := newApp(cfg, zap.NewNop()); err == nil {
		t.Error("newApp() should reject an empty token")
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    int
		wantMsg string
	}{
		{"unsupported", &classify.UnsupportedError{Input: "a.pdf", Message: "PDF documents are not supported"}, ExitUnsupported, "PDF documents are not supported"},
		{"other", errors.New("boom"), ExitError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
			if got := errorMessage(tt.err); got != tt.wantMsg {
				t.Errorf("errorMessage() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestFormatBundleHuman(t *testing.T) {
	b := &product.Bundle{
		Name: "ggplot2",
		URL:  "https://github.com/tidyverse/ggplot2",
		DOI:  "10.1007/978-0-387-98141-3",
		Citations: []citation.Record{
			{ShortName: "apa", FullName: "American Psychological Association 6th edition", Citation: "Wickham, H. (2009). <i>ggplot2</i>."},
		},
		Provenance: []step.Provenance{
			{Name: "UserInput", HasContent: true, ContentURL: "https://github.com/tidyverse/ggplot2"},
			{Name: "GithubCodemetaFile"},
		},
	}

	got := formatBundleHuman(b)
	for _, want := range []string{"ggplot2\n", "doi: 10.1007/978-0-387-98141-3", "Wickham, H. (2009). ggplot2."} {
		if !strings.Contains(got, want) {
			t.Errorf("formatBundleHuman() lacks %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "<i>") {
		t.Error("markup not stripped")
	}

	prov := formatProvenanceHuman(b)
	lines := strings.Split(strings.TrimSpace(prov), "\n")
	if len(lines) != 2 || !strings.Contains(lines[0], "+ UserInput") || strings.Contains(lines[1], "+") {
		t.Errorf("formatProvenanceHuman() = %q", prov)
	}
}
