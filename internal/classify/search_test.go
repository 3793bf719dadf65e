package classify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/matsen/citeas/internal/fetch"
)

const resultsPage = `<html><body>
<div class="result">
  <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fggplot2.tidyverse.org%2F&amp;rut=abc">ggplot2</a>
  <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fignored.example%2F">snippet</a>
</div>
<div class="result">
  <a class="result__a" href="https://cran.r-project.org/package=ggplot2">CRAN</a>
</div>
<div class="result">
  <a class="result__a" href="https://github.com/tidyverse/ggplot2">GitHub</a>
</div>
<div class="result">
  <a class="result__a" href="https://fourth.example/">fourth</a>
</div>
</body></html>`

func TestParseResults(t *testing.T) {
	got := parseResults(resultsPage)
	want := []string{
		"https://ggplot2.tidyverse.org/",
		"https://cran.r-project.org/package=ggplot2",
		"https://github.com/tidyverse/ggplot2",
	}
	if len(got) != len(want) {
		t.Fatalf("parseResults = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("result %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDuckDuckGoSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		if gotQuery == "nothing" {
			_, _ = w.Write([]byte("<html><body>No results.</body></html>"))
			return
		}
		_, _ = w.Write([]byte(resultsPage))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(fetch.NewClient(fetch.WithRateLimit(1000)), srv.URL+"/html/")

	results, err := d.Search(context.Background(), "ggplot2 software citation")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "ggplot2 software citation" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(results) != 3 {
		t.Errorf("results = %v", results)
	}

	if _, err := d.Search(context.Background(), "nothing"); !errors.Is(err, ErrNoResults) {
		t.Errorf("empty page err = %v, want ErrNoResults", err)
	}
}
