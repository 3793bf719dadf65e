package export

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/matsen/citeas/internal/metadata"
)

func sampleMetadata() *metadata.Metadata {
	return &metadata.Metadata{
		Type:           "article-journal",
		Title:          "Monitoring Count Time Series in R",
		Author:         []metadata.Author{{Family: "Salmon", Given: "Maëlle"}, {Family: "Höhle", Given: "Michael"}},
		Year:           "2016",
		ContainerTitle: "Journal of Statistical Software",
		Volume:         "70",
		Issue:          "10",
		Page:           "1-35",
		DOI:            "10.18637/jss.v070.i10",
		URL:            "https://doi.org/10.18637/jss.v070.i10",
	}
}

func TestToCSV(t *testing.T) {
	rows, err := csv.NewReader(strings.NewReader(ToCSV(sampleMetadata()))).ReadAll()
	if err != nil {
		t.Fatalf("ToCSV() produced invalid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ToCSV() rows = %d, want 2", len(rows))
	}
	got := make(map[string]string)
	for i, h := range rows[0] {
		got[h] = rows[1][i]
	}
	if got["author"] != "Salmon, Maëlle; Höhle, Michael" {
		t.Errorf("author = %q", got["author"])
	}
	if got["year"] != "2016" || got["DOI"] != "10.18637/jss.v070.i10" {
		t.Errorf("row = %v", got)
	}
}

func TestToRIS(t *testing.T) {
	got := ToRIS(sampleMetadata())
	for _, want := range []string{
		"TY  - JOUR\n",
		"AU  - Salmon, Maëlle\n",
		"AU  - Höhle, Michael\n",
		"PY  - 2016\n",
		"SP  - 1\n",
		"EP  - 35\n",
		"DO  - 10.18637/jss.v070.i10\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ToRIS() missing %q, got:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "ER  - \n") {
		t.Errorf("ToRIS() should end with ER, got:\n%s", got)
	}
}

func TestToEndNote(t *testing.T) {
	got := ToEndNote(sampleMetadata())
	for _, want := range []string{
		"%0 Journal Article\n",
		"%T Monitoring Count Time Series in R\n",
		"%A Salmon, Maëlle\n",
		"%D 2016\n",
		"%J Journal of Statistical Software\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("ToEndNote() missing %q, got:\n%s", want, got)
		}
	}
}

func TestMissingFieldsRenderEmpty(t *testing.T) {
	m := &metadata.Metadata{URL: "https://example.org"}
	for _, r := range All(m) {
		if r.Export == "" {
			t.Errorf("%s export is empty", r.Name)
		}
	}
	if got := ToRIS(m); !strings.Contains(got, "TY  - GEN\n") || !strings.Contains(got, "TI  - \n") {
		t.Errorf("ToRIS() = %q", got)
	}
	if got := ToEndNote(m); !strings.Contains(got, "%0 Generic\n") || !strings.Contains(got, "%U https://example.org\n") {
		t.Errorf("ToEndNote() = %q", got)
	}
}

func TestAllOrder(t *testing.T) {
	records := All(sampleMetadata())
	if len(records) != len(Formats) {
		t.Fatalf("All() = %d records, want %d", len(records), len(Formats))
	}
	for i, f := range Formats {
		if records[i].Name != f {
			t.Errorf("records[%d].Name = %q, want %q", i, records[i].Name, f)
		}
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	if _, err := Render(sampleMetadata(), "docx"); err == nil {
		t.Error("Render() expected error for unknown format")
	}
	if _, err := Render(nil, FormatBibTeX); err != nil {
		t.Errorf("Render(nil) error = %v", err)
	}
}
