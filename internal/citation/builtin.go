package citation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/matsen/citeas/internal/metadata"
)

// ErrUnknownStyle is returned for style ids the processor cannot render.
var ErrUnknownStyle = errors.New("unknown citation style")

var styleNames = map[string]string{
	StyleAPA:       "American Psychological Association 6th edition",
	StyleHarvard:   "Harvard reference format 1 (deprecated)",
	StyleNature:    "Nature",
	StyleMLA:       "Modern Language Association 7th edition (with URL)",
	StyleChicago:   "Chicago Manual of Style 17th edition (author-date)",
	StyleVancouver: "Vancouver",
}

// Builtin approximates the supported styles without a CSL engine.
type Builtin struct{}

// StyleName returns the display name of a style.
func (Builtin) StyleName(styleID string) string {
	if name, ok := styleNames[styleID]; ok {
		return name
	}
	return styleID
}

// Render formats each item as one bibliography entry, one per line.
func (Builtin) Render(items []*metadata.Metadata, styleID string, format Format) (string, error) {
	render, ok := styleFuncs[styleID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStyle, styleID)
	}
	entries := make([]string, 0, len(items))
	for _, m := range items {
		if m == nil {
			continue
		}
		entries = append(entries, render(newEntry(m, format)))
	}
	return strings.Join(entries, "\n"), nil
}

var styleFuncs = map[string]func(entry) string{
	StyleAPA:       apa,
	StyleHarvard:   harvard,
	StyleNature:    nature,
	StyleMLA:       mla,
	StyleChicago:   chicago,
	StyleVancouver: vancouver,
}

// entry is a record prepared for formatting.
type entry struct {
	authors   []metadata.Author
	year      string
	title     string
	container string
	volume    string
	issue     string
	page      string
	publisher string
	link      string // DOI URL, else the record URL
	article   bool
	html      bool
}

func newEntry(m *metadata.Metadata, format Format) entry {
	e := entry{
		title:     strings.TrimSpace(string(m.Title)),
		container: strings.TrimSpace(string(m.ContainerTitle)),
		volume:    string(m.Volume),
		issue:     string(m.Issue),
		page:      strings.ReplaceAll(string(m.Page), "--", "–"),
		publisher: string(m.Publisher),
		link:      m.URL,
		article:   isArticle(m.Type),
		html:      format == FormatHTML,
	}
	for _, a := range m.Author {
		if !a.IsEmpty() {
			e.authors = append(e.authors, a)
		}
	}
	if y, ok := m.Issued.Year(); ok && y > 0 {
		e.year = strconv.Itoa(y)
	} else if m.Year != "" {
		e.year = m.Year
	}
	if m.DOI != "" {
		e.link = "https://doi.org/" + m.DOI
	}
	return e
}

func isArticle(cslType string) bool {
	switch cslType {
	case "article", "article-journal", "article-magazine", "article-newspaper",
		"paper-conference", "chapter":
		return true
	}
	return false
}

func (e entry) italic(s string) string {
	if s == "" || !e.html {
		return s
	}
	return "<i>" + s + "</i>"
}

func (e entry) bold(s string) string {
	if s == "" || !e.html {
		return s
	}
	return "<b>" + s + "</b>"
}

// workTitle is the title as set in running text: italic for standalone
// works, plain for articles.
func (e entry) workTitle() string {
	if e.article {
		return e.title
	}
	return e.italic(e.title)
}

func (e entry) yearOr(missing string) string {
	if e.year == "" {
		return missing
	}
	return e.year
}

// join concatenates the non-empty parts with sep.
func join(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// period terminates s with a full stop unless it already ends a sentence.
func period(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	plain := strings.TrimSuffix(strings.TrimSuffix(s, "</i>"), "</b>")
	if strings.HasSuffix(plain, ".") || strings.HasSuffix(plain, "?") || strings.HasSuffix(plain, "!") {
		return s
	}
	return s + "."
}

// initials turns "Jean Luc" into "J. L." (sep " ") or "JL" (sep "", dot false).
func initials(given string, dot bool, sep string) string {
	var out []string
	for _, part := range strings.FieldsFunc(given, func(r rune) bool { return r == ' ' || r == '.' }) {
		r, _ := utf8.DecodeRuneInString(part)
		if r == utf8.RuneError {
			continue
		}
		s := string(unicode.ToUpper(r))
		if dot {
			s += "."
		}
		out = append(out, s)
	}
	return strings.Join(out, sep)
}

func family(a metadata.Author) string {
	if a.Family == "" {
		return a.Literal
	}
	if a.Suffix != "" {
		return a.Family + " " + a.Suffix
	}
	return a.Family
}

// invertedInitials renders "Family, G. H.".
func invertedInitials(a metadata.Author) string {
	return join(", ", family(a), initials(a.Given, true, " "))
}

// invertedFull renders "Family, Given".
func invertedFull(a metadata.Author) string {
	return join(", ", family(a), a.Given)
}

// direct renders "Given Family".
func direct(a metadata.Author) string {
	return join(" ", a.Given, family(a))
}

// list joins names with sep, using last before the final name.
func list(names []string, sep, last string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], sep) + last + names[len(names)-1]
}

func mapAuthors(authors []metadata.Author, f func(metadata.Author) string) []string {
	out := make([]string, len(authors))
	for i, a := range authors {
		out[i] = f(a)
	}
	return out
}

func (e entry) volumeIssue() string {
	if e.issue == "" {
		return e.volume
	}
	return e.volume + "(" + e.issue + ")"
}

// apa: Doe, J., & Roe, R. (2019). Title. <i>Journal</i>, <i>12</i>(3), 1–10. https://doi.org/...
func apa(e entry) string {
	names := list(mapAuthors(e.authors, invertedInitials), ", ", ", & ")
	year := "(" + e.yearOr("n.d.") + ")."
	var b []string
	if names != "" {
		b = append(b, period(names), year, period(e.workTitle()))
	} else {
		b = append(b, period(e.workTitle()), year)
	}
	if e.article {
		vol := e.italic(e.volume)
		if e.issue != "" {
			vol += "(" + e.issue + ")"
		}
		b = append(b, period(join(", ", e.italic(e.container), vol, e.page)))
	} else {
		b = append(b, period(e.container), period(e.publisher))
	}
	if e.link != "" {
		if strings.Contains(e.link, "doi.org/") {
			b = append(b, e.link)
		} else {
			b = append(b, "Retrieved from "+e.link)
		}
	}
	return join(" ", b...)
}

// harvard: Doe, J. & Roe, R., 2019. Title. <i>Journal</i>, 12(3), pp.1–10. Available at: url.
func harvard(e entry) string {
	names := list(mapAuthors(e.authors, invertedInitials), ", ", " & ")
	head := join(", ", names, e.yearOr("n.d."))
	var b []string
	if e.article {
		pages := ""
		if e.page != "" {
			pages = "pp." + e.page
		}
		b = append(b, period(head), period(e.title), period(join(", ", e.italic(e.container), e.volumeIssue(), pages)))
	} else {
		b = append(b, period(head), period(join(", ", e.italic(e.title), e.container, e.publisher)))
	}
	if e.link != "" {
		b = append(b, "Available at: "+e.link+".")
	}
	return join(" ", b...)
}

// nature: Doe, J. & Roe, R. Title. <i>Journal</i> <b>12</b>, 1–10 (2019).
func nature(e entry) string {
	authors := e.authors
	etAl := ""
	if len(authors) > 5 {
		authors, etAl = authors[:1], " et al."
	}
	names := list(mapAuthors(authors, invertedInitials), ", ", " & ") + etAl
	var b []string
	b = append(b, period(names))
	if e.article {
		b = append(b, period(e.title))
		cite := join(" ", e.italic(e.container), e.bold(e.volume))
		b = append(b, join(" ", join(", ", cite, e.page), "("+e.yearOr("n.d.")+")."))
	} else {
		b = append(b, period(e.italic(e.title)))
		b = append(b, "("+join(", ", e.container, e.publisher, e.yearOr("n.d."))+").")
	}
	if e.link != "" {
		b = append(b, e.link)
	}
	return join(" ", b...)
}

// mla: Doe, Jane, and Rick Roe. “Title.” <i>Journal</i>, vol. 12, no. 3, 2019, pp. 1–10, url.
func mla(e entry) string {
	var names string
	switch n := len(e.authors); {
	case n == 1:
		names = invertedFull(e.authors[0])
	case n == 2:
		names = invertedFull(e.authors[0]) + ", and " + direct(e.authors[1])
	case n > 2:
		names = invertedFull(e.authors[0]) + ", et al"
	}
	var b []string
	b = append(b, period(names))
	var rest []string
	if e.article {
		b = append(b, "“"+period(e.title)+"”")
		rest = append(rest, e.italic(e.container))
		if e.volume != "" {
			rest = append(rest, "vol. "+e.volume)
		}
		if e.issue != "" {
			rest = append(rest, "no. "+e.issue)
		}
		rest = append(rest, e.year)
		if e.page != "" {
			rest = append(rest, "pp. "+e.page)
		}
	} else {
		b = append(b, period(e.italic(e.title)))
		rest = append(rest, e.container, e.publisher, e.year)
	}
	rest = append(rest, e.link)
	b = append(b, period(join(", ", rest...)))
	return join(" ", b...)
}

// chicago: Doe, Jane, and Rick Roe. 2019. “Title.” <i>Journal</i> 12 (3): 1–10. https://doi.org/...
func chicago(e entry) string {
	names := ""
	if len(e.authors) > 0 {
		rest := mapAuthors(e.authors[1:], direct)
		all := append([]string{invertedFull(e.authors[0])}, rest...)
		if len(all) == 2 {
			names = all[0] + ", and " + all[1]
		} else {
			names = list(all, ", ", ", and ")
		}
	}
	var b []string
	b = append(b, period(names), period(e.yearOr("n.d.")))
	if e.article {
		b = append(b, "“"+period(e.title)+"”")
		cite := join(" ", e.italic(e.container), e.volume)
		if e.issue != "" {
			cite = join(" ", cite, "("+e.issue+")")
		}
		if e.page != "" {
			cite += ": " + e.page
		}
		b = append(b, period(cite))
	} else {
		b = append(b, period(e.italic(e.title)), period(e.container), period(e.publisher))
	}
	if e.link != "" {
		b = append(b, period(e.link))
	}
	return join(" ", b...)
}

// vancouver: Doe J, Roe R. Title. Journal. 2019;12(3):1–10. Available from: url
func vancouver(e entry) string {
	authors := e.authors
	etAl := ""
	if len(authors) > 6 {
		authors, etAl = authors[:6], ", et al"
	}
	names := strings.Join(mapAuthors(authors, func(a metadata.Author) string {
		return join(" ", family(a), initials(a.Given, false, ""))
	}), ", ") + etAl
	var b []string
	b = append(b, period(names), period(e.title))
	if e.article {
		cite := e.yearOr("")
		if vi := e.volumeIssue(); vi != "" {
			cite += ";" + vi
		}
		if e.page != "" {
			cite += ":" + e.page
		}
		b = append(b, period(e.container), period(cite))
	} else {
		b = append(b, period(e.container), period(join("; ", e.publisher, e.year)))
	}
	if e.link != "" {
		b = append(b, "Available from: "+e.link)
	}
	return join(" ", b...)
}
