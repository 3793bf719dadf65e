// Package citation renders a metadata record in the supported citation
// styles.
package citation

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/matsen/citeas/internal/metadata"
	"github.com/matsen/citeas/internal/metrics"
)

// Style identifiers, in the order citations are listed.
const (
	StyleAPA       = "apa"
	StyleHarvard   = "harvard1"
	StyleNature    = "nature"
	StyleMLA       = "modern-language-association-with-url"
	StyleChicago   = "chicago-author-date"
	StyleVancouver = "vancouver"
)

// Styles lists every rendered style.
var Styles = []string{StyleAPA, StyleHarvard, StyleNature, StyleMLA, StyleChicago, StyleVancouver}

// Format selects the markup of rendered text.
type Format string

// Output formats.
const (
	FormatHTML  Format = "html"
	FormatPlain Format = "plain"
)

// Processor renders bibliography items in a style. Implementations may fail
// or panic on input they cannot handle; the Renderer isolates both.
type Processor interface {
	Render(items []*metadata.Metadata, styleID string, format Format) (string, error)
	StyleName(styleID string) string
}

// Record is one rendered citation.
type Record struct {
	ShortName string `json:"style_shortname"`
	FullName  string `json:"style_fullname"`
	Citation  string `json:"citation"`
}

// Renderer renders records in every style.
type Renderer struct {
	proc   Processor
	logger *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		r.logger = l
	}
}

// WithProcessor replaces the built-in processor.
func WithProcessor(p Processor) Option {
	return func(r *Renderer) {
		r.proc = p
	}
}

// NewRenderer creates a renderer backed by the built-in processor.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{proc: Builtin{}, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns one record per style. A style that fails to render falls
// back to the record's raw BibTeX, or to empty text.
func (r *Renderer) Render(m *metadata.Metadata) []Record {
	item := m.Clone()
	if item == nil {
		item = &metadata.Metadata{}
	}
	// Raw source text is for fallbacks only.
	item.BibTeX = ""
	item.Extra = nil

	records := make([]Record, 0, len(Styles))
	for _, style := range Styles {
		text, err := r.renderStyle(item, style)
		if err != nil {
			metrics.RenderFailuresTotal.WithLabelValues(style).Inc()
			r.logger.Warn("citation render failed", zap.String("style", style), zap.Error(err))
			text = ""
			if m != nil {
				text = m.BibTeX
			}
		} else {
			text = postProcess(style, text, string(item.Title))
		}
		records = append(records, Record{
			ShortName: style,
			FullName:  r.proc.StyleName(style),
			Citation:  text,
		})
	}
	return records
}

// Plain returns the harvard1 citation, used as the one-line summary.
func Plain(records []Record) string {
	for _, rec := range records {
		if rec.ShortName == StyleHarvard {
			return rec.Citation
		}
	}
	return ""
}

func (r *Renderer) renderStyle(item *metadata.Metadata, style string) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("processor panic: %v", p)
		}
	}()
	return r.proc.Render([]*metadata.Metadata{item}, style, FormatHTML)
}

var doubleSpace = regexp.MustCompile(` {2,}`)

// postProcess cleans processor output. APA output gets extra repairs for
// artifacts of records with missing fields.
func postProcess(style, text, title string) string {
	if style == StyleAPA {
		text = strings.ReplaceAll(text, "..", ".")
		text = doubleSpace.ReplaceAllString(text, " ")
		text = strings.TrimPrefix(text, ", ")
		text = dropRepeatedTitle(text, title)
	}
	return strings.TrimSpace(html.UnescapeString(text))
}

// dropRepeatedTitle removes a standalone "Title." sentence when the title
// also appears later in the citation.
func dropRepeatedTitle(text, title string) string {
	title = strings.TrimSpace(title)
	if title == "" || strings.Count(text, title) < 2 {
		return text
	}
	for _, sentence := range []string{"<i>" + title + "</i>. ", title + ". "} {
		if i := strings.Index(text, sentence); i >= 0 {
			rest := text[i+len(sentence):]
			if strings.Contains(rest, title) {
				return text[:i] + rest
			}
		}
	}
	return text
}
