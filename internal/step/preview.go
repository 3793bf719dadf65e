package step

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/matsen/citeas/internal/metadata"
)

// previewWindow is the number of characters shown on each side of a match.
const previewWindow = 500

const highlightOpen, highlightClose = `<span class="highlight">`, `</span>`

// BuildPreview renders an excerpt of source around content with the match
// highlighted. It returns "" when content does not occur in source.
func BuildPreview(url, source, part, content string) string {
	if content == "" {
		return ""
	}
	source = html.EscapeString(source)
	content = html.EscapeString(content)
	excerpt, ok := trimSource(content, source)
	if !ok {
		return ""
	}
	excerpt = strings.Replace(excerpt, content, highlightOpen+content+highlightClose, 1)
	return previewHeader(part, url) + "<br>" + excerpt
}

// BuildAuthorPreview highlights each author's given and family names.
func BuildAuthorPreview(url, source, part string, authors []metadata.Author) string {
	if len(authors) == 0 || authors[0].Family == "" {
		return ""
	}
	excerpt, ok := trimSource(authors[0].Family, source)
	if !ok {
		return ""
	}
	for _, a := range authors {
		for _, name := range []string{a.Given, a.Family} {
			if name != "" {
				excerpt = strings.Replace(excerpt, name, highlightOpen+name+highlightClose, 1)
			}
		}
	}
	return previewHeader(part, url) + "<br>" + excerpt
}

func previewHeader(part, url string) string {
	return fmt.Sprintf("<i>Snapshot of %s data found at %s.</i>", part, url)
}

func trimSource(content, source string) (string, bool) {
	idx := strings.Index(source, content)
	if idx < 0 {
		return "", false
	}
	start := max(idx-previewWindow, 0)
	end := min(idx+previewWindow, len(source))
	for start > 0 && !utf8.RuneStart(source[start]) {
		start--
	}
	for end < len(source) && !utf8.RuneStart(source[end]) {
		end++
	}
	excerpt := source[start:end]
	excerpt = strings.ReplaceAll(excerpt, "\n", "<br />")
	excerpt = strings.ReplaceAll(excerpt, "'", "")
	return excerpt, true
}
