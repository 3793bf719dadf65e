package metadata

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultType is used when a source does not report a record type.
const DefaultType = "misc"

// uppercaseThreshold is the share of uppercase letters above which a title
// is treated as shouting and recased.
const uppercaseThreshold = 0.75

var titleCaser = cases.Title(language.English)

// Normalize returns a cleaned copy of raw. pathURLs are the content URLs of
// the resolution path in visiting order; the last non-empty one becomes the
// record URL. raw is never modified.
func Normalize(raw *Metadata, pathURLs []string) *Metadata {
	m := raw.Clone()
	if m == nil {
		m = &Metadata{}
	}

	for i, a := range m.Author {
		if a.Family == "" && a.Given == "" && a.Literal != "" {
			m.Author[i] = ParseName(a.Literal)
		}
	}

	m.Year = ""
	if y, ok := m.Issued.Year(); ok && y > 0 {
		m.Year = strconv.Itoa(y)
	}

	m.Title = Text(strings.Join(strings.Fields(string(m.Title)), " "))
	m.Title = Text(fixShouting(string(m.Title)))
	m.ContainerTitle = Text(fixShouting(string(m.ContainerTitle)))

	if strings.TrimSpace(m.Type) == "" {
		m.Type = DefaultType
	}
	if strings.Trim(string(m.Page), " -–") == "" {
		m.Page = ""
	}

	for i := len(pathURLs) - 1; i >= 0; i-- {
		if pathURLs[i] != "" {
			m.URL = pathURLs[i]
			break
		}
	}

	return m
}

// fixShouting recases s when it is mostly uppercase letters.
func fixShouting(s string) string {
	if IsMostlyUpper(s) {
		return titleCaser.String(strings.ToLower(s))
	}
	return s
}

// IsMostlyUpper reports whether more than 75% of the letters in s are uppercase.
func IsMostlyUpper(s string) bool {
	var letters, upper int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return false
	}
	return float64(upper)/float64(letters) > uppercaseThreshold
}
