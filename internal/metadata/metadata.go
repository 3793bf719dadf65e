// Package metadata defines the bibliographic record produced by a resolution.
//
// Field names follow CSL-JSON so that records fetched from DOI content
// negotiation decode directly into a Metadata value.
package metadata

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Metadata is a CSL-JSON shaped bibliographic record.
type Metadata struct {
	Type           string   `json:"type"`
	Title          Text     `json:"title,omitempty"`
	Author         []Author `json:"author,omitempty"`
	Issued         *Date    `json:"issued,omitempty"`
	Year           string   `json:"year,omitempty"` // Display year, derived from Issued
	ContainerTitle Text     `json:"container-title,omitempty"`
	URL            string   `json:"URL,omitempty"`
	DOI            string   `json:"DOI,omitempty"`
	Publisher      Text     `json:"publisher,omitempty"`
	Volume         Text     `json:"volume,omitempty"`
	Issue          Text     `json:"issue,omitempty"`
	Page           Text     `json:"page,omitempty"`
	Note           Text     `json:"note,omitempty"`
	Version        Text     `json:"version,omitempty"`
	Eprint         Text     `json:"eprint,omitempty"`
	ISBN           Text     `json:"ISBN,omitempty"`

	// BibTeX holds the raw entry a record was parsed from. It is kept for
	// fallback rendering and never handed to the citation processor.
	BibTeX string `json:"bibtex,omitempty"`

	// Extra carries source fields with no CSL counterpart.
	Extra map[string]string `json:"extra,omitempty"`
}

// Author is a CSL name. Literal holds an unsplit name until normalization.
type Author struct {
	Family  string `json:"family,omitempty"`
	Given   string `json:"given,omitempty"`
	Suffix  string `json:"suffix,omitempty"`
	Literal string `json:"literal,omitempty"`
}

// IsEmpty reports whether the author carries no name at all.
func (a Author) IsEmpty() bool {
	return a.Family == "" && a.Given == "" && a.Literal == ""
}

// Clone returns a deep copy of m.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := *m
	if m.Author != nil {
		c.Author = append([]Author(nil), m.Author...)
	}
	if m.Issued != nil {
		c.Issued = m.Issued.Clone()
	}
	if m.Extra != nil {
		c.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = v
		}
	}
	return &c
}

// Text is a string field that tolerates the shapes seen in the wild:
// plain strings, arrays of strings (first non-empty wins), and numbers.
type Text string

// String returns the text value.
func (t Text) String() string { return string(t) }

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '[':
		var items []Text
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*t = ""
		for _, item := range items {
			if strings.TrimSpace(string(item)) != "" {
				*t = item
				break
			}
		}
	default:
		// Numbers and booleans keep their literal form.
		*t = Text(string(data))
	}
	return nil
}

// Date is a CSL date. Only date-parts are interpreted.
type Date struct {
	DateParts [][]int `json:"date-parts"`
	Raw       string  `json:"raw,omitempty"`
}

// NewYearDate builds a Date holding only a year.
func NewYearDate(year int) *Date {
	return &Date{DateParts: [][]int{{year}}}
}

// Clone returns a deep copy of d.
func (d *Date) Clone() *Date {
	if d == nil {
		return nil
	}
	c := &Date{Raw: d.Raw, DateParts: make([][]int, len(d.DateParts))}
	for i, parts := range d.DateParts {
		c.DateParts[i] = append([]int(nil), parts...)
	}
	return c
}

// Year returns the first component of the first date-parts entry.
func (d *Date) Year() (int, bool) {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0, false
	}
	return d.DateParts[0][0], true
}

// UnmarshalJSON accepts date-parts made of numbers or numeric strings.
// Components that cannot be read end their row, so a malformed year
// leaves the row empty rather than failing the whole record.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw struct {
		DateParts [][]json.RawMessage `json:"date-parts"`
		Raw       string              `json:"raw"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// Some sources send a bare date string.
		var s string
		if json.Unmarshal(data, &s) == nil {
			d.Raw = s
			d.DateParts = nil
			if len(s) >= 4 {
				if y, err := strconv.Atoi(s[:4]); err == nil {
					d.DateParts = [][]int{{y}}
				}
			}
			return nil
		}
		return err
	}

	d.Raw = raw.Raw
	d.DateParts = make([][]int, 0, len(raw.DateParts))
	for _, row := range raw.DateParts {
		parts := make([]int, 0, len(row))
		for _, elem := range row {
			n, ok := parseDatePart(elem)
			if !ok {
				break
			}
			parts = append(parts, n)
		}
		d.DateParts = append(d.DateParts, parts)
	}
	return nil
}

func parseDatePart(elem json.RawMessage) (int, bool) {
	if bytes.Equal(bytes.TrimSpace(elem), []byte("null")) {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(elem, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(elem, &s); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
