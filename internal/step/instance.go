package step

import (
	"reflect"
	"strings"

	"github.com/matsen/citeas/internal/metadata"
)

// Instance is one node visited during a search. Its content fields are set
// once when it is created and never changed afterwards.
type Instance struct {
	Kind          *Kind
	Parent        *Instance
	Content       any
	ContentURL    string
	OriginalURL   string
	AdditionalURL *AdditionalURL
	Preview       map[string]string
	KeyWord       string
	Err           error
}

// NewInstance builds an instance of kind from an extractor output.
func NewInstance(kind *Kind, parent *Instance, out Output, err error) *Instance {
	return &Instance{
		Kind:          kind,
		Parent:        parent,
		Content:       out.Content,
		ContentURL:    out.ContentURL,
		OriginalURL:   out.OriginalURL,
		AdditionalURL: out.AdditionalURL,
		Preview:       out.Preview,
		Err:           err,
	}
}

// Name returns the kind name.
func (i *Instance) Name() string {
	if i == nil || i.Kind == nil {
		return ""
	}
	return i.Kind.Name
}

// HasContent reports whether the instance acquired non-empty content.
func (i *Instance) HasContent() bool {
	return !IsEmpty(i.Content)
}

// Input is the view of this instance handed to child extractors.
func (i *Instance) Input() Input {
	return Input{Content: i.Content, ContentURL: i.ContentURL}
}

// IsEmpty reports whether extractor content counts as "nothing found".
func IsEmpty(content any) bool {
	switch v := content.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []byte:
		return len(strings.TrimSpace(string(v))) == 0
	case *metadata.Metadata:
		return v == nil
	}
	rv := reflect.ValueOf(content)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
