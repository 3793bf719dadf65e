// Package step defines the kinds of resolution steps, the registry that maps
// kind names to extractors, and the per-search instances and provenance
// records built from them.
package step

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Input is what an extractor receives from its parent instance.
type Input struct {
	Content    any
	ContentURL string
}

// ContentString returns the parent content when it is text.
func (in Input) ContentString() string {
	switch v := in.Content.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return ""
}

// Output is what an extractor produces. Empty Content means nothing was found.
type Output struct {
	Content       any
	ContentURL    string
	OriginalURL   string
	AdditionalURL *AdditionalURL
	Preview       map[string]string
}

// AdditionalURL points at a secondary source consulted by a step.
type AdditionalURL struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Extractor fetches or derives the content of one step kind.
//
// Implementations return an empty Output when nothing can be extracted.
// A returned error is recorded in provenance and treated the same way.
type Extractor interface {
	Resolve(ctx context.Context, parent Input) (Output, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(ctx context.Context, parent Input) (Output, error)

// Resolve calls f.
func (f ExtractorFunc) Resolve(ctx context.Context, parent Input) (Output, error) {
	return f(ctx, parent)
}

// Link is a documentation link shown for a step kind.
type Link struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Kind describes one strategy for locating citation data.
type Kind struct {
	Name      string
	Children  []string // candidate child kinds, in priority order
	Terminal  bool
	Extractor Extractor

	// Documentation and provenance labels.
	Subject   string
	Host      string
	ProxyType string
	Links     []Link
	Intro     string
	More      string
}

// Config is the documentation view of a kind served by the steps listing.
type Config struct {
	Name    string `json:"name"`
	Links   []Link `json:"step_links"`
	Intro   string `json:"step_intro"`
	More    string `json:"step_more"`
	Subject string `json:"subject"`
}

// Registry errors.
var (
	ErrDuplicateKind = errors.New("step kind already registered")
	ErrUnknownKind   = errors.New("unknown step kind")
	ErrNoExtractor   = errors.New("step kind has no extractor")
)

// Registry maps kind names to their definitions.
type Registry struct {
	kinds map[string]*Kind
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]*Kind)}
}

// Register adds a kind. Missing labels are derived from the kind name.
func (r *Registry) Register(k Kind) error {
	if k.Name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownKind)
	}
	if _, exists := r.kinds[k.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, k.Name)
	}
	if k.Extractor == nil {
		return fmt.Errorf("%w: %s", ErrNoExtractor, k.Name)
	}
	if k.Subject == "" {
		k.Subject = SubjectFor(k.Name)
	}
	if k.Host == "" {
		k.Host = HostFor(k.Name)
	}
	if k.ProxyType == "" {
		k.ProxyType = ProxyTypeFor(k.Name)
	}
	k.Children = append([]string(nil), k.Children...)

	r.kinds[k.Name] = &k
	r.order = append(r.order, k.Name)
	return nil
}

// MustRegister is like Register but panics on error. Meant for static tables.
func (r *Registry) MustRegister(kinds ...Kind) {
	for _, k := range kinds {
		if err := r.Register(k); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the kind with the given name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Names returns kind names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Validate checks that every child reference names a registered kind and
// that terminal kinds declare no children.
func (r *Registry) Validate() error {
	var errs []error
	for _, name := range r.order {
		k := r.kinds[name]
		if k.Terminal && len(k.Children) > 0 {
			errs = append(errs, fmt.Errorf("terminal kind %s has children", name))
		}
		for _, child := range k.Children {
			if _, ok := r.kinds[child]; !ok {
				errs = append(errs, fmt.Errorf("%w: %s (child of %s)", ErrUnknownKind, child, name))
			}
		}
	}
	return errors.Join(errs...)
}

// Configs returns the documentation entries for kinds that carry intro text,
// keyed by kind name.
func (r *Registry) Configs() map[string]Config {
	configs := make(map[string]Config)
	for _, name := range r.order {
		k := r.kinds[name]
		if k.Intro == "" {
			continue
		}
		configs[name] = Config{
			Name:    k.Name,
			Links:   k.Links,
			Intro:   k.Intro,
			More:    k.More,
			Subject: k.Subject,
		}
	}
	return configs
}

// SortedConfigs returns Configs ordered by kind name.
func (r *Registry) SortedConfigs() []Config {
	m := r.Configs()
	out := make([]Config, 0, len(m))
	for _, c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
