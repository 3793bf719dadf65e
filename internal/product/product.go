// Package product turns a raw identifier into the full citation bundle:
// classification, the step search, normalization, citations and exports.
package product

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/matsen/citeas/internal/citation"
	"github.com/matsen/citeas/internal/classify"
	"github.com/matsen/citeas/internal/engine"
	"github.com/matsen/citeas/internal/export"
	"github.com/matsen/citeas/internal/metadata"
	"github.com/matsen/citeas/internal/step"
)

// DefaultResolveTimeout bounds a whole resolution.
const DefaultResolveTimeout = 60 * time.Second

// Bundle is the response for one identifier.
type Bundle struct {
	ID         string             `json:"id"`
	URL        string             `json:"url"`
	Name       string             `json:"name"`
	DOI        string             `json:"doi"`
	Citations  []citation.Record  `json:"citations"`
	Exports    []export.Record    `json:"exports"`
	Metadata   *metadata.Metadata `json:"metadata"`
	Provenance []step.Provenance  `json:"provenance"`
	Exhausted  bool               `json:"-"`
	Kind       classify.Kind      `json:"-"`
}

// PlainCitation is the one-line harvard1 citation.
func (b *Bundle) PlainCitation() string {
	return citation.Plain(b.Citations)
}

// Service builds bundles.
type Service struct {
	classifier *classify.Classifier
	engine     *engine.Engine
	renderer   *citation.Renderer
	timeout    time.Duration
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout sets the whole-resolution deadline. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithRenderer replaces the default citation renderer.
func WithRenderer(r *citation.Renderer) Option {
	return func(s *Service) {
		s.renderer = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New creates a Service.
func New(c *classify.Classifier, e *engine.Engine, opts ...Option) *Service {
	s := &Service{
		classifier: c,
		engine:     e,
		timeout:    DefaultResolveTimeout,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.renderer == nil {
		s.renderer = citation.NewRenderer(citation.WithLogger(s.logger))
	}
	return s
}

// Resolve classifies identifier and searches for its citation metadata.
// Unsupported input fails with an error matching classify.IsUnsupported;
// a search that finds nothing still yields a bundle built on the fallback
// record.
func (s *Service) Resolve(ctx context.Context, identifier string) (*Bundle, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	cl, err := s.classifier.Classify(ctx, identifier)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.Resolve(ctx, engine.Seed{
		Kind:       cl.RootStep,
		Content:    cl.Content,
		ContentURL: cl.ContentURL,
		KeyWord:    cl.KeyWord,
		Identifier: cl.Input,
	})
	if err != nil {
		return nil, err
	}

	m := metadata.Normalize(res.Metadata, res.PathURLs())
	b := &Bundle{
		ID:         res.ID,
		URL:        displayURL(cl),
		DOI:        m.DOI,
		Citations:  s.renderer.Render(m),
		Exports:    export.All(m),
		Metadata:   m,
		Provenance: res.Provenance,
		Exhausted:  res.Exhausted,
		Kind:       cl.Kind,
	}
	b.Name = string(m.Title)
	if b.Name == "" {
		b.Name = b.URL
	}
	return b, nil
}

// displayURL is the URL the search started from, else the raw input.
func displayURL(cl classify.Classification) string {
	if cl.ContentURL != "" {
		return cl.ContentURL
	}
	return cl.Input
}
