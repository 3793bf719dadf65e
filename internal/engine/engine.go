// Package engine runs the depth-first search over registered step kinds.
//
// The search keeps an explicit stack of frames. Each frame pairs a visited
// instance with the child kinds it has not tried yet. A new instance is
// always pushed right after it is created, so popping an exhausted frame
// always returns to its structural parent. The search stops as soon as the
// most recently created instance is a terminal kind with content, even if
// ancestors still have untried siblings: the first terminal found wins.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matsen/citeas/internal/metadata"
	"github.com/matsen/citeas/internal/metrics"
	"github.com/matsen/citeas/internal/step"
)

// DefaultMaxSteps bounds the number of instances a single search may create.
const DefaultMaxSteps = 500

// ErrUnknownRoot is returned when the seed names an unregistered kind.
var ErrUnknownRoot = errors.New("unknown root step kind")

// Seed is the classified starting point of a search.
type Seed struct {
	Kind       string
	Content    any
	ContentURL string
	KeyWord    string
	Identifier string // original user input, used for the fallback record
}

// Result is the outcome of one search.
type Result struct {
	ID         string
	Metadata   *metadata.Metadata // raw terminal content; nil only before normalization on fallback
	Terminal   *step.Instance     // nil when the search exhausted
	Path       []*step.Instance   // every instance created, in creation order
	Provenance []step.Provenance
	Exhausted  bool
	Duration   time.Duration
}

// PathURLs returns the content URLs from the root down to the terminal.
func (r *Result) PathURLs() []string {
	if r.Terminal == nil {
		return nil
	}
	var chain []*step.Instance
	for inst := r.Terminal; inst != nil; inst = inst.Parent {
		chain = append(chain, inst)
	}
	urls := make([]string, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		urls = append(urls, chain[i].ContentURL)
	}
	return urls
}

// Engine resolves seeds against a registry.
type Engine struct {
	registry *step.Registry
	logger   *zap.Logger
	maxSteps int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// New creates an engine over registry.
func New(registry *step.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		logger:   zap.NewNop(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type frame struct {
	inst  *step.Instance
	queue []string
}

// Resolve runs the search. It only fails when the seed kind is unknown;
// exhaustion and context expiry produce the fallback record instead.
func (e *Engine) Resolve(ctx context.Context, seed Seed) (*Result, error) {
	rootKind, ok := e.registry.Lookup(seed.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoot, seed.Kind)
	}

	start := time.Now()
	res := &Result{ID: uuid.NewString()}
	log := e.logger.With(zap.String("resolution_id", res.ID), zap.String("identifier", seed.Identifier))

	root := &step.Instance{
		Kind:       rootKind,
		Content:    seed.Content,
		ContentURL: seed.ContentURL,
		KeyWord:    seed.KeyWord,
	}
	res.Path = append(res.Path, root)
	res.Provenance = append(res.Provenance, root.Provenance())

	stack := []*frame{newFrame(root)}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			log.Info("resolution deadline reached", zap.Error(err), zap.Int("steps", len(res.Path)))
			break
		}
		if len(res.Path) >= e.maxSteps {
			log.Warn("resolution step limit reached", zap.Int("max_steps", e.maxSteps))
			break
		}

		top := stack[len(stack)-1]
		if !top.inst.HasContent() || len(top.queue) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}

		name := top.queue[0]
		top.queue = top.queue[1:]
		kind, ok := e.registry.Lookup(name)
		if !ok {
			log.Warn("skipping unregistered child kind", zap.String("step", name))
			continue
		}

		child := e.attempt(ctx, log, kind, top.inst)
		res.Path = append(res.Path, child)
		res.Provenance = append(res.Provenance, child.Provenance())

		if kind.Terminal && child.HasContent() {
			if m, ok := child.Content.(*metadata.Metadata); ok {
				res.Terminal = child
				res.Metadata = m
				break
			}
			log.Warn("terminal step returned non-metadata content", zap.String("step", name))
		}
		stack = append(stack, newFrame(child))
	}

	res.Duration = time.Since(start)
	if res.Terminal == nil {
		res.Exhausted = true
		res.Metadata = &metadata.Metadata{Type: metadata.DefaultType, URL: seed.Identifier}
		res.Provenance = append(res.Provenance, step.FallbackProvenance(res.Path[len(res.Path)-1], seed.Identifier))
		metrics.ResolutionsTotal.WithLabelValues("exhausted").Inc()
		log.Info("resolution exhausted", zap.Int("steps", len(res.Path)), zap.Duration("duration", res.Duration))
	} else {
		metrics.ResolutionsTotal.WithLabelValues("found").Inc()
		log.Info("resolution found metadata",
			zap.String("terminal", res.Terminal.Name()),
			zap.Int("steps", len(res.Path)),
			zap.Duration("duration", res.Duration))
	}
	metrics.ResolutionDuration.Observe(res.Duration.Seconds())

	return res, nil
}

func newFrame(inst *step.Instance) *frame {
	var queue []string
	if inst.Kind != nil && !inst.Kind.Terminal {
		queue = append(queue, inst.Kind.Children...)
	}
	return &frame{inst: inst, queue: queue}
}

// attempt runs one extractor, converting errors and panics into an
// instance without content.
func (e *Engine) attempt(ctx context.Context, log *zap.Logger, kind *step.Kind, parent *step.Instance) (inst *step.Instance) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("extractor panic: %v", r)
			log.Error("step panicked", zap.String("step", kind.Name), zap.Any("panic", r))
			inst = step.NewInstance(kind, parent, step.Output{}, err)
			metrics.StepsTotal.WithLabelValues(kind.Name, string(step.OutcomeFailure)).Inc()
		}
	}()

	out, err := kind.Extractor.Resolve(ctx, parent.Input())
	if err != nil {
		log.Debug("step failed", zap.String("step", kind.Name), zap.String("parent", parent.Name()), zap.Error(err))
		out = step.Output{ContentURL: out.ContentURL}
	}
	inst = step.NewInstance(kind, parent, out, err)

	outcome := step.OutcomeFailure
	if inst.HasContent() {
		outcome = step.OutcomeSuccess
	}
	log.Debug("step attempted",
		zap.String("step", kind.Name),
		zap.String("parent", parent.Name()),
		zap.String("content_url", inst.ContentURL),
		zap.String("outcome", string(outcome)))
	metrics.StepsTotal.WithLabelValues(kind.Name, string(outcome)).Inc()
	return inst
}
