// Package catalog holds the API document currently being served. Loads may
// run concurrently with each other and with readers: readers always see a
// complete document, and when loads overlap the one started last wins.
package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mark3labs/apiscout/internal/metrics"
	"github.com/mark3labs/apiscout/internal/spec"
)

// ErrSuperseded is returned by a load that finished after a load started
// later than it. The returned document is valid but was not published.
var ErrSuperseded = errors.New("catalog: superseded by a newer load")

type entry struct {
	doc      *spec.Document
	source   string
	loadedAt time.Time
}

// Catalog is safe for concurrent use.
type Catalog struct {
	current atomic.Pointer[entry]
	seq     atomic.Uint64

	mu      sync.Mutex
	applied uint64

	group singleflight.Group

	logger    *zerolog.Logger
	metrics   *metrics.Collector
	loadOpts  []spec.Option
	buildOpts []spec.BuildOption
	strict    bool
	now       func() time.Time
}

type Option func(*Catalog)

func WithLogger(l *zerolog.Logger) Option { return func(c *Catalog) { c.logger = l } }

func WithMetrics(m *metrics.Collector) Option { return func(c *Catalog) { c.metrics = m } }

// WithLoadOptions tunes fetching and reading of sources.
func WithLoadOptions(opts ...spec.Option) Option {
	return func(c *Catalog) { c.loadOpts = append(c.loadOpts, opts...) }
}

// WithBuildOptions filters and tunes normalization.
func WithBuildOptions(opts ...spec.BuildOption) Option {
	return func(c *Catalog) { c.buildOpts = append(c.buildOpts, opts...) }
}

// WithStrict validates every document before normalizing it. Validation
// findings are logged; they never fail the load.
func WithStrict(strict bool) Option { return func(c *Catalog) { c.strict = strict } }

func New(opts ...Option) *Catalog {
	nop := zerolog.Nop()
	c := &Catalog{logger: &nop, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the published document, or nil before the first
// successful load.
func (c *Catalog) Current() *spec.Document {
	if e := c.current.Load(); e != nil {
		return e.doc
	}
	return nil
}

// Source describes where the published document came from and when it was
// loaded. It returns an empty source before the first load.
func (c *Catalog) Source() (string, time.Time) {
	if e := c.current.Load(); e != nil {
		return e.source, e.loadedAt
	}
	return "", time.Time{}
}

// LoadSource reads a file path or http(s) URL, normalizes it and publishes
// the result. Concurrent calls for the same input share one load, which runs
// detached from any single caller's cancellation; a caller whose ctx ends
// stops waiting while the others still receive the result.
func (c *Catalog) LoadSource(ctx context.Context, input string) (*spec.Document, error) {
	input = strings.TrimSpace(input)
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(input, func() (any, error) {
		seq := c.seq.Add(1)
		start := time.Now()
		doc, err := c.loadSource(loadCtx, input)
		c.metrics.RecordLoad(sourceKind(input), err, time.Since(start))
		if err != nil {
			c.logger.Error().Err(err).Str("source", input).Msg("load failed")
			return nil, err
		}
		return doc, c.publish(seq, doc, input)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.logger.Debug().Str("source", input).Msg("joined in-flight load")
		}
		doc, _ := res.Val.(*spec.Document)
		return doc, res.Err
	}
}

func (c *Catalog) loadSource(ctx context.Context, input string) (*spec.Document, error) {
	raw, err := spec.Load(ctx, input, c.loadOpts...)
	if err != nil {
		return nil, err
	}
	return c.build(ctx, raw)
}

// LoadBytes parses an uploaded or pasted document and publishes it.
// location only labels errors and log lines.
func (c *Catalog) LoadBytes(ctx context.Context, data []byte, location string) (*spec.Document, error) {
	seq := c.seq.Add(1)
	start := time.Now()
	raw, err := spec.Parse(data, location)
	var doc *spec.Document
	if err == nil {
		doc, err = c.build(ctx, raw)
	}
	c.metrics.RecordLoad("bytes", err, time.Since(start))
	if err != nil {
		c.logger.Error().Err(err).Str("source", location).Msg("load failed")
		return nil, err
	}
	return doc, c.publish(seq, doc, location)
}

func (c *Catalog) build(ctx context.Context, raw *spec.Object) (*spec.Document, error) {
	if c.strict {
		for _, issue := range spec.Lint(ctx, raw) {
			ev := c.logger.Warn().Str("code", string(issue.Code))
			if issue.JSONPointer != "" {
				ev = ev.Str("pointer", issue.JSONPointer)
			}
			ev.Msg(issue.Message)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := append([]spec.BuildOption{spec.WithLogger(c.logger)}, c.buildOpts...)
	return spec.Normalize(raw, opts...)
}

// publish stores doc unless a load that started later has already been
// published.
func (c *Catalog) publish(seq uint64, doc *spec.Document, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if seq < c.applied {
		c.logger.Debug().Str("source", source).Uint64("seq", seq).Msg("discarding superseded load")
		return ErrSuperseded
	}
	c.applied = seq
	c.current.Store(&entry{doc: doc, source: source, loadedAt: c.now()})
	c.metrics.SetDocument(len(doc.Endpoints), len(doc.Warnings))
	c.logger.Info().
		Str("source", source).
		Str("title", doc.Title).
		Int("endpoints", len(doc.Endpoints)).
		Int("categories", len(doc.Categories)).
		Int("warnings", len(doc.Warnings)).
		Msg("document loaded")
	return nil
}

func sourceKind(input string) string {
	lower := strings.ToLower(input)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return "url"
	}
	return "file"
}
