// Package assistant implements the tools an LLM agent calls to find
// endpoints in the loaded API document: a ranked text search and a detail
// lookup by id. Both return markdown meant to be pasted straight into a
// model's context.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/apiscout/internal/metrics"
	"github.com/mark3labs/apiscout/internal/samples"
	"github.com/mark3labs/apiscout/internal/search"
	"github.com/mark3labs/apiscout/internal/spec"
)

// NoResultsText is returned, as a normal result, when nothing matches.
const NoResultsText = "No endpoints found matching your query. Try different keywords or a more general search term."

// DefaultMaxResults is how many endpoints a search returns.
const DefaultMaxResults = 5

var (
	ErrNoDocument      = errors.New("no API document loaded")
	ErrUnknownEndpoint = errors.New("unknown endpoint")
)

// DocumentSource yields the document to search. It is called once per
// request, so a reload between requests is picked up.
type DocumentSource interface {
	Current() *spec.Document
}

// Request is the input of the search tool.
type Request struct {
	Query    string `json:"query" jsonschema:"free-text description of the endpoint you are looking for"`
	Language string `json:"language,omitempty" jsonschema:"language for code samples: javascript, python, curl or go (default javascript)"`
}

// Hit summarizes one returned endpoint.
type Hit struct {
	ID      string `json:"id"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Summary string `json:"summary,omitempty"`
	Score   int    `json:"score"`
}

// Result is the output of the search tool.
type Result struct {
	Text string `json:"text"`
	Hits []Hit  `json:"hits"`
}

// Searcher answers tool calls against a DocumentSource. It holds no mutable
// state and is safe for concurrent use.
type Searcher struct {
	source     DocumentSource
	maxResults int
	language   samples.Language
	baseURL    string
	ranker     search.Ranker
	metrics    *metrics.Collector
	surface    string
}

type Option func(*Searcher)

// WithMaxResults caps the number of hits. Values below one are ignored.
func WithMaxResults(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.maxResults = n
		}
	}
}

// WithLanguage sets the sample language used when a request names none.
func WithLanguage(lang string) Option {
	return func(s *Searcher) { s.language = samples.ParseLanguage(lang) }
}

// WithBaseURL makes samples target baseURL instead of the document servers.
func WithBaseURL(u string) Option { return func(s *Searcher) { s.baseURL = u } }

// WithMetrics records searches under surface ("mcp", "http", "cli").
func WithMetrics(m *metrics.Collector, surface string) Option {
	return func(s *Searcher) {
		s.metrics = m
		s.surface = surface
	}
}

func New(source DocumentSource, opts ...Option) *Searcher {
	s := &Searcher{
		source:     source,
		maxResults: DefaultMaxResults,
		language:   samples.DefaultLanguage,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search ranks the document's endpoints against req.Query and formats the
// best ones. A query that matches nothing yields NoResultsText and no error.
func (s *Searcher) Search(ctx context.Context, req Request) (*Result, error) {
	doc, err := s.document(ctx)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	var top []search.Hit
	for _, h := range s.ranker.RankHits(doc.Endpoints, req.Query) {
		if h.Score <= 0 {
			continue
		}
		top = append(top, h)
		if len(top) == s.maxResults {
			break
		}
	}
	res := &Result{Hits: make([]Hit, 0, len(top))}
	for _, h := range top {
		res.Hits = append(res.Hits, Hit{
			ID:      h.Endpoint.ID,
			Method:  string(h.Endpoint.Method),
			Path:    h.Endpoint.Path,
			Summary: h.Endpoint.Summary,
			Score:   h.Score,
		})
	}
	if len(top) == 0 {
		res.Text = NoResultsText
	} else {
		res.Text = s.formatHits(req, top)
	}
	s.metrics.RecordSearch(s.surface, len(top), time.Since(start))
	return res, nil
}

func (s *Searcher) document(ctx context.Context) (*spec.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.source == nil {
		return nil, ErrNoDocument
	}
	doc := s.source.Current()
	if doc == nil {
		return nil, ErrNoDocument
	}
	return doc, nil
}

func (s *Searcher) languageFor(requested string) samples.Language {
	if strings.TrimSpace(requested) == "" {
		return s.language
	}
	return samples.ParseLanguage(requested)
}

func (s *Searcher) formatHits(req Request, hits []search.Hit) string {
	lang := s.languageFor(req.Language)
	var b strings.Builder
	fmt.Fprintf(&b, "# Search Results for \"%s\"\n\n", req.Query)
	for _, h := range hits {
		ep := h.Endpoint
		fmt.Fprintf(&b, "## %s %s\n\n", ep.Method, ep.Path)
		if text := firstNonEmpty(ep.Description, ep.Summary); text != "" {
			b.WriteString(text + "\n\n")
		}
		writeParameters(&b, ep.Parameters)
		fmt.Fprintf(&b, "### Example Code (%s):\n\n", lang)
		fmt.Fprintf(&b, "```%s\n%s\n```\n\n", lang.Fence(), samples.Generate(lang, ep, samples.Options{BaseURL: s.baseURL}))
		b.WriteString("---\n\n")
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeParameters(b *strings.Builder, params []*spec.Parameter) {
	if len(params) == 0 {
		return
	}
	b.WriteString("### Parameters:\n\n")
	for _, p := range params {
		required := ""
		if p.Required {
			required = " [Required]"
		}
		desc := firstNonEmpty(p.Description, "No description available")
		fmt.Fprintf(b, "- **%s** (%s)%s: %s\n", p.Name, paramType(p), required, oneLine(desc))
	}
	b.WriteString("\n")
}

func paramType(p *spec.Parameter) string {
	switch {
	case p.Schema == nil:
		return "object"
	case p.Schema.Type != "":
		return p.Schema.Type
	case p.Schema.Kind == spec.KindArray:
		return "array"
	}
	return "object"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
