// Package search ranks normalized endpoints against free-text queries and
// groups the result by category.
package search

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mark3labs/apiscout/internal/spec"
)

// Weights holds the score each kind of field match contributes.
type Weights struct {
	Path              int
	Summary           int
	OperationID       int
	Tag               int
	ParamName         int
	ResponseCode      int
	SchemaPropName    int
	Description       int
	SchemaDescription int
	Other             int
	// MultiTermBonus is added once per distinct matched term when a query
	// with several terms matches more than one of them.
	MultiTermBonus int
}

// DefaultWeights is used by Rank, RankHits and Score.
var DefaultWeights = Weights{
	Path:              15,
	Summary:           10,
	OperationID:       10,
	Tag:               8,
	ParamName:         7,
	ResponseCode:      6,
	SchemaPropName:    5,
	Description:       2,
	SchemaDescription: 1,
	Other:             1,
	MultiTermBonus:    5,
}

// MinTermLength is the shortest term, in runes, that takes part in scoring.
const MinTermLength = 2

// Terms lowercases query, splits it on whitespace and '/' and drops terms
// shorter than MinTermLength. Repeated terms are kept; each one scores.
func Terms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return r == '/' || unicode.IsSpace(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= MinTermLength {
			out = append(out, f)
		}
	}
	return out
}

// Hit is one ranked endpoint.
type Hit struct {
	Endpoint *spec.Endpoint `json:"endpoint"`
	Score    int            `json:"score"`
}

// Ranker scores endpoints with a fixed set of weights. The zero value uses
// DefaultWeights.
type Ranker struct {
	Weights *Weights
}

func (r Ranker) weights() *Weights {
	if r.Weights == nil {
		return &DefaultWeights
	}
	return r.Weights
}

// Rank returns the endpoints matching query, best first. See RankHits.
func Rank(endpoints []*spec.Endpoint, query string) []*spec.Endpoint {
	return Ranker{}.Rank(endpoints, query)
}

// RankHits scores endpoints against query with DefaultWeights.
func RankHits(endpoints []*spec.Endpoint, query string) []Hit {
	return Ranker{}.RankHits(endpoints, query)
}

// Score scores one endpoint with DefaultWeights.
func Score(ep *spec.Endpoint, terms []string) int {
	return Ranker{}.Score(ep, terms)
}

// Rank is RankHits without the scores.
func (r Ranker) Rank(endpoints []*spec.Endpoint, query string) []*spec.Endpoint {
	hits := r.RankHits(endpoints, query)
	out := make([]*spec.Endpoint, len(hits))
	for i, h := range hits {
		out[i] = h.Endpoint
	}
	return out
}

// RankHits scores every endpoint and returns those with a positive score,
// sorted by score descending and then by path ascending. Endpoints with the
// same score and path keep their input order. A query with no usable terms
// returns every endpoint, unscored, in input order.
func (r Ranker) RankHits(endpoints []*spec.Endpoint, query string) []Hit {
	terms := Terms(query)
	if len(terms) == 0 {
		out := make([]Hit, len(endpoints))
		for i, ep := range endpoints {
			out[i] = Hit{Endpoint: ep}
		}
		return out
	}
	hits := make([]Hit, 0, len(endpoints))
	for _, ep := range endpoints {
		if s := r.Score(ep, terms); s > 0 {
			hits = append(hits, Hit{Endpoint: ep, Score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Endpoint.Path < hits[j].Endpoint.Path
	})
	return hits
}

// Score sums field weights for every term found in ep. Terms must already be
// lowercased, as returned by Terms. A term found in several fields counts for
// each of them. The multi-term bonus counts distinct matched terms.
func (r Ranker) Score(ep *spec.Endpoint, terms []string) int {
	if ep == nil {
		return 0
	}
	w := r.weights()
	total := 0
	matched := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		s := scoreTerm(w, ep, term)
		if s > 0 {
			matched[term] = struct{}{}
		}
		total += s
	}
	if len(terms) > 1 && len(matched) > 1 {
		total += w.MultiTermBonus * len(matched)
	}
	return total
}

func scoreTerm(w *Weights, ep *spec.Endpoint, term string) int {
	s := 0
	add := func(text string, weight int) {
		if text != "" && contains(text, term) {
			s += weight
		}
	}

	add(ep.Path, w.Path)
	add(ep.Summary, w.Summary)
	add(ep.OperationID, w.OperationID)
	add(ep.Description, w.Description)
	for _, tag := range ep.Tags {
		add(tag, w.Tag)
	}
	for _, p := range ep.Parameters {
		add(p.Name, w.ParamName)
		add(p.Description, w.Description)
		s += scoreSchema(w, p.Schema, term)
	}
	if ep.RequestBody != nil {
		add(ep.RequestBody.Description, w.Description)
		s += scoreSchema(w, ep.BodySchema(), term)
	}
	for _, resp := range ep.Responses {
		add(resp.Status, w.ResponseCode)
		add(resp.Description, w.Description)
		if mt := spec.PreferredMedia(resp.Content); mt != nil {
			s += scoreSchema(w, mt.Schema, term)
		}
	}
	return s
}

// scoreSchema scores the top level of a schema: its description and the
// names and descriptions of its properties. Arrays are looked through to
// their items. Anything deeper counts once, with the Other weight.
func scoreSchema(w *Weights, schema *spec.Schema, term string) int {
	schema = unwrapArrays(schema)
	if schema == nil {
		return 0
	}
	s := 0
	if contains(schema.Description, term) {
		s += w.SchemaDescription
	}
	for _, p := range schema.Properties {
		if contains(p.Name, term) {
			s += w.SchemaPropName
		}
		if p.Schema != nil && contains(p.Schema.Description, term) {
			s += w.SchemaDescription
		}
	}
	if nestedMention(schema, term) {
		s += w.Other
	}
	return s
}

func unwrapArrays(s *spec.Schema) *spec.Schema {
	for i := 0; s != nil && s.Kind == spec.KindArray && i < maxSchemaDepth; i++ {
		s = s.Items
	}
	return s
}

// maxSchemaDepth bounds walks over schema trees.
const maxSchemaDepth = 32

// nestedMention reports whether term occurs in schema text that scoreSchema
// does not look at directly: titles, enum values, examples, references and
// anything below the top-level properties.
func nestedMention(root *spec.Schema, term string) bool {
	seen := make(map[*spec.Schema]struct{})
	var walk func(s *spec.Schema, depth int, skipDesc bool) bool
	walk = func(s *spec.Schema, depth int, skipDesc bool) bool {
		if s == nil || depth > maxSchemaDepth {
			return false
		}
		if !skipDesc {
			if _, ok := seen[s]; ok {
				return false
			}
			seen[s] = struct{}{}
			if contains(s.Description, term) {
				return true
			}
		}
		if contains(s.Title, term) || contains(s.Ref, term) {
			return true
		}
		for _, e := range s.Enum {
			if str, ok := e.(string); ok && contains(str, term) {
				return true
			}
		}
		if str, ok := s.Example.(string); ok && contains(str, term) {
			return true
		}
		for _, p := range s.Properties {
			// Top-level names and descriptions are scored by scoreSchema.
			if depth > 0 && contains(p.Name, term) {
				return true
			}
			if walk(p.Schema, depth+1, depth == 0) {
				return true
			}
		}
		if walk(s.Items, depth+1, false) {
			return true
		}
		for _, alt := range s.Alternatives {
			if walk(alt, depth+1, false) {
				return true
			}
		}
		return false
	}
	return walk(root, 0, true)
}

func contains(text, term string) bool {
	if text == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), term)
}
