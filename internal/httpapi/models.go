package httpapi

import (
	"html"
	"time"

	"github.com/mark3labs/apiscout/internal/search"
	"github.com/mark3labs/apiscout/internal/spec"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Loaded  bool   `json:"loaded"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Pointer string `json:"pointer,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

type CategoryInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	ExternalDocs string `json:"externalDocs,omitempty"`
	Endpoints    int    `json:"endpoints"`
}

// DocumentInfo summarizes the loaded document without its endpoints.
type DocumentInfo struct {
	OpenAPI     string         `json:"openapi"`
	Title       string         `json:"title"`
	Version     string         `json:"version"`
	Description string         `json:"description,omitempty"`
	Servers     []spec.Server  `json:"servers,omitempty"`
	Categories  []CategoryInfo `json:"categories"`
	Endpoints   int            `json:"endpoints"`
	Warnings    []string       `json:"warnings"`
	Source      string         `json:"source,omitempty"`
	LoadedAt    *time.Time     `json:"loadedAt,omitempty"`
}

// EndpointSummary is one row of the interactive list. Highlight is the
// HTML-escaped summary with matched terms wrapped in <mark> tags, set when a
// query was given.
type EndpointSummary struct {
	ID         string   `json:"id"`
	Method     string   `json:"method"`
	Path       string   `json:"path"`
	Summary    string   `json:"summary,omitempty"`
	Highlight  string   `json:"highlight,omitempty"`
	Tags       []string `json:"tags"`
	Deprecated bool     `json:"deprecated,omitempty"`
	Score      int      `json:"score"`
}

type GroupView struct {
	Category  CategoryInfo      `json:"category"`
	Endpoints []EndpointSummary `json:"endpoints"`
}

type SearchRequest struct {
	Query    string `json:"query" description:"free-text query"`
	Language string `json:"language,omitempty" description:"sample language: javascript, python, curl or go"`
}

func documentInfo(doc *spec.Document, source string, loadedAt time.Time) DocumentInfo {
	info := DocumentInfo{
		OpenAPI:     doc.OpenAPI,
		Title:       doc.Title,
		Version:     doc.Version,
		Description: doc.Description,
		Servers:     doc.Servers,
		Categories:  make([]CategoryInfo, 0, len(doc.Categories)),
		Endpoints:   len(doc.Endpoints),
		Warnings:    doc.WarningMessages(),
		Source:      source,
	}
	if !loadedAt.IsZero() {
		info.LoadedAt = &loadedAt
	}
	for _, c := range doc.Categories {
		info.Categories = append(info.Categories, categoryInfo(c, search.CountInCategory(doc.Endpoints, c.Name)))
	}
	return info
}

func categoryInfo(c *spec.Category, count int) CategoryInfo {
	return CategoryInfo{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		ExternalDocs: c.ExternalDocs,
		Endpoints:    count,
	}
}

func groupViews(groups []search.Group, scores map[*spec.Endpoint]int, query string) []GroupView {
	out := make([]GroupView, 0, len(groups))
	for _, g := range groups {
		view := GroupView{
			Category:  categoryInfo(g.Category, len(g.Endpoints)),
			Endpoints: make([]EndpointSummary, 0, len(g.Endpoints)),
		}
		for _, ep := range g.Endpoints {
			row := EndpointSummary{
				ID:         ep.ID,
				Method:     string(ep.Method),
				Path:       ep.Path,
				Summary:    ep.Summary,
				Tags:       ep.Tags,
				Deprecated: ep.Deprecated,
				Score:      scores[ep],
			}
			if query != "" {
				row.Highlight = search.HighlightFunc(ep.Summary, query, "<mark>", "</mark>", html.EscapeString)
			}
			view.Endpoints = append(view.Endpoints, row)
		}
		out = append(out, view)
	}
	return out
}
