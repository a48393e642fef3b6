package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/apiscout/internal/assistant"
	"github.com/mark3labs/apiscout/internal/catalog"
	"github.com/mark3labs/apiscout/internal/metrics"
	"github.com/mark3labs/apiscout/internal/spec"
)

const storeSpec = `openapi: 3.0.0
info: { title: Store, version: "3" }
tags:
  - name: pets
    description: Pet operations
  - name: orders
paths:
  /orders:
    get:
      tags: [orders]
      operationId: listOrders
      summary: List <b>orders</b>
      responses: { "200": { description: ok } }
  /pets:
    get:
      tags: [pets]
      operationId: listPets
      summary: List pets
      responses: { "200": { description: ok } }
  /pets/{petId}:
    get:
      tags: [pets]
      operationId: getPet
      summary: Get one pet
      parameters:
        - { name: petId, in: path, required: true, schema: { type: integer } }
      responses: { "200": { description: ok } }
  /misc:
    get:
      summary: Untagged
      responses: { "200": { description: ok } }
`

type fixture struct {
	cat     *catalog.Catalog
	handler http.Handler
	reg     *prometheus.Registry
}

func newFixture(t *testing.T, load bool, opts Options) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewCollector(reg)
	cat := catalog.New(catalog.WithMetrics(m))
	if load {
		_, err := cat.LoadBytes(context.Background(), []byte(storeSpec), "store.yaml")
		require.NoError(t, err)
	}
	opts.Metrics = m
	opts.Gatherer = reg
	if opts.Version == "" {
		opts.Version = "test"
	}
	srv := New(cat, assistant.New(cat, assistant.WithMetrics(m, "http")), opts)
	return &fixture{cat: cat, handler: srv.Handler(), reg: reg}
}

func (f *fixture) do(t *testing.T, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false, Options{})
	rec := f.do(t, http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", h.Status)
	assert.False(t, h.Loaded)
}

func TestNoDocumentIs503(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false, Options{})
	for _, target := range []string{"/api/v1/document", "/api/v1/endpoints", "/api/v1/endpoints/x"} {
		rec := f.do(t, http.MethodGet, target, nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, target)
	}
	rec := f.do(t, http.MethodPost, "/api/v1/search", []byte(`{"query":"pets"}`), "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetDocument(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true, Options{})
	rec := f.do(t, http.MethodGet, "/api/v1/document", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[DocumentInfo](t, rec)
	assert.Equal(t, "Store", info.Title)
	assert.Equal(t, 4, info.Endpoints)
	assert.Equal(t, "store.yaml", info.Source)
	require.Len(t, info.Categories, 3)
	assert.Equal(t, "pets", info.Categories[0].Name)
	assert.Equal(t, 2, info.Categories[0].Endpoints)
	assert.Equal(t, "default", info.Categories[2].Name)
	assert.Empty(t, info.Warnings)
}

func TestPutDocument(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true, Options{})

	doc := `{"openapi":"3.0.0","info":{"title":"Uploaded","version":"9"},"paths":{"/x":{"get":{"responses":{}}}}}`
	rec := f.do(t, http.MethodPut, "/api/v1/document?name=paste", []byte(doc), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Uploaded", decode[DocumentInfo](t, rec).Title)
	assert.Equal(t, "Uploaded", f.cat.Current().Title)

	rec = f.do(t, http.MethodPut, "/api/v1/document", []byte("openapi: 3.0.0\npaths:\n  /y:\n    get: { responses: {} }\n"), "application/yaml")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "API Documentation", f.cat.Current().Title)
}

func TestPutDocument_Rejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true, Options{MaxUploadBytes: 512})

	rec := f.do(t, http.MethodPut, "/api/v1/document", []byte("{\"openapi\": \"3.0.0\",\n  \"paths\": }\n"), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	e := decode[ErrorResponse](t, rec)
	assert.Equal(t, string(spec.ParseError), e.Code)
	assert.Equal(t, 2, e.Line)

	rec = f.do(t, http.MethodPut, "/api/v1/document", []byte("swagger: \"1.0\"\n"), "text/plain")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(spec.ValidationError), decode[ErrorResponse](t, rec).Code)

	rec = f.do(t, http.MethodPut, "/api/v1/document", bytes.Repeat([]byte("a"), 1024), "text/plain")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	assert.Equal(t, "Store", f.cat.Current().Title, "failed uploads keep the previous document")
}

func TestListEndpoints_GroupsEverythingWithoutQuery(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true, Options{})
	rec := f.do(t, http.MethodGet, "/api/v1/endpoints", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	groups := decode[[]GroupView](t, rec)
	require.Len(t, groups, 3)
	assert.Equal(t, "pets", groups[0].Category.Name)
	assert.Equal(t, "orders", groups[1].Category.Name)
	assert.Equal(t, "default", groups[2].Category.Name)
	assert.Equal(t, "listpets", groups[0].Endpoints[0].ID)
	assert.Empty(t, groups[0].Endpoints[0].Highlight)
}

func TestListEndpoints_RanksAndHighlights(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true, Options{})
	rec := f.do(t, http.MethodGet, "/api/v1/endpoints?q=orders", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	groups := decode[[]GroupView](t, rec)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Endpoints, 1)
	row := groups[0].Endpoints[0]
	assert.Equal(t, "/orders", row.Path)
	assert.Positive(t, row.Score)
	assert.Equal(t, "List &lt;b&gt;<mark>orders</mark>&lt;/b&gt;", row.Highlight)

	rec = f.do(t, http.MethodGet, "/api/v1/endpoints?q=zzz-no-match", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]GroupView](t, rec))
}

func TestGetEndpoint(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true, Options{})
	rec := f.do(t, http.MethodGet, "/api/v1/endpoints/getpet", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	ep := decode[spec.Endpoint](t, rec)
	assert.Equal(t, "/pets/{petId}", ep.Path)
	require.Len(t, ep.Parameters, 1)
	assert.True(t, ep.Parameters[0].Required)

	rec = f.do(t, http.MethodGet, "/api/v1/endpoints/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true, Options{})
	rec := f.do(t, http.MethodPost, "/api/v1/search", []byte(`{"query":"pet","language":"go"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[assistant.Result](t, rec)
	require.Len(t, res.Hits, 2)
	assert.Contains(t, res.Text, "```go\n")

	rec = f.do(t, http.MethodPost, "/api/v1/search", []byte(`{"query":"zzz-no-match"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, assistant.NoResultsText, decode[assistant.Result](t, rec).Text)

	rec = f.do(t, http.MethodPost, "/api/v1/search", []byte(`{`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_RateLimited(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true, Options{RateLimit: 0.001, Burst: 2})
	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = f.do(t, http.MethodPost, "/api/v1/search", []byte(`{"query":"pets"}`), "application/json")
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}

func TestMetricsAndAPIDocs(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true, Options{})
	f.do(t, http.MethodPost, "/api/v1/search", []byte(`{"query":"pets"}`), "application/json")

	rec := f.do(t, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "apiscout_searches_total")
	assert.Contains(t, body, `apiscout_http_requests_total{method="POST",route="/api/v1/search",status="200"} 1`)
	assert.Contains(t, body, "apiscout_document_endpoints 4")

	rec = f.do(t, http.MethodGet, "/apidocs.json", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"/api/v1/endpoints/{id}"`))
}

func TestCORS(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true, Options{AllowedOrigins: []string{"http://viewer.local"}})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://viewer.local")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://viewer.local", rec.Header().Get("Access-Control-Allow-Origin"))
}
