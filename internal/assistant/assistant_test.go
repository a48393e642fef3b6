package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/apiscout/internal/spec"
)

const crmSpec = `openapi: 3.0.0
info: { title: CRM, version: "2" }
servers: [{ url: https://crm.example.com }]
tags:
  - name: Customer Management
paths:
  /customer/search:
    post:
      tags: [Customer Management]
      operationId: searchCustomers
      summary: Search customers
      parameters:
        - { name: limit, in: query, schema: { type: integer } }
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              properties:
                query: { type: string, description: Free text }
      responses:
        "200":
          description: Matching customers
          content:
            application/json:
              schema:
                type: array
                items: { type: object, properties: { id: { type: string } } }
  /customer/{id}:
    get:
      tags: [Customer Management]
      operationId: getCustomer
      summary: Get a customer
      description: Returns one customer record.
      parameters:
        - { name: id, in: path, required: true, description: Customer id, schema: { type: string } }
      responses:
        "200": { description: ok }
  /orders:
    get:
      tags: [Orders]
      summary: List orders
      responses:
        "200": { description: ok }
`

type staticSource struct{ doc *spec.Document }

func (s staticSource) Current() *spec.Document { return s.doc }

func crm(t *testing.T) staticSource {
	t.Helper()
	root, err := spec.Parse([]byte(crmSpec), "crm.yaml")
	require.NoError(t, err)
	doc, err := spec.Normalize(root)
	require.NoError(t, err)
	return staticSource{doc}
}

func TestSearch_NoDocument(t *testing.T) {
	t.Parallel()
	_, err := New(nil).Search(context.Background(), Request{Query: "x"})
	assert.ErrorIs(t, err, ErrNoDocument)

	_, err = New(staticSource{}).Search(context.Background(), Request{Query: "x"})
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestSearch_NoMatchIsNotAnError(t *testing.T) {
	t.Parallel()
	s := New(crm(t))
	for _, q := range []string{"zzz-no-match", "", "a b"} {
		res, err := s.Search(context.Background(), Request{Query: q})
		require.NoError(t, err, "query %q", q)
		assert.Equal(t, NoResultsText, res.Text, "query %q", q)
		assert.Empty(t, res.Hits, "query %q", q)
	}
}

func TestSearch_FormatsHits(t *testing.T) {
	t.Parallel()
	res, err := New(crm(t)).Search(context.Background(), Request{Query: "customer", Language: "python"})
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	for _, h := range res.Hits {
		assert.True(t, strings.HasPrefix(h.Path, "/customer"), h.Path)
		assert.Positive(t, h.Score)
	}

	text := res.Text
	assert.True(t, strings.HasPrefix(text, "# Search Results for \"customer\"\n\n"))
	assert.Contains(t, text, "## POST /customer/search\n\nSearch customers\n\n")
	assert.Contains(t, text, "## GET /customer/{id}\n\nReturns one customer record.\n\n")
	assert.Contains(t, text, "### Parameters:\n\n- **limit** (integer): No description available\n")
	assert.Contains(t, text, "- **id** (string) [Required]: Customer id\n")
	assert.Contains(t, text, "### Example Code (python):\n\n```python\n# Search customers\n")
	assert.Contains(t, text, "https://crm.example.com/customer/search")
	assert.Equal(t, 2, strings.Count(text, "\n---\n"))
	assert.NotContains(t, text, "/orders")
}

func TestSearch_Languages(t *testing.T) {
	t.Parallel()
	src := crm(t)
	res, err := New(src).Search(context.Background(), Request{Query: "orders", Language: "cobol"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "### Example Code (javascript):\n\n```javascript\n")

	res, err = New(src, WithLanguage("curl"), WithBaseURL("http://localhost:9000")).
		Search(context.Background(), Request{Query: "orders"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "### Example Code (curl):\n\n```bash\n")
	assert.Contains(t, res.Text, "curl -X GET 'http://localhost:9000/orders'")
}

func TestSearch_TopResultsOnly(t *testing.T) {
	t.Parallel()
	doc := &spec.Document{}
	for i := 0; i < 7; i++ {
		doc.Endpoints = append(doc.Endpoints, &spec.Endpoint{
			ID:     fmt.Sprintf("item-%d", i),
			Method: spec.GET,
			Path:   fmt.Sprintf("/item/%d", i),
		})
	}
	res, err := New(staticSource{doc}).Search(context.Background(), Request{Query: "item"})
	require.NoError(t, err)
	require.Len(t, res.Hits, DefaultMaxResults)
	assert.Equal(t, "/item/0", res.Hits[0].Path)
	assert.Equal(t, "/item/4", res.Hits[4].Path)

	res, err = New(staticSource{doc}, WithMaxResults(2)).Search(context.Background(), Request{Query: "item"})
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)
}

func TestSearch_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(crm(t)).Search(ctx, Request{Query: "customer"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_ConcurrentCallsAgree(t *testing.T) {
	t.Parallel()
	s := New(crm(t))
	want, err := s.Search(context.Background(), Request{Query: "customer search"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Search(context.Background(), Request{Query: "customer search"})
			if assert.NoError(t, err) {
				assert.Equal(t, want, got)
			}
		}()
	}
	wg.Wait()
}

func TestDescribe(t *testing.T) {
	t.Parallel()
	s := New(crm(t))

	_, err := s.Describe(context.Background(), EndpointRequest{ID: "nope"})
	assert.ErrorIs(t, err, ErrUnknownEndpoint)

	text, err := s.Describe(context.Background(), EndpointRequest{ID: "getcustomer"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "# GET /customer/{id}\n\nGet a customer\n\nReturns one customer record.\n\n"))
	assert.Contains(t, text, "- **Tags**: Customer Management\n")
	assert.Contains(t, text, "- **Servers**: https://crm.example.com\n")
	assert.Contains(t, text, "### Example Code (javascript):")
	assert.NotContains(t, text, "### Example Response")

	text, err = s.Describe(context.Background(), EndpointRequest{ID: "searchcustomers", Language: "go"})
	require.NoError(t, err)
	assert.Contains(t, text, "### Request Body:\n\n- `application/json` [Required]: object\n  - **query** (string): Free text\n")
	assert.Contains(t, text, "- **200**: Matching customers (`application/json` array<object>)\n")
	assert.Contains(t, text, "```go\n")
	assert.Contains(t, text, "### Example Response (200):")
	assert.Contains(t, text, `"id": "id_1001"`)
}
