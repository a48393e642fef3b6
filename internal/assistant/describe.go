package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/apiscout/internal/samples"
	"github.com/mark3labs/apiscout/internal/spec"
)

// EndpointRequest is the input of the detail tool.
type EndpointRequest struct {
	ID       string `json:"id" jsonschema:"endpoint id as returned by search_documentation"`
	Language string `json:"language,omitempty" jsonschema:"language for the code sample: javascript, python, curl or go (default javascript)"`
}

// Endpoint looks up one endpoint by id.
func (s *Searcher) Endpoint(ctx context.Context, id string) (*spec.Endpoint, error) {
	doc, err := s.document(ctx)
	if err != nil {
		return nil, err
	}
	ep, ok := doc.Endpoint(strings.TrimSpace(id))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEndpoint, id)
	}
	return ep, nil
}

// Describe renders everything known about one endpoint: parameters, request
// body, responses, a code sample and an example success payload.
func (s *Searcher) Describe(ctx context.Context, req EndpointRequest) (string, error) {
	ep, err := s.Endpoint(ctx, req.ID)
	if err != nil {
		return "", err
	}
	lang := s.languageFor(req.Language)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", ep.Method, ep.Path)
	if ep.Deprecated {
		b.WriteString("**Deprecated.**\n\n")
	}
	if ep.Summary != "" {
		b.WriteString(oneLine(ep.Summary) + "\n\n")
	}
	if ep.Description != "" && ep.Description != ep.Summary {
		b.WriteString(strings.TrimSpace(ep.Description) + "\n\n")
	}
	fmt.Fprintf(&b, "- **ID**: %s\n", ep.ID)
	if ep.OperationID != "" {
		fmt.Fprintf(&b, "- **Operation**: %s\n", ep.OperationID)
	}
	if len(ep.Tags) > 0 {
		fmt.Fprintf(&b, "- **Tags**: %s\n", strings.Join(ep.Tags, ", "))
	}
	if len(ep.Servers) > 0 {
		fmt.Fprintf(&b, "- **Servers**: %s\n", strings.Join(ep.Servers, ", "))
	}
	if len(ep.Security) > 0 {
		fmt.Fprintf(&b, "- **Security**: %s\n", securityNames(ep.Security))
	}
	if ep.ExternalDocs != "" {
		fmt.Fprintf(&b, "- **Docs**: %s\n", ep.ExternalDocs)
	}
	b.WriteString("\n")

	writeParameters(&b, ep.Parameters)

	if rb := ep.RequestBody; rb != nil {
		b.WriteString("### Request Body:\n\n")
		if rb.Description != "" {
			b.WriteString(oneLine(rb.Description) + "\n\n")
		}
		for _, mt := range rb.Content {
			required := ""
			if rb.Required {
				required = " [Required]"
			}
			fmt.Fprintf(&b, "- `%s`%s: %s\n", mt.Name, required, mt.Schema.TypeName())
			writeProperties(&b, mt.Schema)
		}
		b.WriteString("\n")
	}

	if len(ep.Responses) > 0 {
		b.WriteString("### Responses:\n\n")
		for _, r := range ep.Responses {
			fmt.Fprintf(&b, "- **%s**", r.Status)
			if r.Description != "" {
				b.WriteString(": " + oneLine(r.Description))
			}
			if mt := spec.PreferredMedia(r.Content); mt != nil && mt.Schema != nil {
				fmt.Fprintf(&b, " (`%s` %s)", mt.Name, mt.Schema.TypeName())
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "### Example Code (%s):\n\n", lang)
	fmt.Fprintf(&b, "```%s\n%s\n```\n", lang.Fence(), samples.Generate(lang, ep, samples.Options{BaseURL: s.baseURL}))

	if ex, ok := samples.ExampleResponse(ep); ok {
		fmt.Fprintf(&b, "\n### Example Response (%s):\n\n", ex.Status)
		fmt.Fprintf(&b, "```json\n%s\n```\n", samples.FormatJSON(ex.Value))
	}
	return b.String(), nil
}

// writeProperties lists the top-level properties of an object schema,
// looking through arrays.
func writeProperties(b *strings.Builder, s *spec.Schema) {
	for s != nil && s.Kind == spec.KindArray {
		s = s.Items
	}
	if s == nil {
		return
	}
	for _, p := range s.Properties {
		required := ""
		if s.IsRequired(p.Name) {
			required = " [Required]"
		}
		fmt.Fprintf(b, "  - **%s** (%s)%s", p.Name, p.Schema.TypeName(), required)
		if p.Schema != nil && p.Schema.Description != "" {
			b.WriteString(": " + oneLine(p.Schema.Description))
		}
		b.WriteString("\n")
	}
}

func securityNames(reqs []spec.SecurityRequirement) string {
	var names []string
	seen := make(map[string]struct{})
	for _, req := range reqs {
		keys := make([]string, 0, len(req))
		for name := range req {
			keys = append(keys, name)
		}
		sort.Strings(keys)
		for _, name := range keys {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
