package spec

import "strings"

// Normalized entity model. Everything below is produced once per load by
// Normalize and never mutated afterwards.

type HttpMethod string

const (
	GET     HttpMethod = "GET"
	PUT     HttpMethod = "PUT"
	POST    HttpMethod = "POST"
	DELETE  HttpMethod = "DELETE"
	OPTIONS HttpMethod = "OPTIONS"
	HEAD    HttpMethod = "HEAD"
	PATCH   HttpMethod = "PATCH"
	TRACE   HttpMethod = "TRACE"
)

// Methods lists the recognized verbs.
var Methods = []HttpMethod{GET, PUT, POST, DELETE, OPTIONS, HEAD, PATCH, TRACE}

// ParseMethod maps a path item key to a recognized verb, case-insensitively.
func ParseMethod(s string) (HttpMethod, bool) {
	m := HttpMethod(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

type ParameterLocation string

const (
	InPath   ParameterLocation = "path"
	InQuery  ParameterLocation = "query"
	InHeader ParameterLocation = "header"
	InCookie ParameterLocation = "cookie"
)

func parseLocation(s string) (ParameterLocation, bool) {
	switch l := ParameterLocation(strings.ToLower(strings.TrimSpace(s))); l {
	case InPath, InQuery, InHeader, InCookie:
		return l, true
	}
	return "", false
}

// Document is the normalized form of one loaded API description.
type Document struct {
	OpenAPI     string            `json:"openapi"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Version     string            `json:"version"`
	Servers     []Server          `json:"servers,omitempty"`
	Components  *Object           `json:"components,omitempty"`
	Endpoints   []*Endpoint       `json:"endpoints"`
	Categories  []*Category       `json:"categories"`
	Warnings    []*ReferenceError `json:"-"`
}

// Endpoint returns the endpoint with the given id.
func (d *Document) Endpoint(id string) (*Endpoint, bool) {
	if d == nil {
		return nil, false
	}
	for _, ep := range d.Endpoints {
		if ep.ID == id {
			return ep, true
		}
	}
	return nil, false
}

// Category returns the category with the given name.
func (d *Document) Category(name string) (*Category, bool) {
	if d == nil {
		return nil, false
	}
	for _, c := range d.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// WarningMessages renders Warnings as strings.
func (d *Document) WarningMessages() []string {
	out := make([]string, 0, len(d.Warnings))
	for _, w := range d.Warnings {
		out = append(out, w.Error())
	}
	return out
}

type Server struct {
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	ExternalDocs string `json:"externalDocs,omitempty"`
}

type Endpoint struct {
	ID           string                `json:"id"`
	OperationID  string                `json:"operationId,omitempty"`
	Path         string                `json:"path"`
	Method       HttpMethod            `json:"method"`
	Summary      string                `json:"summary,omitempty"`
	Description  string                `json:"description,omitempty"`
	Parameters   []*Parameter          `json:"parameters"`
	RequestBody  *RequestBody          `json:"requestBody,omitempty"`
	Responses    []*Response           `json:"responses"`
	Tags         []string              `json:"tags"`
	PrimaryTag   string                `json:"primaryTag"`
	Security     []SecurityRequirement `json:"security,omitempty"`
	Deprecated   bool                  `json:"deprecated,omitempty"`
	Servers      []string              `json:"servers,omitempty"`
	ExternalDocs string                `json:"externalDocs,omitempty"`
}

// Response returns the response declared for status.
func (e *Endpoint) Response(status string) (*Response, bool) {
	for _, r := range e.Responses {
		if r.Status == status {
			return r, true
		}
	}
	return nil, false
}

// SecurityRequirement maps a scheme name to its required scopes.
type SecurityRequirement map[string][]string

type Parameter struct {
	Name        string            `json:"name"`
	In          ParameterLocation `json:"in"`
	Required    bool              `json:"required"`
	Deprecated  bool              `json:"deprecated,omitempty"`
	Description string            `json:"description,omitempty"`
	Schema      *Schema           `json:"schema,omitempty"`
	Example     any               `json:"example,omitempty"`
}

func (p *Parameter) key() string { return string(p.In) + ":" + p.Name }

type RequestBody struct {
	Description string       `json:"description,omitempty"`
	Required    bool         `json:"required"`
	Content     []*MediaType `json:"content"`
}

// Response is keyed by its status code string ("200", "4XX", "default").
type Response struct {
	Status      string       `json:"status"`
	Description string       `json:"description,omitempty"`
	Content     []*MediaType `json:"content,omitempty"`
}

type MediaType struct {
	Name    string  `json:"name"`
	Schema  *Schema `json:"schema,omitempty"`
	Example any     `json:"example,omitempty"`
}

// SchemaKind tags the Schema variant.
type SchemaKind string

const (
	KindPrimitive SchemaKind = "primitive"
	KindObject    SchemaKind = "object"
	KindArray     SchemaKind = "array"
	KindReference SchemaKind = "reference"
)

// Schema is a tagged variant. Kind selects which fields are meaningful:
// primitive uses Type/Format/Enum/Default/Example, object uses Properties and
// Required, array uses Items and reference uses Ref. A reference only survives
// normalization when its target could not be resolved.
type Schema struct {
	Kind         SchemaKind `json:"kind"`
	Type         string     `json:"type,omitempty"`
	Format       string     `json:"format,omitempty"`
	Title        string     `json:"title,omitempty"`
	Description  string     `json:"description,omitempty"`
	Enum         []any      `json:"enum,omitempty"`
	Default      any        `json:"default,omitempty"`
	Example      any        `json:"example,omitempty"`
	Nullable     bool       `json:"nullable,omitempty"`
	Properties   []Property `json:"properties,omitempty"`
	Required     []string   `json:"required,omitempty"`
	Items        *Schema    `json:"items,omitempty"`
	Alternatives []*Schema  `json:"alternatives,omitempty"`
	Ref          string     `json:"ref,omitempty"`
}

type Property struct {
	Name   string  `json:"name"`
	Schema *Schema `json:"schema"`
}

// Property returns the named property of an object schema.
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil {
		return nil, false
	}
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

// IsRequired reports whether name is in the object's required set.
func (s *Schema) IsRequired(name string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// TypeName is a short human label: "string", "integer<int64>", "array<Pet>".
func (s *Schema) TypeName() string {
	if s == nil {
		return "any"
	}
	switch s.Kind {
	case KindReference:
		return refName(s.Ref)
	case KindArray:
		return "array<" + s.Items.TypeName() + ">"
	case KindObject:
		if s.Title != "" {
			return s.Title
		}
		return "object"
	}
	t := s.Type
	if t == "" && len(s.Alternatives) > 0 {
		names := make([]string, 0, len(s.Alternatives))
		for _, alt := range s.Alternatives {
			names = append(names, alt.TypeName())
		}
		return strings.Join(names, " | ")
	}
	if t == "" {
		t = "any"
	}
	if s.Format != "" {
		t += "<" + s.Format + ">"
	}
	return t
}

func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
