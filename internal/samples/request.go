package samples

import (
	"net/url"
	"strings"

	"github.com/mark3labs/apiscout/internal/spec"
)

// DefaultBaseURL is used when neither the options nor the endpoint name a
// server.
const DefaultBaseURL = "https://api.example.com"

// Placeholder credential written into samples for secured endpoints.
const authPlaceholder = "Bearer YOUR_ACCESS_TOKEN"

type bodyKind int

const (
	noBody bodyKind = iota
	jsonBody
	formBody
	multipartBody
	textBody
)

type field struct {
	name  string
	value any
}

// request is the language-neutral description every generator renders.
type request struct {
	title       string
	method      spec.HttpMethod
	url         string // base URL plus the path with path parameters filled in
	query       []field
	headers     []field
	contentType string
	accept      string
	auth        bool
	kind        bodyKind
	body        any
}

func buildRequest(ep *spec.Endpoint, opts Options) *request {
	r := &request{
		title:  firstNonEmpty(ep.Summary, ep.OperationID, "API Request"),
		method: ep.Method,
		auth:   len(ep.Security) > 0,
	}

	base := opts.BaseURL
	if base == "" && len(ep.Servers) > 0 {
		base = ep.Servers[0]
	}
	if base == "" {
		base = DefaultBaseURL
	}
	path := ep.Path
	var cookies []string
	for _, p := range ep.Parameters {
		v := paramValue(p)
		switch p.In {
		case spec.InPath:
			path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(scalar(v)))
		case spec.InQuery:
			r.query = append(r.query, field{p.Name, v})
		case spec.InHeader:
			r.headers = append(r.headers, field{p.Name, scalar(v)})
		case spec.InCookie:
			cookies = append(cookies, p.Name+"="+scalar(v))
		}
	}
	if len(cookies) > 0 {
		r.headers = append(r.headers, field{"Cookie", strings.Join(cookies, "; ")})
	}
	r.url = strings.TrimRight(base, "/") + path

	if ep.RequestBody != nil {
		if mt := spec.PreferredMedia(ep.RequestBody.Content); mt != nil {
			r.contentType = mt.Name
			r.kind = kindOf(mt.Name)
			if mt.Example != nil {
				r.body = mt.Example
			} else {
				r.body = ExampleValue(mt.Schema, "body")
			}
			if _, isObj := r.body.(*spec.Object); !isObj && (r.kind == formBody || r.kind == multipartBody) {
				r.kind = textBody
			}
		}
	}
	r.accept = acceptType(ep)
	return r
}

func paramValue(p *spec.Parameter) any {
	if p.Example != nil {
		return p.Example
	}
	s := p.Schema
	if s == nil {
		s = &spec.Schema{Kind: spec.KindPrimitive, Type: "string"}
	}
	return ExampleValue(s, p.Name)
}

func kindOf(mediaType string) bodyKind {
	base := strings.ToLower(mediaType)
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	switch {
	case base == "application/x-www-form-urlencoded":
		return formBody
	case base == "multipart/form-data":
		return multipartBody
	case base == "application/json" || strings.HasSuffix(base, "+json"):
		return jsonBody
	}
	return textBody
}

// acceptType is the preferred media type of the 200 response, or of the
// first declared response when there is no 200.
func acceptType(ep *spec.Endpoint) string {
	resp, ok := ep.Response("200")
	if !ok && len(ep.Responses) > 0 {
		resp = ep.Responses[0]
	}
	if resp == nil {
		return ""
	}
	mt := spec.PreferredMedia(resp.Content)
	if mt == nil || mt.Name == "*/*" {
		return ""
	}
	return mt.Name
}

// requestHeaders lists the headers every generator sets, in order. Multipart
// content types are left to the client library so the boundary is filled in.
func (r *request) requestHeaders() []field {
	var out []field
	if r.contentType != "" && r.kind != multipartBody {
		out = append(out, field{"Content-Type", r.contentType})
	}
	if r.accept != "" {
		out = append(out, field{"Accept", r.accept})
	}
	out = append(out, r.headers...)
	if r.auth {
		out = append(out, field{"Authorization", authPlaceholder})
	}
	return out
}

// bodyFields flattens an object body into form fields.
func (r *request) bodyFields() []field {
	obj, ok := r.body.(*spec.Object)
	if !ok {
		return nil
	}
	out := make([]field, 0, obj.Len())
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		out = append(out, field{k, v})
	}
	return out
}

// fullURL is the URL with the query string appended.
func (r *request) fullURL() string {
	if len(r.query) == 0 {
		return r.url
	}
	parts := make([]string, len(r.query))
	for i, q := range r.query {
		parts[i] = url.QueryEscape(q.name) + "=" + url.QueryEscape(scalar(q.value))
	}
	return r.url + "?" + strings.Join(parts, "&")
}

func (r *request) acceptsJSON() bool {
	return r.accept == "" || kindOf(r.accept) == jsonBody
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
