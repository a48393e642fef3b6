// Package samples renders ready-to-run example requests for normalized
// endpoints in a handful of client languages.
package samples

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/mark3labs/apiscout/internal/spec"
)

type Language string

const (
	JavaScript Language = "javascript"
	Python     Language = "python"
	Curl       Language = "curl"
	Go         Language = "go"
)

// DefaultLanguage is used for empty or unknown language names.
const DefaultLanguage = JavaScript

// Languages lists the supported languages.
var Languages = []Language{JavaScript, Python, Curl, Go}

// ParseLanguage maps a user-supplied name to a Language. Matching ignores
// case; a few common aliases are accepted. Anything else falls back to
// DefaultLanguage.
func ParseLanguage(s string) Language {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "javascript", "js", "node":
		return JavaScript
	case "python", "py":
		return Python
	case "curl", "shell", "bash", "sh":
		return Curl
	case "go", "golang":
		return Go
	}
	return DefaultLanguage
}

// Fence is the info string for a markdown code fence.
func (l Language) Fence() string {
	if l == Curl {
		return "bash"
	}
	return string(l)
}

// Options tune generated samples.
type Options struct {
	// BaseURL replaces the endpoint's first server.
	BaseURL string
}

// Generate renders a sample request for ep in lang.
func Generate(lang Language, ep *spec.Endpoint, opts Options) string {
	if ep == nil {
		return ""
	}
	r := buildRequest(ep, opts)
	switch ParseLanguage(string(lang)) {
	case Python:
		return python(r)
	case Curl:
		return curl(r)
	case Go:
		return golang(r)
	default:
		return javascript(r)
	}
}

type code struct {
	strings.Builder
}

func (c *code) line(format string, args ...any) {
	if len(args) == 0 {
		c.WriteString(format)
	} else {
		fmt.Fprintf(c, format, args...)
	}
	c.WriteByte('\n')
}

func (c *code) String() string {
	return strings.TrimRight(c.Builder.String(), "\n")
}

func formEncode(fields []field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = url.QueryEscape(f.name) + "=" + url.QueryEscape(scalar(f.value))
	}
	return strings.Join(parts, "&")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func curl(r *request) string {
	var c code
	c.line("# %s", oneLine(r.title))
	if r.auth {
		c.line("# Authentication required: replace YOUR_ACCESS_TOKEN.")
	}
	c.line("")
	fmt.Fprintf(&c, "curl -X %s %s", r.method, shellQuote(r.fullURL()))
	for _, h := range r.requestHeaders() {
		c.WriteString(" \\\n  -H " + shellQuote(h.name+": "+scalar(h.value)))
	}
	switch r.kind {
	case jsonBody:
		c.WriteString(" \\\n  -d " + shellQuote(FormatJSON(r.body)))
	case formBody:
		c.WriteString(" \\\n  -d " + shellQuote(formEncode(r.bodyFields())))
	case multipartBody:
		for _, f := range r.bodyFields() {
			c.WriteString(" \\\n  -F " + shellQuote(f.name+"="+scalar(f.value)))
		}
	case textBody:
		c.WriteString(" \\\n  --data-binary " + shellQuote(bodyText(r.body)))
	}
	return c.String()
}

func javascript(r *request) string {
	var c code
	c.line("// %s", oneLine(r.title))
	if r.auth {
		c.line("// Authentication required: replace YOUR_ACCESS_TOKEN.")
	}
	c.line("")
	c.line("const url = new URL(%s);", jsString(r.url))
	for _, q := range r.query {
		c.line("url.searchParams.set(%s, %s);", jsString(q.name), jsString(scalar(q.value)))
	}
	c.line("")

	headers := r.requestHeaders()
	c.line("const headers = {")
	for _, h := range headers {
		c.line("  %s: %s,", jsString(h.name), jsString(scalar(h.value)))
	}
	c.line("};")
	c.line("")

	bodyExpr := ""
	switch r.kind {
	case jsonBody:
		c.line("const body = %s;", FormatJSON(r.body))
		c.line("")
		bodyExpr = "JSON.stringify(body)"
	case formBody:
		c.line("const body = new URLSearchParams();")
		for _, f := range r.bodyFields() {
			c.line("body.append(%s, %s);", jsString(f.name), jsString(scalar(f.value)))
		}
		c.line("")
		bodyExpr = "body"
	case multipartBody:
		c.line("const body = new FormData();")
		for _, f := range r.bodyFields() {
			c.line("body.append(%s, %s);", jsString(f.name), jsString(scalar(f.value)))
		}
		c.line("")
		bodyExpr = "body"
	case textBody:
		c.line("const body = %s;", jsString(bodyText(r.body)))
		c.line("")
		bodyExpr = "body"
	}

	c.line("const response = await fetch(url, {")
	c.line("  method: %s,", jsString(string(r.method)))
	c.line("  headers,")
	if bodyExpr != "" {
		c.line("  body: %s,", bodyExpr)
	}
	c.line("});")
	c.line("if (!response.ok) {")
	c.line("  throw new Error(`HTTP ${response.status}: ${await response.text()}`);")
	c.line("}")
	if r.acceptsJSON() {
		c.line("const data = await response.json();")
	} else {
		c.line("const data = await response.text();")
	}
	c.line("console.log(data);")
	return c.String()
}

func python(r *request) string {
	var c code
	c.line("# %s", oneLine(r.title))
	if r.auth {
		c.line("# Authentication required: replace YOUR_ACCESS_TOKEN.")
	}
	c.line("import requests")
	c.line("")
	c.line("url = %s", pyString(r.url))

	args := []string{pyString(string(r.method)), "url"}
	if len(r.query) > 0 {
		c.line("params = {")
		for _, q := range r.query {
			c.line("    %s: %s,", pyString(q.name), pyLiteral(q.value, "    "))
		}
		c.line("}")
		args = append(args, "params=params")
	}
	if headers := r.requestHeaders(); len(headers) > 0 {
		c.line("headers = {")
		for _, h := range headers {
			c.line("    %s: %s,", pyString(h.name), pyString(scalar(h.value)))
		}
		c.line("}")
		args = append(args, "headers=headers")
	}
	switch r.kind {
	case jsonBody:
		c.line("payload = %s", pyLiteral(r.body, ""))
		args = append(args, "json=payload")
	case formBody:
		c.line("payload = {")
		for _, f := range r.bodyFields() {
			c.line("    %s: %s,", pyString(f.name), pyString(scalar(f.value)))
		}
		c.line("}")
		args = append(args, "data=payload")
	case multipartBody:
		c.line("files = {")
		for _, f := range r.bodyFields() {
			c.line("    %s: (None, %s),", pyString(f.name), pyString(scalar(f.value)))
		}
		c.line("}")
		args = append(args, "files=files")
	case textBody:
		c.line("payload = %s", pyString(bodyText(r.body)))
		args = append(args, "data=payload")
	}
	c.line("")
	c.line("response = requests.request(%s)", strings.Join(args, ", "))
	c.line("response.raise_for_status()")
	if r.acceptsJSON() {
		c.line("print(response.json())")
	} else {
		c.line("print(response.text)")
	}
	return c.String()
}

func golang(r *request) string {
	imports := []string{"fmt", "io", "net/http"}
	var body code
	bodyVar := "nil"
	contentTypeExpr := ""
	switch r.kind {
	case jsonBody:
		body.line("\tbody := strings.NewReader(%s)", goString(FormatJSON(r.body)))
		bodyVar = "body"
		imports = append(imports, "strings")
	case formBody:
		body.line("\tbody := strings.NewReader(%s)", goString(formEncode(r.bodyFields())))
		bodyVar = "body"
		imports = append(imports, "strings")
	case textBody:
		body.line("\tbody := strings.NewReader(%s)", goString(bodyText(r.body)))
		bodyVar = "body"
		imports = append(imports, "strings")
	case multipartBody:
		body.line("\tbody := &bytes.Buffer{}")
		body.line("\tform := multipart.NewWriter(body)")
		for _, f := range r.bodyFields() {
			body.line("\tif err := form.WriteField(%s, %s); err != nil {", goString(f.name), goString(scalar(f.value)))
			body.line("\t\tpanic(err)")
			body.line("\t}")
		}
		body.line("\tif err := form.Close(); err != nil {")
		body.line("\t\tpanic(err)")
		body.line("\t}")
		bodyVar = "body"
		contentTypeExpr = "form.FormDataContentType()"
		imports = append(imports, "bytes", "mime/multipart")
	}
	if len(r.query) > 0 {
		imports = append(imports, "net/url")
	}
	sort.Strings(imports)

	var c code
	c.line("// %s", oneLine(r.title))
	if r.auth {
		c.line("// Authentication required: replace YOUR_ACCESS_TOKEN.")
	}
	c.line("package main")
	c.line("")
	c.line("import (")
	for _, imp := range imports {
		c.line("\t%q", imp)
	}
	c.line(")")
	c.line("")
	c.line("func main() {")
	target := goString(r.url)
	if len(r.query) > 0 {
		c.line("\tquery := url.Values{}")
		for _, q := range r.query {
			c.line("\tquery.Set(%s, %s)", goString(q.name), goString(scalar(q.value)))
		}
		target += ` + "?" + query.Encode()`
	}
	c.WriteString(body.Builder.String())
	c.line("\treq, err := http.NewRequest(%s, %s, %s)", goString(string(r.method)), target, bodyVar)
	c.line("\tif err != nil {")
	c.line("\t\tpanic(err)")
	c.line("\t}")
	if contentTypeExpr != "" {
		c.line("\treq.Header.Set(\"Content-Type\", %s)", contentTypeExpr)
	}
	for _, h := range r.requestHeaders() {
		c.line("\treq.Header.Set(%s, %s)", goString(h.name), goString(scalar(h.value)))
	}
	c.line("")
	c.line("\tresp, err := http.DefaultClient.Do(req)")
	c.line("\tif err != nil {")
	c.line("\t\tpanic(err)")
	c.line("\t}")
	c.line("\tdefer resp.Body.Close()")
	c.line("")
	c.line("\tdata, err := io.ReadAll(resp.Body)")
	c.line("\tif err != nil {")
	c.line("\t\tpanic(err)")
	c.line("\t}")
	c.line("\tfmt.Println(resp.Status)")
	c.line("\tfmt.Println(string(data))")
	c.line("}")
	return c.String()
}

// bodyText renders a body that is sent as-is.
func bodyText(v any) string {
	switch v.(type) {
	case string, nil:
		return scalar(v)
	}
	return FormatJSON(v)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
