package samples

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mark3labs/apiscout/internal/spec"
)

const (
	// maxDepth stops example generation in deeply nested schemas.
	maxDepth = 8
	// maxProperties caps how many optional properties an example object
	// shows. Required properties are always included.
	maxProperties = 5
)

// Fixed values keep samples identical across runs.
const (
	exampleDate     = "2024-12-31"
	exampleDateTime = "2024-12-31T23:59:59Z"
	exampleUUID     = "123e4567-e89b-12d3-a456-426614174000"
)

// ExampleValue builds a plausible value for schema. Declared examples,
// defaults and the first enum value win; otherwise the value is derived from
// the type and format, with nameHint (a parameter or property name) picking
// realistic strings and numbers such as emails or page sizes. Objects come
// back as *spec.Object so property order is preserved when rendered. The
// result is the same for the same input.
func ExampleValue(schema *spec.Schema, nameHint string) any {
	return exampleValue(schema, nameHint, 0)
}

func exampleValue(s *spec.Schema, name string, depth int) any {
	if s == nil {
		return "unknown"
	}
	if s.Example != nil {
		return s.Example
	}
	if s.Default != nil {
		return s.Default
	}
	if len(s.Enum) > 0 {
		return s.Enum[0]
	}
	if depth > maxDepth {
		return nil
	}

	switch s.Kind {
	case spec.KindReference:
		return s.TypeName()
	case spec.KindArray:
		return []any{exampleValue(s.Items, name+"_item", depth+1)}
	case spec.KindObject:
		return exampleObject(s, depth)
	}
	if s.Type == "" && len(s.Alternatives) > 0 {
		return exampleValue(s.Alternatives[0], name, depth+1)
	}
	if v, ok := byName(strings.ToLower(name), s.Type, s.Format); ok {
		return v
	}
	return byType(s.Type, s.Format)
}

func exampleObject(s *spec.Schema, depth int) *spec.Object {
	obj := spec.NewObject(len(s.Properties))
	if len(s.Properties) == 0 {
		obj.Set("key", "value")
		return obj
	}
	optional := 0
	for _, p := range s.Properties {
		if !s.IsRequired(p.Name) {
			if optional >= maxProperties {
				continue
			}
			optional++
		}
		obj.Set(p.Name, exampleValue(p.Schema, p.Name, depth+1))
	}
	return obj
}

// byName guesses a value from a field name. A guess is only used when it
// fits the declared type.
func byName(name, typ, format string) (any, bool) {
	var v any
	switch {
	case name == "":
		return nil, false
	case name == "id" || strings.HasSuffix(name, "id") || strings.HasSuffix(name, "_id"):
		if typ == "string" || typ == "" {
			if format == "uuid" {
				return exampleUUID, true
			}
			return "id_1001", true
		}
		v = 1001
	case strings.Contains(name, "email"):
		v = "user@example.com"
	case strings.Contains(name, "phone"):
		v = "555-123-4567"
	case strings.Contains(name, "url") || strings.Contains(name, "uri"):
		v = "https://example.com/path"
	case strings.Contains(name, "uuid") || format == "uuid":
		v = exampleUUID
	case strings.Contains(name, "date") && format != "date-time":
		v = exampleDate
	case strings.Contains(name, "time") || format == "date-time":
		if typ == "integer" || typ == "number" {
			v = 1735689599
		} else {
			v = exampleDateTime
		}
	case strings.Contains(name, "name"):
		switch {
		case strings.Contains(name, "first"):
			v = "John"
		case strings.Contains(name, "last"):
			v = "Doe"
		default:
			v = "Example Name"
		}
	case strings.Contains(name, "address"):
		v = "123 Main St"
	case strings.Contains(name, "city"):
		v = "Anytown"
	case strings.Contains(name, "state") || strings.Contains(name, "province"):
		v = "CA"
	case strings.Contains(name, "zip") || strings.Contains(name, "postal"):
		v = "90210"
	case strings.Contains(name, "country"):
		v = "US"
	case strings.Contains(name, "price") || strings.Contains(name, "amount") || strings.Contains(name, "cost"):
		v = 99.99
	case strings.Contains(name, "status"):
		v = "active"
	case strings.Contains(name, "type"):
		v = "standard"
	case strings.Contains(name, "description"):
		v = "A sample description."
	case strings.Contains(name, "limit"):
		v = 25
	case strings.Contains(name, "offset") || strings.Contains(name, "skip"):
		v = 0
	case strings.Contains(name, "page"):
		v = 1
	case strings.Contains(name, "count") || strings.Contains(name, "total"):
		v = 100
	case strings.Contains(name, "latitude"):
		v = 34.0522
	case strings.Contains(name, "longitude"):
		v = -118.2437
	case strings.Contains(name, "tag") || strings.Contains(name, "keyword"):
		v = "example-tag"
	case strings.Contains(name, "token"):
		v = "abc123xyz789"
	case strings.Contains(name, "password") || strings.Contains(name, "secret"):
		v = "********"
	default:
		return nil, false
	}
	if !fitsType(v, typ) {
		return nil, false
	}
	if typ == "integer" {
		if f, ok := v.(float64); ok {
			v = int(f)
		}
	}
	return v, true
}

func fitsType(v any, typ string) bool {
	switch v.(type) {
	case string:
		return typ == "string" || typ == ""
	case int, float64:
		return typ == "integer" || typ == "number" || typ == ""
	}
	return false
}

func byType(typ, format string) any {
	switch typ {
	case "integer":
		if format == "int64" {
			return 1000000000
		}
		return 123
	case "number":
		switch format {
		case "float":
			return 123.45
		case "double":
			return 123.456789
		}
		return 99.9
	case "boolean":
		return true
	case "null":
		return nil
	case "string", "":
		switch format {
		case "byte":
			return "U3dhZ2dlciByb2Nrcw=="
		case "binary":
			return "file.bin"
		case "date":
			return exampleDate
		case "date-time":
			return exampleDateTime
		case "password":
			return "********"
		case "uuid":
			return exampleUUID
		case "email":
			return "user@example.com"
		case "uri", "url":
			return "https://example.com/path"
		}
		return "sample_string"
	}
	return "unknown_type"
}

// FormatJSON renders v as indented JSON without HTML escaping.
func FormatJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "null"
	}
	return strings.TrimRight(buf.String(), "\n")
}

// scalar renders v for a URL, header or form field.
func scalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// ResponseExample is a sample success payload for an endpoint.
type ResponseExample struct {
	Status    string `json:"status"`
	MediaType string `json:"mediaType"`
	Value     any    `json:"value"`
}

// ExampleResponse builds a sample for the first 2xx response that has a
// schema or an example. It reports false when there is none.
func ExampleResponse(ep *spec.Endpoint) (*ResponseExample, bool) {
	if ep == nil {
		return nil, false
	}
	for _, r := range ep.Responses {
		if !strings.HasPrefix(r.Status, "2") {
			continue
		}
		mt := spec.PreferredMedia(r.Content)
		if mt == nil {
			continue
		}
		out := &ResponseExample{Status: r.Status, MediaType: mt.Name}
		switch {
		case mt.Example != nil:
			out.Value = mt.Example
		case mt.Schema != nil:
			out.Value = ExampleValue(mt.Schema, "responseRoot")
		default:
			continue
		}
		return out, true
	}
	return nil, false
}
