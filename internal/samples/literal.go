package samples

import (
	"strconv"
	"strings"

	"github.com/mark3labs/apiscout/internal/spec"
)

// jsString quotes s as a JavaScript string literal. JSON string syntax is a
// subset of JavaScript's.
func jsString(s string) string {
	return FormatJSON(s)
}

// pyString quotes s as a Python string literal. Go's escapes are all valid
// in Python.
func pyString(s string) string {
	return strconv.Quote(s)
}

// goString prefers a raw string literal for multi-line text.
func goString(s string) string {
	if strings.Contains(s, "\n") && !strings.ContainsAny(s, "`\r") {
		return "`" + s + "`"
	}
	return strconv.Quote(s)
}

// pyLiteral renders v as a Python expression. Nested containers are
// indented four spaces past indent.
func pyLiteral(v any, indent string) string {
	inner := indent + "    "
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return pyString(x)
	case *spec.Object:
		if x.Len() == 0 {
			return "{}"
		}
		var b strings.Builder
		b.WriteString("{\n")
		for _, k := range x.Keys() {
			val, _ := x.Get(k)
			b.WriteString(inner + pyString(k) + ": " + pyLiteral(val, inner) + ",\n")
		}
		b.WriteString(indent + "}")
		return b.String()
	case []any:
		if len(x) == 0 {
			return "[]"
		}
		var b strings.Builder
		b.WriteString("[\n")
		for _, item := range x {
			b.WriteString(inner + pyLiteral(item, inner) + ",\n")
		}
		b.WriteString(indent + "]")
		return b.String()
	}
	return scalar(v)
}
