package spec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Object is a mapping node of the raw document that remembers the order in
// which its keys were declared. Raw nodes are *Object, []any, string, bool,
// int, int64, float64 or nil.
type Object struct {
	keys   []string
	fields map[string]any
}

// NewObject returns an empty Object with room for n keys.
func NewObject(n int) *Object {
	return &Object{keys: make([]string, 0, n), fields: make(map[string]any, n)}
}

// Set stores v under key. A new key is appended after the existing ones; an
// existing key keeps its position.
func (o *Object) Set(key string, v any) {
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.fields[key]
	return v, ok
}

// Keys returns the keys in declaration order. Callers must not modify it.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// String returns the trimmed string value under key, or "".
func (o *Object) String(key string) string {
	v, _ := o.Get(key)
	return scalarString(v)
}

// Bool returns the boolean under key, false when absent or not a bool.
func (o *Object) Bool(key string) bool {
	v, _ := o.Get(key)
	b, _ := v.(bool)
	return b
}

// Object returns the mapping stored under key.
func (o *Object) Object(key string) (*Object, bool) {
	v, _ := o.Get(key)
	obj, ok := v.(*Object)
	return obj, ok
}

// Array returns the sequence stored under key.
func (o *Object) Array(key string) ([]any, bool) {
	v, _ := o.Get(key)
	arr, ok := v.([]any)
	return arr, ok
}

// Strings returns the string items of the sequence under key.
func (o *Object) Strings(key string) []string {
	arr, _ := o.Array(key)
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s := scalarString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// MarshalJSON writes the object with keys in declaration order.
func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.fields[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func scalarString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case nil:
		return ""
	case bool, int, int64, float64:
		return fmt.Sprint(s)
	default:
		return ""
	}
}

// Decode parses JSON or YAML text into an ordered raw tree. Text whose first
// non-blank character is '{' is read as JSON, everything else as YAML. The
// root must be a mapping.
func Decode(data []byte) (*Object, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &SpecError{Code: InputError, Message: "spec: document is empty"}
	}
	var (
		root any
		err  error
	)
	if trimmed[0] == '{' {
		root, err = decodeJSON(data)
	} else {
		root, err = decodeYAML(data)
	}
	if err != nil {
		return nil, err
	}
	obj, ok := root.(*Object)
	if !ok {
		return nil, &SpecError{Code: ParseError, Message: "spec: parsed content is not an object"}
	}
	return obj, nil
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	root, err := readJSONValue(dec)
	if err == nil {
		if _, terr := dec.Token(); terr != io.EOF {
			return nil, jsonParseError(data, dec.InputOffset(), errors.New("unexpected data after top-level value"))
		}
		return root, nil
	}
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return nil, jsonParseError(data, syn.Offset, err)
	}
	return nil, jsonParseError(data, dec.InputOffset(), err)
}

func readJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject(8)
			for dec.More() {
				ktok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := ktok.(string)
				val, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := make([]any, 0, 4)
			for dec.More() {
				val, err := readJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return t, nil
	}
}

func jsonParseError(data []byte, offset int64, cause error) error {
	line, col := lineColumn(data, offset)
	return &SpecError{
		Code:    ParseError,
		Message: fmt.Sprintf("JSON parsing error: %v at line %d, column %d", cause, line, col),
		Line:    line,
		Column:  col,
		Cause:   cause,
	}
}

func lineColumn(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col := 1, 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

var yamlLineRe = regexp.MustCompile(`line (\d+)(?:, column (\d+))?`)

func decodeYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		se := &SpecError{Code: ParseError, Message: "YAML parsing error: " + err.Error(), Cause: err}
		if m := yamlLineRe.FindStringSubmatch(err.Error()); m != nil {
			se.Line, _ = strconv.Atoi(m[1])
			if m[2] != "" {
				se.Column, _ = strconv.Atoi(m[2])
			}
		}
		return nil, se
	}
	d := &yamlDecoder{budget: yamlNodeBudget(len(data))}
	return d.decode(&doc, 0)
}

// maxAliasDepth bounds alias expansion so self-referencing anchors cannot loop.
const maxAliasDepth = 64

const (
	// yamlNodesPerByte and minYAMLNodes size the expansion budget. Plain YAML
	// never yields more nodes than bytes, so only alias fan-out can reach it.
	yamlNodesPerByte = 10
	minYAMLNodes     = 100_000
)

func yamlNodeBudget(size int) int {
	return max(size*yamlNodesPerByte, minYAMLNodes)
}

// yamlDecoder converts a yaml.Node tree into raw values, counting every node
// it produces so alias fan-out cannot blow up memory.
type yamlDecoder struct {
	budget int
	nodes  int
}

func (d *yamlDecoder) decode(n *yaml.Node, aliasDepth int) (any, error) {
	d.nodes++
	if d.nodes > d.budget {
		return nil, &SpecError{
			Code:    ParseError,
			Message: fmt.Sprintf("YAML parsing error: document expands to more than %d nodes (excessive aliasing)", d.budget),
			Line:    n.Line,
			Column:  n.Column,
		}
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.decode(n.Content[0], aliasDepth)
	case yaml.AliasNode:
		if aliasDepth >= maxAliasDepth || n.Alias == nil {
			return nil, &SpecError{Code: ParseError, Message: "YAML parsing error: alias nesting too deep", Line: n.Line, Column: n.Column}
		}
		return d.decode(n.Alias, aliasDepth+1)
	case yaml.MappingNode:
		obj := NewObject(len(n.Content) / 2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Tag == "!!merge" {
				if err := d.merge(obj, v, aliasDepth); err != nil {
					return nil, err
				}
				continue
			}
			val, err := d.decode(v, aliasDepth)
			if err != nil {
				return nil, err
			}
			obj.Set(k.Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := d.decode(c, aliasDepth)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		return arr, nil
	case yaml.ScalarNode:
		switch n.Tag {
		case "!!str", "!!timestamp", "!!binary":
			return n.Value, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, &SpecError{Code: ParseError, Message: "YAML parsing error: " + err.Error(), Line: n.Line, Column: n.Column, Cause: err}
		}
		return v, nil
	default:
		return nil, nil
	}
}

// merge applies a "<<" merge key: fields already present win.
func (d *yamlDecoder) merge(dst *Object, v *yaml.Node, aliasDepth int) error {
	val, err := d.decode(v, aliasDepth)
	if err != nil {
		return err
	}
	sources := []any{val}
	if arr, ok := val.([]any); ok {
		sources = arr
	}
	for _, src := range sources {
		obj, ok := src.(*Object)
		if !ok {
			continue
		}
		for _, k := range obj.keys {
			if _, exists := dst.fields[k]; !exists {
				dst.Set(k, obj.fields[k])
			}
		}
	}
	return nil
}
