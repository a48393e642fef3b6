package spec

import "strings"

// preprocessV2ForCompatibility rewrites non-compliant Swagger 2.0 operations in
// place so kin-openapi can convert them to v3:
//   - several body parameters on one operation are merged into a single body
//     parameter whose schema is an object with one property per original parameter;
//   - body parameters mixed with formData parameters are turned into formData
//     parameters and the operation is made to consume multipart/form-data.
//
// It reports whether anything changed.
func preprocessV2ForCompatibility(doc *Object) bool {
	paths, ok := doc.Object("paths")
	if !ok || paths.Len() == 0 {
		return false
	}
	modified := false
	for _, p := range paths.Keys() {
		item, ok := paths.Object(p)
		if !ok {
			continue
		}
		for _, method := range item.Keys() {
			if _, ok := ParseMethod(method); !ok {
				continue
			}
			op, ok := item.Object(method)
			if !ok {
				continue
			}
			if fixV2Operation(op) {
				modified = true
			}
		}
	}
	return modified
}

func fixV2Operation(op *Object) bool {
	params, ok := op.Array("parameters")
	if !ok || len(params) == 0 {
		return false
	}
	bodyCount := 0
	hasFormData := false
	for _, p := range params {
		pm, _ := p.(*Object)
		switch {
		case pm == nil:
		case strings.EqualFold(pm.String("in"), "body"):
			bodyCount++
		case strings.EqualFold(pm.String("in"), "formData"):
			hasFormData = true
		}
	}
	if bodyCount == 0 {
		return false
	}

	if hasFormData {
		newParams := make([]any, 0, len(params))
		for _, p := range params {
			pm, _ := p.(*Object)
			if pm != nil && strings.EqualFold(pm.String("in"), "body") {
				newParams = append(newParams, formDataFromBodyParam(pm))
				continue
			}
			newParams = append(newParams, p)
		}
		op.Set("parameters", newParams)
		consumes, _ := op.Array("consumes")
		if !containsString(consumes, "multipart/form-data") {
			op.Set("consumes", append(consumes, "multipart/form-data"))
		}
		return true
	}

	if bodyCount == 1 {
		return false
	}
	props := NewObject(bodyCount)
	required := make([]any, 0)
	newParams := make([]any, 0, len(params))
	for _, p := range params {
		pm, _ := p.(*Object)
		if pm == nil || !strings.EqualFold(pm.String("in"), "body") {
			newParams = append(newParams, p)
			continue
		}
		name := pm.String("name")
		if name == "" {
			name = "field"
		}
		schema := extractSchemaFromParam(pm)
		if schema == nil {
			schema = NewObject(1)
			schema.Set("type", "string")
		}
		props.Set(name, schema)
		if pm.Bool("required") {
			required = append(required, name)
		}
	}
	bodySchema := NewObject(3)
	bodySchema.Set("type", "object")
	bodySchema.Set("properties", props)
	if len(required) > 0 {
		bodySchema.Set("required", required)
	}
	merged := NewObject(3)
	merged.Set("in", "body")
	merged.Set("name", "body")
	merged.Set("schema", bodySchema)
	op.Set("parameters", append([]any{merged}, newParams...))
	return true
}

func containsString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

func extractSchemaFromParam(pm *Object) *Object {
	if sch, ok := pm.Object("schema"); ok {
		return sch
	}
	t := pm.String("type")
	if t == "" {
		return nil
	}
	m := NewObject(3)
	m.Set("type", t)
	if it, ok := pm.Object("items"); ok {
		m.Set("items", it)
	}
	if f := pm.String("format"); f != "" {
		m.Set("format", f)
	}
	return m
}

func formDataFromBodyParam(pm *Object) *Object {
	name := pm.String("name")
	if name == "" {
		name = "field"
	}
	out := NewObject(6)
	out.Set("in", "formData")
	out.Set("name", name)
	if desc := pm.String("description"); desc != "" {
		out.Set("description", desc)
	}
	if req, ok := pm.Get("required"); ok {
		if b, ok := req.(bool); ok {
			out.Set("required", b)
		}
	}
	var (
		typ, format string
		items       *Object
	)
	if sch, ok := pm.Object("schema"); ok {
		typ = sch.String("type")
		items, _ = sch.Object("items")
		format = sch.String("format")
		if typ == "" && sch.String("$ref") != "" {
			// A referenced object has no formData form.
			typ = "string"
		}
	}
	if typ == "" {
		typ = pm.String("type")
		items, _ = pm.Object("items")
		format = pm.String("format")
	}
	if typ == "" {
		typ = "string"
	}
	out.Set("type", typ)
	if items != nil {
		out.Set("items", items)
	}
	if format != "" {
		out.Set("format", format)
	}
	return out
}
