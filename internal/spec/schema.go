package spec

import "strings"

// schemaBuilder converts resolved raw schema nodes into Schema values. Nodes
// shared through memoized reference expansion map to the same *Schema.
type schemaBuilder struct {
	seen map[*Object]*Schema
}

func newSchemaBuilder() *schemaBuilder {
	return &schemaBuilder{seen: make(map[*Object]*Schema)}
}

func (b *schemaBuilder) build(node any) *Schema {
	obj, ok := node.(*Object)
	if !ok {
		return nil
	}
	if s, ok := b.seen[obj]; ok {
		return s
	}
	s := b.convert(obj)
	b.seen[obj] = s
	return s
}

func (b *schemaBuilder) convert(obj *Object) *Schema {
	if ref, ok := refOf(obj); ok {
		return &Schema{Kind: KindReference, Ref: ref, Description: obj.String("description")}
	}

	s := &Schema{
		Format:      obj.String("format"),
		Title:       obj.String("title"),
		Description: obj.String("description"),
		Nullable:    obj.Bool("nullable"),
		Required:    obj.Strings("required"),
	}
	s.Type, s.Nullable = schemaType(obj, s.Nullable)
	if enum, ok := obj.Array("enum"); ok {
		s.Enum = enum
	}
	s.Default, _ = obj.Get("default")
	if ex, ok := obj.Get("example"); ok {
		s.Example = ex
	} else if exs, ok := obj.Array("examples"); ok && len(exs) > 0 {
		s.Example = exs[0]
	}
	if props, ok := obj.Object("properties"); ok {
		for _, name := range props.Keys() {
			v, _ := props.Get(name)
			s.Properties = append(s.Properties, Property{Name: name, Schema: b.build(v)})
		}
	}
	if items, ok := obj.Get("items"); ok {
		s.Items = b.build(items)
	}
	for _, key := range []string{"oneOf", "anyOf"} {
		alts, _ := obj.Array(key)
		for _, alt := range alts {
			if as := b.build(alt); as != nil {
				s.Alternatives = append(s.Alternatives, as)
			}
		}
	}
	if members, ok := obj.Array("allOf"); ok && len(members) > 0 {
		s = b.mergeAllOf(s, members)
	}

	switch {
	case s.Kind != "":
	case s.Type == "array" || s.Items != nil:
		s.Kind = KindArray
		if s.Type == "" {
			s.Type = "array"
		}
	case s.Type == "object" || len(s.Properties) > 0:
		s.Kind = KindObject
		if s.Type == "" {
			s.Type = "object"
		}
	case s.Type == "" && hasKey(obj, "additionalProperties"):
		s.Kind = KindObject
		s.Type = "object"
	default:
		s.Kind = KindPrimitive
	}
	return s
}

// schemaType picks the first non-null entry of a type list and reports
// nullability.
func schemaType(obj *Object, nullable bool) (string, bool) {
	v, _ := obj.Get("type")
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nullable
	case []any:
		typ := ""
		for _, item := range t {
			s, _ := item.(string)
			if s == "null" {
				nullable = true
				continue
			}
			if typ == "" {
				typ = s
			}
		}
		return typ, nullable
	}
	return "", nullable
}

// mergeAllOf folds allOf members into base. A single non-object member with
// no local structure is adopted as is, keeping base's documentation.
func (b *schemaBuilder) mergeAllOf(base *Schema, members []any) *Schema {
	built := make([]*Schema, 0, len(members))
	for _, m := range members {
		if ms := b.build(m); ms != nil {
			built = append(built, ms)
		}
	}
	if len(built) == 1 && len(base.Properties) == 0 && base.Type == "" && built[0].Kind != KindObject {
		single := *built[0]
		if base.Description != "" {
			single.Description = base.Description
		}
		if base.Title != "" {
			single.Title = base.Title
		}
		single.Nullable = single.Nullable || base.Nullable
		return &single
	}

	merged := *base
	merged.Kind = KindObject
	merged.Type = "object"
	merged.Properties = append([]Property(nil), base.Properties...)
	merged.Required = append([]string(nil), base.Required...)
	for _, ms := range built {
		switch ms.Kind {
		case KindObject:
			for _, p := range ms.Properties {
				merged.Properties = setProperty(merged.Properties, p)
			}
			for _, r := range ms.Required {
				if !merged.IsRequired(r) {
					merged.Required = append(merged.Required, r)
				}
			}
			if merged.Description == "" {
				merged.Description = ms.Description
			}
			if merged.Title == "" {
				merged.Title = ms.Title
			}
		default:
			merged.Alternatives = append(merged.Alternatives, ms)
		}
	}
	return &merged
}

func setProperty(props []Property, p Property) []Property {
	for i := range props {
		if props[i].Name == p.Name {
			props[i].Schema = p.Schema
			return props
		}
	}
	return append(props, p)
}

func hasKey(obj *Object, key string) bool {
	_, ok := obj.Get(key)
	return ok
}
