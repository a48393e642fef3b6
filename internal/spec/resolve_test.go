package spec

import (
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"
)

const refDoc = `openapi: 3.0.0
paths:
  /a~b/c:
    get: { summary: escaped }
components:
  schemas:
    Pet:
      type: object
      properties:
        tags:
          type: array
          items: { type: string }
    Alias: { $ref: '#/components/schemas/Pet' }
    Described:
      $ref: '#/components/schemas/Pet'
      description: local text
    A: { $ref: '#/components/schemas/B' }
    B: { $ref: '#/components/schemas/A' }
`

func TestResolve(t *testing.T) {
	t.Parallel()
	r := NewResolver(mustParse(t, refDoc))

	v, err := r.Resolve("#/components/schemas/Pet/properties/tags/items")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if obj, ok := v.(*Object); !ok || obj.String("type") != "string" {
		t.Fatalf("unexpected node %#v", v)
	}

	v, err = r.Resolve("#/paths/~1a~0b~1c/get/summary")
	if err != nil || v != "escaped" {
		t.Fatalf("escaped pointer: %v %v", v, err)
	}

	for ptr, want := range map[string]error{
		"#/components/schemas/Nope":      ErrNotFound,
		"#/components/schemas/Pet/type/x": ErrNotFound,
		"other.yaml#/components/schemas":  ErrUnsupportedPointer,
		"components/schemas/Pet":          ErrUnsupportedPointer,
		"":                                ErrUnsupportedPointer,
	} {
		if _, err := r.Resolve(ptr); !errors.Is(err, want) {
			t.Errorf("%q: expected %v, got %v", ptr, want, err)
		}
	}
}

func TestResolveDeep_InlinesAndKeepsSiblings(t *testing.T) {
	t.Parallel()
	root := mustParse(t, refDoc)
	r := NewResolver(root)
	schemas, _ := r.Resolve("#/components/schemas")

	out, warnings := r.ResolveDeep(schemas, "#/components/schemas")
	obj := out.(*Object)
	alias, _ := obj.Object("Alias")
	if alias.String("type") != "object" || isRef(alias) {
		t.Fatalf("alias not inlined: %#v", alias)
	}
	described, _ := obj.Object("Described")
	if described.String("description") != "local text" || described.String("type") != "object" {
		t.Fatalf("sibling keys lost: %#v", described)
	}

	// A -> B -> A: the repeated pointer is left as a reference node.
	a, _ := obj.Object("A")
	if a.String("$ref") != "#/components/schemas/A" {
		t.Fatalf("cycle: expected the reference back to A, got %#v", a)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings %v", warnings)
	}

	// The raw tree is untouched.
	raw, _ := r.Resolve("#/components/schemas/Alias")
	if !isRef(raw.(*Object)) {
		t.Fatalf("raw document was modified")
	}
}

func TestResolveDeep_ExpansionLimit(t *testing.T) {
	t.Parallel()
	r := NewResolver(mustParse(t, refDoc)).WithLimit(1)
	node, _ := r.Resolve("#/components/schemas")
	_, warnings := r.ResolveDeep(node, "#/components/schemas")
	if len(warnings) == 0 || !errors.Is(warnings[0], ErrExpansionLimit) {
		t.Fatalf("expected expansion limit warning, got %v", warnings)
	}
}

// TestResolveDeep_TerminatesOnCycles builds random reference graphs over a
// fixed set of component names, many of them cyclic, and checks that full
// expansion finishes and leaves no resolvable reference unexpanded outside
// of a cycle.
func TestResolveDeep_TerminatesOnCycles(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "nodes")
		schemas := NewObject(n)
		for i := 0; i < n; i++ {
			props := NewObject(3)
			edges := rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("edges%d", i))
			for e := 0; e < edges; e++ {
				target := rapid.IntRange(0, n).Draw(t, fmt.Sprintf("target%d_%d", i, e))
				ref := NewObject(1)
				// target == n points at a missing schema.
				ref.Set("$ref", fmt.Sprintf("#/components/schemas/S%d", target))
				props.Set(fmt.Sprintf("p%d", e), ref)
			}
			s := NewObject(2)
			s.Set("type", "object")
			s.Set("properties", props)
			schemas.Set(fmt.Sprintf("S%d", i), s)
		}
		components := NewObject(1)
		components.Set("schemas", schemas)
		root := NewObject(2)
		root.Set("openapi", "3.0.0")
		root.Set("components", components)

		r := NewResolver(root)
		out, warnings := r.ResolveDeep(schemas, "#/components/schemas")
		if _, ok := out.(*Object); !ok {
			t.Fatalf("expected an object, got %T", out)
		}
		for _, w := range warnings {
			if !errors.Is(w, ErrNotFound) {
				t.Fatalf("unexpected warning %v", w)
			}
		}
	})
}
