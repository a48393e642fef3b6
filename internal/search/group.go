package search

import "github.com/mark3labs/apiscout/internal/spec"

// DefaultCategory is the bucket for endpoints whose primary tag has no
// registered category. It is always emitted last.
const DefaultCategory = "default"

// Group is one category with the endpoints filed under it.
type Group struct {
	Category  *spec.Category   `json:"category"`
	Endpoints []*spec.Endpoint `json:"endpoints"`
}

// GroupEndpoints buckets endpoints by primary tag. Groups follow the order of
// categories; endpoints keep their input order inside a group. Endpoints
// whose tag is not a known category join the "default" group, which comes
// last even when a category of that name was declared earlier. Groups left
// empty are omitted.
func GroupEndpoints(endpoints []*spec.Endpoint, categories []*spec.Category) []Group {
	index := make(map[string]int, len(categories))
	groups := make([]Group, 0, len(categories)+1)
	var fallback *Group
	for _, c := range categories {
		if c == nil {
			continue
		}
		if _, dup := index[c.Name]; dup {
			continue
		}
		if c.Name == DefaultCategory {
			fallback = &Group{Category: c}
			continue
		}
		index[c.Name] = len(groups)
		groups = append(groups, Group{Category: c})
	}

	for _, ep := range endpoints {
		if i, ok := index[ep.PrimaryTag]; ok {
			groups[i].Endpoints = append(groups[i].Endpoints, ep)
			continue
		}
		if fallback == nil {
			fallback = &Group{Category: &spec.Category{ID: DefaultCategory, Name: DefaultCategory}}
		}
		fallback.Endpoints = append(fallback.Endpoints, ep)
	}

	out := groups[:0]
	for _, g := range groups {
		if len(g.Endpoints) > 0 {
			out = append(out, g)
		}
	}
	if fallback != nil && len(fallback.Endpoints) > 0 {
		out = append(out, *fallback)
	}
	return out
}

// CountInCategory counts endpoints whose primary tag is tag.
func CountInCategory(endpoints []*spec.Endpoint, tag string) int {
	if tag == "" {
		return 0
	}
	n := 0
	for _, ep := range endpoints {
		if ep.PrimaryTag == tag {
			n++
		}
	}
	return n
}
