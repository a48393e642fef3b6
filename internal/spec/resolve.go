package spec

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
)

// DefaultExpansionLimit bounds how many references one ResolveDeep call will
// follow. Documents with heavy fan-out of distinct references can otherwise
// expand exponentially.
const DefaultExpansionLimit = 10000

// Resolver inlines internal references ("#/a/b") against one raw document.
// Expansions that did not hit a cycle or a failure are memoized per pointer,
// so a Resolver must not be used from several goroutines at once.
type Resolver struct {
	root  *Object
	limit int
	memo  map[string]any
}

// NewResolver returns a Resolver over root.
func NewResolver(root *Object) *Resolver {
	return &Resolver{root: root, limit: DefaultExpansionLimit, memo: make(map[string]any)}
}

// WithLimit sets the per-call expansion budget. n <= 0 restores the default.
func (r *Resolver) WithLimit(n int) *Resolver {
	if n <= 0 {
		n = DefaultExpansionLimit
	}
	r.limit = n
	return r
}

// Resolve returns the node designated by pointer. Only local pointers of the
// form "#/seg1/seg2" are supported; each segment is an object key or an array
// index after "~1"/"~0" unescaping. The returned node is part of the raw
// document and must not be modified.
func (r *Resolver) Resolve(pointer string) (any, error) {
	tokens, err := pointerTokens(pointer)
	if err != nil {
		return nil, err
	}
	var cur any = r.root
	for _, tok := range tokens {
		switch n := cur.(type) {
		case *Object:
			v, ok := n.Get(tok)
			if !ok {
				return nil, ErrNotFound
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(n) {
				return nil, ErrNotFound
			}
			cur = n[i]
		default:
			return nil, ErrNotFound
		}
	}
	return cur, nil
}

func pointerTokens(pointer string) ([]string, error) {
	if !strings.HasPrefix(pointer, "#/") {
		return nil, ErrUnsupportedPointer
	}
	frag, err := url.PathUnescape(pointer[1:])
	if err != nil {
		return nil, ErrUnsupportedPointer
	}
	p, err := jsonpointer.New(frag)
	if err != nil {
		return nil, ErrUnsupportedPointer
	}
	return p.DecodedTokens(), nil
}

// ResolveDeep returns a copy of node with every reachable reference replaced
// by its target, recursively. at is the location of node inside the document
// and is only used in warnings.
//
// A reference whose pointer is already being expanded further up the current
// branch is a cycle: it is left in place and recursion stops there. A
// reference that cannot be resolved is left in place too and reported in the
// returned warnings. The raw document is never modified.
func (r *Resolver) ResolveDeep(node any, at string) (any, []*ReferenceError) {
	x := &expansion{r: r, active: make(map[string]struct{}), budget: r.limit}
	out, _ := x.expand(node, at)
	return out, x.warnings
}

type expansion struct {
	r        *Resolver
	active   map[string]struct{}
	budget   int
	warnings []*ReferenceError
}

// expand reports partial when the result still contains a reference node.
func (x *expansion) expand(node any, at string) (out any, partial bool) {
	switch n := node.(type) {
	case *Object:
		if ref, ok := refOf(n); ok {
			return x.follow(n, ref, at)
		}
		obj := NewObject(n.Len())
		for _, k := range n.Keys() {
			v, _ := n.Get(k)
			ev, p := x.expand(v, at+"/"+jsonpointer.Escape(k))
			partial = partial || p
			obj.Set(k, ev)
		}
		return obj, partial
	case []any:
		arr := make([]any, len(n))
		for i, v := range n {
			ev, p := x.expand(v, at+"/"+strconv.Itoa(i))
			partial = partial || p
			arr[i] = ev
		}
		return arr, partial
	default:
		return node, false
	}
}

func (x *expansion) follow(n *Object, ref, at string) (any, bool) {
	if _, cyclic := x.active[ref]; cyclic {
		return n, true
	}
	if v, ok := x.r.memo[ref]; ok {
		return withSiblings(v, n), false
	}
	if x.budget <= 0 {
		x.warn(ref, at, ErrExpansionLimit)
		return n, true
	}
	x.budget--

	target, err := x.r.Resolve(ref)
	if err != nil {
		x.warn(ref, at, err)
		return n, true
	}
	x.active[ref] = struct{}{}
	v, partial := x.expand(target, ref)
	delete(x.active, ref)
	if !partial {
		x.r.memo[ref] = v
	}
	return withSiblings(v, n), partial
}

func (x *expansion) warn(ref, at string, reason error) {
	x.warnings = append(x.warnings, &ReferenceError{Pointer: ref, At: at, Reason: reason})
}

// refOf reports the $ref string of a reference node.
func refOf(n *Object) (string, bool) {
	v, ok := n.Get("$ref")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// withSiblings overlays keys declared next to "$ref" (e.g. a local
// description) on top of the resolved object.
func withSiblings(resolved any, ref *Object) any {
	if ref.Len() == 1 {
		return resolved
	}
	obj, ok := resolved.(*Object)
	if !ok {
		return resolved
	}
	out := NewObject(obj.Len() + ref.Len())
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		out.Set(k, v)
	}
	for _, k := range ref.Keys() {
		if k == "$ref" {
			continue
		}
		v, _ := ref.Get(k)
		out.Set(k, v)
	}
	return out
}
