package spec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-openapi/jsonpointer"
	"github.com/rs/zerolog"
)

// BuildOption configures how a Document is built from a raw tree.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[HttpMethod]struct{}
	pathRes     []*regexp.Regexp
	limit       int
	logger      *zerolog.Logger
}

// WithIncludeTags keeps only endpoints that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		c.includeTags = addTags(c.includeTags, tags)
	}
}

// WithExcludeTags removes endpoints that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		c.excludeTags = addTags(c.excludeTags, tags)
	}
}

func addTags(set map[string]struct{}, tags []string) map[string]struct{} {
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if set == nil {
			set = make(map[string]struct{}, len(tags))
		}
		set[t] = struct{}{}
	}
	return set
}

// WithMethods keeps only endpoints using one of the provided HTTP methods.
func WithMethods(methods []HttpMethod) BuildOption {
	return func(c *buildConfig) {
		for _, m := range methods {
			if c.methods == nil {
				c.methods = make(map[HttpMethod]struct{}, len(methods))
			}
			c.methods[HttpMethod(strings.ToUpper(string(m)))] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only endpoints whose path matches at least one of the
// provided regular expressions. An invalid pattern matches nothing.
func WithPathPatterns(patterns []string) BuildOption {
	return func(c *buildConfig) {
		for _, p := range patterns {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			re, err := regexp.Compile(p)
			if err != nil {
				re = regexp.MustCompile("a^$")
			}
			c.pathRes = append(c.pathRes, re)
		}
	}
}

// WithExpansionLimit overrides DefaultExpansionLimit.
func WithExpansionLimit(n int) BuildOption {
	return func(c *buildConfig) { c.limit = n }
}

// WithLogger sets the logger used for non-fatal warnings.
func WithLogger(l *zerolog.Logger) BuildOption {
	return func(c *buildConfig) { c.logger = l }
}

// Normalize builds the entity model from a raw OpenAPI 3 tree. It fails with
// a ValidationError when the "openapi" marker or a non-empty "paths" mapping
// is missing; unresolvable references only produce warnings.
//
// Endpoints follow the declaration order of paths and then methods within a
// path. Categories are seeded from the global tags list and extended with
// operation tags in first-seen order.
func Normalize(raw *Object, opts ...BuildOption) (*Document, error) {
	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	log := cfg.logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}

	if raw == nil {
		return nil, &SpecError{Code: ValidationError, Message: "invalid OpenAPI document: empty document"}
	}
	if raw.String("openapi") == "" {
		return nil, &SpecError{Code: ValidationError, Message: "invalid OpenAPI document: missing 'openapi' version", JSONPointer: "#/openapi"}
	}
	paths, ok := raw.Object("paths")
	if !ok || paths.Len() == 0 {
		return nil, &SpecError{Code: ValidationError, Message: "invalid OpenAPI document: missing or empty 'paths'", JSONPointer: "#/paths"}
	}

	n := &normalizer{
		cfg:         cfg,
		log:         log,
		resolver:    NewResolver(raw).WithLimit(cfg.limit),
		schemas:     newSchemaBuilder(),
		endpointIDs: newIDAllocator(),
		categoryIDs: newIDAllocator(),
		categories:  make(map[string]*Category),
	}

	doc := &Document{
		OpenAPI: raw.String("openapi"),
		Title:   "API Documentation",
		Version: "1.0",
	}
	if info, ok := n.resolveObject(raw, "info", "#/info"); ok {
		if t := info.String("title"); t != "" {
			doc.Title = t
		}
		if v := info.String("version"); v != "" {
			doc.Version = v
		}
		doc.Description = info.String("description")
	}
	if servers, ok := n.resolveArray(raw, "servers", "#/servers"); ok {
		doc.Servers = toServers(servers)
	}
	docSecurity := toSecurity(raw)

	if tags, ok := n.resolveArray(raw, "tags", "#/tags"); ok {
		for _, t := range tags {
			tag, ok := t.(*Object)
			if !ok || tag.String("name") == "" {
				continue
			}
			n.category(tag.String("name"), tag)
		}
	}

	for _, p := range paths.Keys() {
		pv, _ := paths.Get(p)
		at := "#/paths/" + jsonpointer.Escape(p)
		resolved, warnings := n.resolver.ResolveDeep(pv, at)
		n.warn(warnings)
		item, ok := resolved.(*Object)
		if !ok {
			continue
		}
		n.pathItem(doc, p, item, at, docSecurity)
	}

	if components, ok := raw.Object("components"); ok {
		resolved, warnings := n.resolver.ResolveDeep(components, "#/components")
		n.warn(warnings)
		doc.Components, _ = resolved.(*Object)
	}

	doc.Categories = n.order
	doc.Warnings = n.warnings
	return doc, nil
}

type normalizer struct {
	cfg         *buildConfig
	log         *zerolog.Logger
	resolver    *Resolver
	schemas     *schemaBuilder
	endpointIDs *idAllocator
	categoryIDs *idAllocator
	categories  map[string]*Category
	order       []*Category
	warnings    []*ReferenceError
}

func (n *normalizer) warn(ws []*ReferenceError) {
	for _, w := range ws {
		n.log.Warn().Str("ref", w.Pointer).Str("at", w.At).Err(w.Reason).Msg("unresolved reference left in place")
	}
	n.warnings = append(n.warnings, ws...)
}

func (n *normalizer) resolveObject(raw *Object, key, at string) (*Object, bool) {
	v, ok := raw.Get(key)
	if !ok {
		return nil, false
	}
	resolved, warnings := n.resolver.ResolveDeep(v, at)
	n.warn(warnings)
	obj, ok := resolved.(*Object)
	return obj, ok
}

func (n *normalizer) resolveArray(raw *Object, key, at string) ([]any, bool) {
	v, ok := raw.Get(key)
	if !ok {
		return nil, false
	}
	resolved, warnings := n.resolver.ResolveDeep(v, at)
	n.warn(warnings)
	arr, ok := resolved.([]any)
	return arr, ok
}

// category returns the category for name, creating it on first use.
func (n *normalizer) category(name string, decl *Object) *Category {
	if c, ok := n.categories[name]; ok {
		return c
	}
	c := &Category{ID: n.categoryIDs.next(name), Name: name}
	if decl != nil {
		c.Description = decl.String("description")
		if ed, ok := decl.Object("externalDocs"); ok {
			c.ExternalDocs = ed.String("url")
		}
	}
	n.categories[name] = c
	n.order = append(n.order, c)
	return c
}

func (n *normalizer) pathItem(doc *Document, path string, item *Object, at string, docSecurity []SecurityRequirement) {
	base := n.parameters(item, at)
	var pathServers []string
	if servers, ok := item.Array("servers"); ok {
		pathServers = serverURLs(toServers(servers))
	}

	for _, key := range item.Keys() {
		method, ok := ParseMethod(key)
		if !ok {
			continue
		}
		op, ok := item.Object(key)
		if !ok {
			continue
		}
		if !n.allowMethodAndPath(method, path) {
			continue
		}
		opAt := at + "/" + jsonpointer.Escape(key)

		tags := cleanTags(op.Strings("tags"))
		if len(tags) == 0 {
			tags = []string{"default"}
		}
		if !allowByTags(tags, n.cfg) {
			continue
		}

		ep := &Endpoint{
			OperationID: op.String("operationId"),
			Path:        path,
			Method:      method,
			Summary:     op.String("summary"),
			Description: op.String("description"),
			Parameters:  mergeParameters(base, n.parameters(op, opAt)),
			Tags:        tags,
			PrimaryTag:  tags[0],
			Deprecated:  op.Bool("deprecated"),
		}
		idSource := ep.OperationID
		if idSource == "" {
			idSource = strings.ToLower(string(method)) + pathIDReplacer.Replace(path)
		}
		ep.ID = n.endpointIDs.next(idSource)

		if rb, ok := op.Object("requestBody"); ok && !isRef(rb) {
			ep.RequestBody = &RequestBody{
				Description: rb.String("description"),
				Required:    rb.Bool("required"),
				Content:     n.content(rb),
			}
		}
		if responses, ok := op.Object("responses"); ok {
			for _, status := range responses.Keys() {
				r, ok := responses.Object(status)
				if !ok || isRef(r) {
					continue
				}
				ep.Responses = append(ep.Responses, &Response{
					Status:      status,
					Description: r.String("description"),
					Content:     n.content(r),
				})
			}
		}

		if _, declared := op.Get("security"); declared {
			ep.Security = toSecurity(op)
		} else {
			ep.Security = docSecurity
		}
		switch servers, ok := op.Array("servers"); {
		case ok:
			ep.Servers = serverURLs(toServers(servers))
		case pathServers != nil:
			ep.Servers = pathServers
		default:
			ep.Servers = serverURLs(doc.Servers)
		}
		if ed, ok := op.Object("externalDocs"); ok {
			ep.ExternalDocs = ed.String("url")
		}

		for _, t := range tags {
			n.category(t, nil)
		}
		doc.Endpoints = append(doc.Endpoints, ep)
	}
}

var pathIDReplacer = strings.NewReplacer("/", "_", "{", "_", "}", "_")

func (n *normalizer) allowMethodAndPath(m HttpMethod, path string) bool {
	if len(n.cfg.methods) > 0 {
		if _, ok := n.cfg.methods[m]; !ok {
			return false
		}
	}
	if len(n.cfg.pathRes) == 0 {
		return true
	}
	for _, re := range n.cfg.pathRes {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func allowByTags(tags []string, cfg *buildConfig) bool {
	if len(cfg.includeTags) > 0 {
		found := false
		for _, t := range tags {
			if _, ok := cfg.includeTags[t]; ok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, t := range tags {
		if _, ok := cfg.excludeTags[t]; ok {
			return false
		}
	}
	return true
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// parameters converts the "parameters" list of a path item or operation.
// Entries that are still references, lack a name or use an unknown location
// are skipped.
func (n *normalizer) parameters(owner *Object, at string) []*Parameter {
	list, _ := owner.Array("parameters")
	out := make([]*Parameter, 0, len(list))
	for i, v := range list {
		obj, ok := v.(*Object)
		if !ok || isRef(obj) {
			continue
		}
		name := obj.String("name")
		loc, ok := parseLocation(obj.String("in"))
		if name == "" || !ok {
			n.log.Debug().Str("at", at+"/parameters/"+strconv.Itoa(i)).Str("in", obj.String("in")).Msg("skipping parameter")
			continue
		}
		p := &Parameter{
			Name:        name,
			In:          loc,
			Required:    obj.Bool("required") || loc == InPath,
			Deprecated:  obj.Bool("deprecated"),
			Description: obj.String("description"),
		}
		if sv, ok := obj.Get("schema"); ok {
			p.Schema = n.schemas.build(sv)
		} else if mts := n.content(obj); len(mts) > 0 {
			p.Schema = PreferredMedia(mts).Schema
		}
		p.Example, _ = obj.Get("example")
		out = mergeParameters(out, []*Parameter{p})
	}
	return out
}

// mergeParameters overlays override onto base by (in, name). An override
// takes the position of the parameter it replaces; new ones are appended.
func mergeParameters(base, override []*Parameter) []*Parameter {
	out := make([]*Parameter, len(base), len(base)+len(override))
	copy(out, base)
	index := make(map[string]int, len(out))
	for i, p := range out {
		index[p.key()] = i
	}
	for _, p := range override {
		if i, ok := index[p.key()]; ok {
			out[i] = p
			continue
		}
		index[p.key()] = len(out)
		out = append(out, p)
	}
	return out
}

// content converts a "content" mapping in declaration order.
func (n *normalizer) content(owner *Object) []*MediaType {
	content, ok := owner.Object("content")
	if !ok {
		return nil
	}
	out := make([]*MediaType, 0, content.Len())
	for _, name := range content.Keys() {
		mt, ok := content.Object(name)
		if !ok {
			continue
		}
		m := &MediaType{Name: name}
		if sv, ok := mt.Get("schema"); ok {
			m.Schema = n.schemas.build(sv)
		}
		if ex, ok := mt.Get("example"); ok {
			m.Example = ex
		} else if exs, ok := mt.Object("examples"); ok && exs.Len() > 0 {
			first, _ := exs.Object(exs.Keys()[0])
			m.Example, _ = first.Get("value")
		}
		out = append(out, m)
	}
	return out
}

func isRef(obj *Object) bool {
	_, ok := refOf(obj)
	return ok
}

func toServers(list []any) []Server {
	out := make([]Server, 0, len(list))
	for _, v := range list {
		s, ok := v.(*Object)
		if !ok || s.String("url") == "" {
			continue
		}
		out = append(out, Server{URL: s.String("url"), Description: s.String("description")})
	}
	return out
}

func serverURLs(servers []Server) []string {
	out := make([]string, 0, len(servers))
	for _, s := range servers {
		out = append(out, s.URL)
	}
	return out
}

func toSecurity(owner *Object) []SecurityRequirement {
	list, ok := owner.Array("security")
	if !ok {
		return nil
	}
	out := make([]SecurityRequirement, 0, len(list))
	for _, v := range list {
		obj, ok := v.(*Object)
		if !ok {
			continue
		}
		req := make(SecurityRequirement, obj.Len())
		for _, name := range obj.Keys() {
			req[name] = obj.Strings(name)
		}
		out = append(out, req)
	}
	return out
}
