package spec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	slugStripRe    = regexp.MustCompile(`[^a-z0-9\s_-]`)
	slugCollapseRe = regexp.MustCompile(`[\s_-]+`)
)

// slugify applies the slug rules and may return "".
func slugify(s string) string {
	s = strings.ToLower(s)
	s = slugStripRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugCollapseRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// CreateSafeID turns a human-readable name into a URL-safe identifier. It
// never returns "": names with no usable characters get a random id.
func CreateSafeID(name string) string {
	if id := slugify(name); id != "" {
		return id
	}
	return "id-" + uuid.NewString()[:8]
}

// stableID is CreateSafeID with a fallback derived from name, so reloading the
// same document yields the same ids.
func stableID(name string) string {
	if id := slugify(name); id != "" {
		return id
	}
	return "id-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()[:8]
}

// idAllocator hands out unique ids in call order: the second "pets" becomes
// "pets-2".
type idAllocator struct {
	used map[string]struct{}
}

func newIDAllocator() *idAllocator {
	return &idAllocator{used: make(map[string]struct{})}
}

func (a *idAllocator) next(name string) string {
	base := stableID(name)
	id := base
	for n := 2; ; n++ {
		if _, taken := a.used[id]; !taken {
			break
		}
		id = base + "-" + strconv.Itoa(n)
	}
	a.used[id] = struct{}{}
	return id
}
