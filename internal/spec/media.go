package spec

import "strings"

var mediaPreference = []string{
	"application/json",
	"application/x-www-form-urlencoded",
	"multipart/form-data",
	"text/plain",
}

// PreferredMedia picks the media type used for samples and schema search:
// JSON first, then form encodings, then plain text, then whatever was declared
// first. Vendor JSON types such as application/problem+json count as JSON
// after an exact match. It returns nil for an empty list.
func PreferredMedia(content []*MediaType) *MediaType {
	if len(content) == 0 {
		return nil
	}
	for _, want := range mediaPreference {
		for _, mt := range content {
			if mediaBase(mt.Name) == want {
				return mt
			}
		}
		if want == "application/json" {
			for _, mt := range content {
				if strings.HasSuffix(mediaBase(mt.Name), "+json") {
					return mt
				}
			}
		}
	}
	return content[0]
}

func mediaBase(name string) string {
	if i := strings.IndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(strings.TrimSpace(name))
}

// BodySchema returns the preferred request body schema, or nil.
func (e *Endpoint) BodySchema() *Schema {
	if e.RequestBody == nil {
		return nil
	}
	if mt := PreferredMedia(e.RequestBody.Content); mt != nil {
		return mt.Schema
	}
	return nil
}

// BodyMediaType returns the preferred request content type, or "".
func (e *Endpoint) BodyMediaType() string {
	if e.RequestBody == nil {
		return ""
	}
	if mt := PreferredMedia(e.RequestBody.Content); mt != nil {
		return mt.Name
	}
	return ""
}
