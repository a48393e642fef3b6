package spec

import (
	"context"
	"testing"
)

func TestLint(t *testing.T) {
	t.Parallel()
	valid := mustParse(t, `openapi: 3.0.0
info: { title: ok, version: "1" }
paths:
  /a:
    get:
      responses:
        "200": { description: ok }
`)
	if issues := Lint(context.Background(), valid); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}

	// Missing info and an operation without responses.
	invalid := mustParse(t, `openapi: 3.0.0
paths:
  /a:
    get: {}
`)
	issues := Lint(context.Background(), invalid)
	if len(issues) == 0 {
		t.Fatalf("expected issues")
	}
	if _, err := Normalize(invalid); err != nil {
		t.Fatalf("lint issues must not block normalization: %v", err)
	}
}
