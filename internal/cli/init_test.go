package cli

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestInit_WritesSampleConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--out", path})

	if err := root.Execute(); err != nil {
		t.Fatalf("init execute: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "apiscout configuration") {
		t.Fatalf("unexpected config contents: %s", s)
	}
	if !strings.Contains(out.String(), "Wrote sample config to") {
		t.Fatalf("unexpected output: %s", out.String())
	}
	if !strings.Contains(out.String(), "apiscout serve --config "+path) {
		t.Fatalf("expected the serve next step, got: %s", out.String())
	}
	leftovers, _ := filepath.Glob(filepath.Join(dir, "nested", ".apiscout-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temporary files left behind: %v", leftovers)
	}
}

// Every documented key, once uncommented, must be accepted by the loader.
func TestInit_SampleKeysAreKnown(t *testing.T) {
	t.Parallel()
	var uncommented strings.Builder
	for _, line := range strings.Split(sampleConfigYAML, "\n") {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, ": ") && !strings.HasSuffix(line, ":") {
			candidate := strings.TrimPrefix(line, "# ")
			var parsed map[string]any
			if yaml.Unmarshal([]byte(candidate), &parsed) == nil && len(parsed) == 1 {
				uncommented.WriteString(candidate + "\n")
			}
		}
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(uncommented.String()), &raw); err != nil {
		t.Fatalf("parse uncommented sample: %v\n%s", err, uncommented.String())
	}
	if len(raw) < 10 {
		t.Fatalf("expected the sample to document most keys, got %v", raw)
	}
	var cfg Config
	for key, value := range raw {
		if err := applyConfigField(&cfg, normalizeKey(key), value); err != nil {
			t.Errorf("sample key %q: %v", key, err)
		}
	}
}

func TestInit_ExistingWithoutForce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--out", path})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected error for existing file without --force")
	}
	if _, ok := err.(usageError); !ok {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "--config "+path) {
		t.Fatalf("expected a hint to use the existing file, got: %v", err)
	}

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--out", path, "--force"})
	if err := root.Execute(); err != nil {
		t.Fatalf("init --force: %v", err)
	}
}
