package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// captureRun swaps *run for a stub that records the resolved config.
func captureRun(t *testing.T, run *runFunc) **Config {
	t.Helper()
	captured := new(*Config)
	orig := *run
	*run = func(ctx context.Context, cfg *Config, out io.Writer, logger *zerolog.Logger) error {
		*captured = cfg
		return nil
	}
	t.Cleanup(func() { *run = orig })
	return captured
}

func TestServeConfigFromFlags(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	captured := captureRun(t, &serveRunner)

	root.SetArgs([]string{
		"--verbose",
		"--log-format", "json",
		"serve",
		"--input", "spec.yaml",
		"--addr", ":9999",
		"--language", "Python",
		"--base-url", "https://sandbox.example.com",
		"--max-results", "3",
		"--rate-limit", "2.5",
		"--allowed-origins", "http://a.local,http://b.local",
		"--include-tags", "foo,bar,foo",
		"--exclude-tags", "baz",
		"--methods", "get,post",
		"--paths", "^/v2/, ^/v2/",
		"--expansion-limit", "50",
		"--strict",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := *captured
	if cfg == nil {
		t.Fatalf("expected config to be captured")
	}

	if cfg.Input != "spec.yaml" {
		t.Errorf("input mismatch: got %q", cfg.Input)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("addr mismatch: got %q", cfg.Addr)
	}
	if cfg.Language != "python" {
		t.Errorf("language mismatch: got %q", cfg.Language)
	}
	if cfg.BaseURL != "https://sandbox.example.com" {
		t.Errorf("base url mismatch: got %q", cfg.BaseURL)
	}
	if cfg.MaxResults != 3 {
		t.Errorf("max results mismatch: got %d", cfg.MaxResults)
	}
	if cfg.RateLimit != 2.5 {
		t.Errorf("rate limit mismatch: got %v", cfg.RateLimit)
	}
	if want := []string{"http://a.local", "http://b.local"}; !equalStringSlices(cfg.AllowedOrigins, want) {
		t.Errorf("allowed origins mismatch: got %v", cfg.AllowedOrigins)
	}
	if want := []string{"foo", "bar"}; !equalStringSlices(cfg.IncludeTags, want) {
		t.Errorf("include tags mismatch: got %v", cfg.IncludeTags)
	}
	if want := []string{"baz"}; !equalStringSlices(cfg.ExcludeTags, want) {
		t.Errorf("exclude tags mismatch: got %v", cfg.ExcludeTags)
	}
	if want := []string{"GET", "POST"}; !equalStringSlices(cfg.Methods, want) {
		t.Errorf("methods mismatch: got %v", cfg.Methods)
	}
	if want := []string{"^/v2/"}; !equalStringSlices(cfg.Paths, want) {
		t.Errorf("paths mismatch: got %v", cfg.Paths)
	}
	if cfg.ExpansionLimit != 50 {
		t.Errorf("expansion limit mismatch: got %d", cfg.ExpansionLimit)
	}
	if got := len(cfg.buildOptions()); got != 5 {
		t.Errorf("expected tag, method, path and limit options, got %d", got)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("log format mismatch: got %q", cfg.LogFormat)
	}
	if !cfg.Strict {
		t.Errorf("expected strict true")
	}
	if !cfg.Verbose {
		t.Errorf("expected verbose true")
	}
}

func TestServeConfigDefaults(t *testing.T) {
	t.Setenv(EnvInput, "")
	t.Setenv(EnvAddr, "")
	t.Setenv(EnvLanguage, "")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	captured := captureRun(t, &serveRunner)
	root.SetArgs([]string{"serve"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := *captured
	if cfg.Input != "" {
		t.Errorf("serve must not require an input, got %q", cfg.Input)
	}
	if cfg.Addr != DefaultAddr || cfg.Language != "javascript" || cfg.MaxResults != 5 || cfg.LogFormat != "console" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.RateLimit != 20 {
		t.Errorf("rate limit default: got %v", cfg.RateLimit)
	}
}

func TestConfigPrecedence(t *testing.T) {
	t.Setenv(EnvInput, "env-spec.yaml")
	t.Setenv(EnvAddr, ":7000")
	t.Setenv(EnvLanguage, "")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := strings.TrimSpace(`input: config-spec.yaml
language: curl
base_url: https://cfg.example.com
max-results: 7
rateLimit: 4
includeTags:
  - cfgFoo
excludeTags: cfgBar
methods: get
paths: ^/cfg
expansion-limit: "25"
strict: "yes"
verbose: true
`) + "\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	captured := captureRun(t, &serveRunner)

	root.SetArgs([]string{
		"--config", configPath,
		"serve",
		"--input", "flag-spec.yaml",
		"--include-tags", "flagTag",
		"--strict=false",
	})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	cfg := *captured
	if cfg == nil {
		t.Fatalf("expected config to be captured")
	}

	if cfg.Input != "flag-spec.yaml" {
		t.Errorf("input: want %q got %q", "flag-spec.yaml", cfg.Input)
	}
	if cfg.Addr != ":7000" {
		t.Errorf("addr: environment should fill unset value, got %q", cfg.Addr)
	}
	if cfg.Language != "curl" {
		t.Errorf("language: want curl got %q", cfg.Language)
	}
	if cfg.BaseURL != "https://cfg.example.com" {
		t.Errorf("base url: got %q", cfg.BaseURL)
	}
	if cfg.MaxResults != 7 || cfg.RateLimit != 4 {
		t.Errorf("numbers from config: got %d / %v", cfg.MaxResults, cfg.RateLimit)
	}
	if want := []string{"flagTag"}; !equalStringSlices(cfg.IncludeTags, want) {
		t.Errorf("include tags: want %v got %v", want, cfg.IncludeTags)
	}
	if want := []string{"cfgBar"}; !equalStringSlices(cfg.ExcludeTags, want) {
		t.Errorf("exclude tags: want %v got %v", want, cfg.ExcludeTags)
	}
	if want := []string{"GET"}; !equalStringSlices(cfg.Methods, want) {
		t.Errorf("methods: want %v got %v", want, cfg.Methods)
	}
	if want := []string{"^/cfg"}; !equalStringSlices(cfg.Paths, want) {
		t.Errorf("paths: want %v got %v", want, cfg.Paths)
	}
	if cfg.ExpansionLimit != 25 {
		t.Errorf("expansion limit: got %d", cfg.ExpansionLimit)
	}
	if cfg.Strict {
		t.Errorf("expected strict false after flag override")
	}
	if !cfg.Verbose {
		t.Errorf("expected verbose true from config file")
	}
	if cfg.ConfigPath != configPath {
		t.Errorf("config path mismatch: got %q", cfg.ConfigPath)
	}
}

func TestConfigEnvFillsInput(t *testing.T) {
	t.Setenv(EnvInput, "from-env.yaml")
	t.Setenv(EnvLanguage, "go")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	captured := captureRun(t, &mcpRunner)
	root.SetArgs([]string{"mcp"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := (*captured).Input; got != "from-env.yaml" {
		t.Errorf("input: got %q", got)
	}
	if got := (*captured).Language; got != "go" {
		t.Errorf("language: got %q", got)
	}
}

func TestConfigUnknownKey(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(configPath, []byte("unknown: value\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	captureRun(t, &serveRunner)
	root.SetArgs([]string{"--config", configPath, "serve"})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected an error")
	}
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "unknown field") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	t.Setenv(EnvInput, "")
	t.Setenv(EnvLanguage, "")
	cases := map[string][]string{
		"language":   {"serve", "--language", "cobol"},
		"log":        {"--log-format", "xml", "serve"},
		"max":        {"serve", "--max-results", "-1"},
		"method":     {"serve", "--methods", "FETCH"},
		"overlap":    {"serve", "--include-tags", "a", "--exclude-tags", "a"},
		"pattern":    {"serve", "--paths", "(unclosed"},
		"limit":      {"serve", "--expansion-limit", "-3"},
		"no input":   {"mcp"},
		"no query":   {"search", "--input", "spec.yaml"},
		"bad format": {"search", "--input", "spec.yaml", "--format", "xml", "pets"},
	}
	captureRun(t, &serveRunner)
	captureRun(t, &mcpRunner)
	captureRun(t, &searchRunner)
	for name, args := range cases {
		root := NewRootCmd()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs(args)
		if err := root.Execute(); err == nil {
			t.Errorf("%s: expected an error for %v", name, args)
		}
	}
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
