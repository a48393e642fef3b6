package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/apiscout/internal/assistant"
	"github.com/mark3labs/apiscout/internal/httpapi"
	"github.com/mark3labs/apiscout/internal/samples"
	"github.com/mark3labs/apiscout/internal/spec"
)

const (
	DefaultAddr      = ":8002"
	DefaultLogFormat = "console"
)

// Environment variables that fill values left unset by the config file.
const (
	EnvInput    = "APISCOUT_INPUT"
	EnvAddr     = "APISCOUT_ADDR"
	EnvLanguage = "APISCOUT_LANGUAGE"
)

// Config captures every input that influences a command after merging the
// config file, the environment, defaults and CLI overrides.
type Config struct {
	Input          string
	Addr           string
	Language       string
	BaseURL        string
	MaxResults     int
	RateLimit      float64
	AllowedOrigins []string
	LogFormat      string
	Verbose        bool
	Strict         bool
	IncludeTags    []string
	ExcludeTags    []string
	Methods        []string
	Paths          []string
	ExpansionLimit int
	ConfigPath     string

	// Per-command values, never read from the config file.
	Query    string
	Format   string
	Validate bool
}

func defaultConfig() Config {
	return Config{
		Addr:       DefaultAddr,
		Language:   string(samples.DefaultLanguage),
		MaxResults: assistant.DefaultMaxResults,
		RateLimit:  httpapi.DefaultRateLimit,
		LogFormat:  DefaultLogFormat,
	}
}

func resolveConfig(cmd *cobra.Command) (*Config, error) {
	var cfg Config

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := applyFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv reads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return newUsageError(fmt.Sprintf("read env file %q: %v", path, err))
}

func applyEnv(cfg *Config) {
	if cfg.Input == "" {
		cfg.Input = strings.TrimSpace(os.Getenv(EnvInput))
	}
	if cfg.Addr == "" {
		cfg.Addr = strings.TrimSpace(os.Getenv(EnvAddr))
	}
	if cfg.Language == "" {
		cfg.Language = strings.TrimSpace(os.Getenv(EnvLanguage))
	}
}

func applyDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = def.LogFormat
	}
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *Config) error {
	stringFlags := map[string]*string{
		"input":      &cfg.Input,
		"addr":       &cfg.Addr,
		"language":   &cfg.Language,
		"base-url":   &cfg.BaseURL,
		"log-format": &cfg.LogFormat,
		"format":     &cfg.Format,
	}
	for name, dst := range stringFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	sliceFlags := map[string]*[]string{
		"allowed-origins": &cfg.AllowedOrigins,
		"include-tags":    &cfg.IncludeTags,
		"exclude-tags":    &cfg.ExcludeTags,
		"methods":         &cfg.Methods,
		"paths":           &cfg.Paths,
	}
	for name, dst := range sliceFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeList(value)
	}

	boolFlags := map[string]*bool{
		"verbose":  &cfg.Verbose,
		"strict":   &cfg.Strict,
		"validate": &cfg.Validate,
	}
	for name, dst := range boolFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	if flags.Changed("max-results") {
		value, err := flags.GetInt("max-results")
		if err != nil {
			return err
		}
		cfg.MaxResults = value
	}
	if flags.Changed("rate-limit") {
		value, err := flags.GetFloat64("rate-limit")
		if err != nil {
			return err
		}
		cfg.RateLimit = value
	}
	if flags.Changed("expansion-limit") {
		value, err := flags.GetInt("expansion-limit")
		if err != nil {
			return err
		}
		cfg.ExpansionLimit = value
	}
	return nil
}

func (c *Config) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Addr = strings.TrimSpace(c.Addr)
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.AllowedOrigins = sanitizeList(c.AllowedOrigins)
	c.IncludeTags = sanitizeList(c.IncludeTags)
	c.ExcludeTags = sanitizeList(c.ExcludeTags)
	methods := sanitizeList(c.Methods)
	for i, m := range methods {
		methods[i] = strings.ToUpper(m)
	}
	c.Methods = methods
	c.Paths = sanitizeList(c.Paths)
}

func (c *Config) validate() error {
	if !knownLanguage(c.Language) {
		return newUsageError(fmt.Sprintf("unsupported language %q (allowed: %s)", c.Language, languageList()))
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return newUsageError(fmt.Sprintf("unsupported log format %q (allowed: console, json)", c.LogFormat))
	}
	if c.MaxResults < 1 {
		return newUsageError(fmt.Sprintf("maxResults must be at least 1, got %d", c.MaxResults))
	}
	for _, m := range c.Methods {
		if _, ok := spec.ParseMethod(m); !ok {
			return newUsageError(fmt.Sprintf("unsupported HTTP method %q", m))
		}
	}
	for _, p := range c.Paths {
		if _, err := regexp.Compile(p); err != nil {
			return newUsageError(fmt.Sprintf("invalid path pattern %q: %v", p, err))
		}
	}
	if c.ExpansionLimit < 0 {
		return newUsageError(fmt.Sprintf("expansionLimit must not be negative, got %d", c.ExpansionLimit))
	}
	if overlap := intersect(c.IncludeTags, c.ExcludeTags); len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}
	return nil
}

func knownLanguage(lang string) bool {
	for _, l := range samples.Languages {
		if string(l) == lang {
			return true
		}
	}
	return false
}

func languageList() string {
	names := make([]string, len(samples.Languages))
	for i, l := range samples.Languages {
		names[i] = string(l)
	}
	return strings.Join(names, ", ")
}

// buildOptions turns the endpoint filters into normalizer options.
func (c *Config) buildOptions() []spec.BuildOption {
	var opts []spec.BuildOption
	if len(c.IncludeTags) > 0 {
		opts = append(opts, spec.WithIncludeTags(c.IncludeTags))
	}
	if len(c.ExcludeTags) > 0 {
		opts = append(opts, spec.WithExcludeTags(c.ExcludeTags))
	}
	if len(c.Methods) > 0 {
		methods := make([]spec.HttpMethod, 0, len(c.Methods))
		for _, m := range c.Methods {
			if hm, ok := spec.ParseMethod(m); ok {
				methods = append(methods, hm)
			}
		}
		opts = append(opts, spec.WithMethods(methods))
	}
	if len(c.Paths) > 0 {
		opts = append(opts, spec.WithPathPatterns(c.Paths))
	}
	if c.ExpansionLimit > 0 {
		opts = append(opts, spec.WithExpansionLimit(c.ExpansionLimit))
	}
	return opts
}

func applyConfigFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		if err := applyConfigField(cfg, normalizeKey(key), value); err != nil {
			if errors.Is(err, errUnknownField) {
				return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
			}
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}
	return nil
}

var errUnknownField = errors.New("unknown field")

func applyConfigField(cfg *Config, key string, value any) error {
	var err error
	switch key {
	case "input":
		cfg.Input, err = valueAsString(value)
	case "addr":
		cfg.Addr, err = valueAsString(value)
	case "language":
		cfg.Language, err = valueAsString(value)
	case "baseurl":
		cfg.BaseURL, err = valueAsString(value)
	case "logformat":
		cfg.LogFormat, err = valueAsString(value)
	case "maxresults":
		cfg.MaxResults, err = valueAsInt(value)
	case "ratelimit":
		cfg.RateLimit, err = valueAsFloat(value)
	case "allowedorigins":
		cfg.AllowedOrigins, err = valueAsStringSlice(value)
	case "includetags":
		cfg.IncludeTags, err = valueAsStringSlice(value)
	case "excludetags":
		cfg.ExcludeTags, err = valueAsStringSlice(value)
	case "methods":
		cfg.Methods, err = valueAsStringSlice(value)
	case "paths":
		cfg.Paths, err = valueAsStringSlice(value)
	case "expansionlimit":
		cfg.ExpansionLimit, err = valueAsInt(value)
	case "verbose":
		cfg.Verbose, err = valueAsBool(value)
	case "strict":
		cfg.Strict, err = valueAsBool(value)
	default:
		return errUnknownField
	}
	return err
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case nil:
		return 0, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", val)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func valueAsFloat(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case nil:
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}

// sanitizeList trims, drops empties and removes duplicates, keeping order.
func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}
