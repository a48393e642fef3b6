package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const defaultConfigFile = "apiscout.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample apiscout configuration file",
		Long:  "Scaffold a commented apiscout configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			return initRunner(cmd.Context(), &InitConfig{OutputPath: out, Force: force}, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")
	return cmd
}

func runInit(_ context.Context, cfg *InitConfig, stdout io.Writer) error {
	target := strings.TrimSpace(cfg.OutputPath)
	if target == "" {
		target = defaultConfigFile
	}
	path, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("init: resolve %q: %w", target, err)
	}

	if st, err := os.Stat(path); err == nil && st.Mode().IsRegular() && !cfg.Force {
		return newUsageError(fmt.Sprintf("init: %s already exists; pass --force to replace it or point apiscout at it with --config %s", path, path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("init: create config directory: %w", err)
	}

	// Write next to the target and rename so a crash never leaves half a config.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".apiscout-*.yaml")
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(strings.TrimSpace(sampleConfigYAML) + "\n"); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("init: write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("init: write %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("init: place config at %s: %w", path, err)
	}

	fmt.Fprintf(stdout, "Wrote sample config to %s\n", path)
	fmt.Fprintf(stdout, "Set input: to your OpenAPI document, then run:\n  apiscout serve --config %s\n  apiscout search --config %s <query>\n", path, path)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# apiscout configuration (YAML)
# All fields are optional. Command-line flags override config values;
# APISCOUT_INPUT, APISCOUT_ADDR and APISCOUT_LANGUAGE (also read from .env)
# fill values this file leaves unset.

# Path or URL to the OpenAPI 3 or Swagger 2.0 document.
# input: ./openapi.yaml

# Listen address for "apiscout serve".
# addr: ":8002"

# Code sample language in search responses (javascript|python|curl|go).
# language: javascript

# Base URL for code samples when the document declares no server.
# baseURL: https://api.example.com

# Maximum endpoints per search response.
# maxResults: 5

# Search requests per second accepted by the HTTP API; negative disables.
# rateLimit: 20

# Browser origins allowed to call the HTTP API (default any).
# allowedOrigins: [http://localhost:3000]

# Only keep operations with these tags (comma-separated or list).
# includeTags: [public]

# Drop operations with these tags.
# excludeTags: [internal]

# Only keep operations using these HTTP methods.
# methods: [GET, POST]

# Only keep operations whose path matches one of these regular expressions.
# paths: ["^/v2/"]

# Maximum reference expansions per resolved value (default 10000).
# expansionLimit: 10000

# Validate documents with kin-openapi on load; findings are logged as warnings.
# strict: false

# Log format (console|json) and verbosity.
# logFormat: console
# verbose: false
`
