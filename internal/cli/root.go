package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version is reported by --version, the health endpoint and the MCP
// handshake. Release builds set it with -ldflags.
var Version = "dev"

// runFunc is the body of a command once its configuration is resolved.
// Commands keep theirs in a package variable so tests can swap it.
type runFunc func(ctx context.Context, cfg *Config, out io.Writer, logger *zerolog.Logger) error

// Execute runs the apiscout CLI until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apiscout",
		Short: "Browse and search OpenAPI documents, for people and for agents",
		Long: "apiscout loads an OpenAPI 3 or Swagger 2.0 document, resolves its references and " +
			"serves ranked, grouped endpoint search over REST, MCP or the terminal.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	cmd.SetFlagErrorFunc(flagError)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")
	cmd.PersistentFlags().String("log-format", "", "Log output format (console|json)")

	for _, sub := range []*cobra.Command{
		newServeCmd(),
		newMCPCmd(),
		newSearchCmd(),
		newInspectCmd(),
		newInitCmd(),
	} {
		sub.SetFlagErrorFunc(flagError)
		cmd.AddCommand(sub)
	}
	return cmd
}

func flagError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}

// addDocumentFlags registers the flags shared by every command that loads a
// document.
func addDocumentFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("input", "i", "", "Path or URL to the OpenAPI/Swagger document")
	flags.StringSlice("include-tags", nil, "Only keep operations with these tags")
	flags.StringSlice("exclude-tags", nil, "Drop operations with these tags")
	flags.StringSlice("methods", nil, "Only keep operations using these HTTP methods")
	flags.StringSlice("paths", nil, "Only keep operations whose path matches one of these regular expressions")
	flags.Int("expansion-limit", 0, "Maximum reference expansions per resolved value (default 10000)")
	flags.Bool("strict", false, "Validate the document with kin-openapi and log findings as warnings")
}

// addToolFlags registers the flags that shape search tool responses.
func addToolFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("language", "l", "", "Code sample language (javascript|python|curl|go)")
	flags.String("base-url", "", "Base URL used in code samples when the document declares no server")
	flags.Int("max-results", 0, "Maximum number of endpoints in a search response")
}

// command wires a runFunc behind config resolution and logger setup.
func command(run *runFunc, prepare func(cmd *cobra.Command, args []string, cfg *Config) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		if prepare != nil {
			if err := prepare(cmd, args, cfg); err != nil {
				return err
			}
		}
		logger := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.Verbose)
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return (*run)(ctx, cfg, cmd.OutOrStdout(), logger)
	}
}

func requireInput(cmd *cobra.Command, _ []string, cfg *Config) error {
	if cfg.Input == "" {
		return newUsageError(fmt.Sprintf("%s: --input is required (set via flag, config file or %s)", cmd.Name(), EnvInput))
	}
	return nil
}
