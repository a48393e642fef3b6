package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mark3labs/apiscout/internal/search"
	"github.com/mark3labs/apiscout/internal/spec"
)

var inspectRunner runFunc = runInspect

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a document: categories, endpoints and unresolved references",
		Long: "Load and normalize a document, then print its categories with their endpoints and " +
			"any reference warnings. --validate also runs kin-openapi validation and fails when it finds issues.",
		Example: strings.TrimSpace(`  apiscout inspect --input ./openapi.yaml
  apiscout inspect --input ./swagger.json --validate`),
		RunE: command(&inspectRunner, requireInput),
	}
	addDocumentFlags(cmd)
	cmd.Flags().Bool("validate", false, "Validate the document and exit non-zero on findings")
	return cmd
}

func runInspect(ctx context.Context, cfg *Config, out io.Writer, logger *zerolog.Logger) error {
	raw, err := spec.Load(ctx, cfg.Input)
	if err != nil {
		return loadError(err)
	}
	opts := append([]spec.BuildOption{spec.WithLogger(logger)}, cfg.buildOptions()...)
	doc, err := spec.Normalize(raw, opts...)
	if err != nil {
		return loadError(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (version %s)\n", doc.Title, doc.Version)
	fmt.Fprintf(&b, "OpenAPI: %s\n", doc.OpenAPI)
	for _, s := range doc.Servers {
		fmt.Fprintf(&b, "Server:  %s\n", s.URL)
	}
	fmt.Fprintf(&b, "Endpoints: %d in %d categories\n", len(doc.Endpoints), len(doc.Categories))

	for _, g := range search.GroupEndpoints(doc.Endpoints, doc.Categories) {
		fmt.Fprintf(&b, "\n%s (%d)\n", g.Category.Name, len(g.Endpoints))
		for _, ep := range g.Endpoints {
			line := fmt.Sprintf("  %-7s %s", ep.Method, ep.Path)
			if ep.Summary != "" {
				line += "  " + ep.Summary
			}
			if ep.Deprecated {
				line += "  (deprecated)"
			}
			fmt.Fprintf(&b, "%s  [%s]\n", line, ep.ID)
		}
	}

	if len(doc.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings (%d):\n", len(doc.Warnings))
		for _, w := range doc.WarningMessages() {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	var issues []*spec.SpecError
	if cfg.Validate {
		issues = spec.Lint(ctx, raw)
		if len(issues) == 0 {
			b.WriteString("\nValidation: ok\n")
		} else {
			fmt.Fprintf(&b, "\nValidation: %d issue(s)\n", len(issues))
			for _, issue := range issues {
				if issue.JSONPointer != "" {
					fmt.Fprintf(&b, "  - [%s] %s: %s\n", issue.Code, issue.JSONPointer, issue.Message)
				} else {
					fmt.Fprintf(&b, "  - [%s] %s\n", issue.Code, issue.Message)
				}
			}
		}
	}

	if _, err := io.WriteString(out, b.String()); err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("inspect: %d validation issue(s) in %s", len(issues), cfg.Input)
	}
	return nil
}
