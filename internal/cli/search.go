package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mark3labs/apiscout/internal/assistant"
	"github.com/mark3labs/apiscout/internal/search"
)

var searchRunner runFunc = runSearch

const (
	boldOn  = "\x1b[1m"
	boldOff = "\x1b[0m"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Search a document from the terminal",
		Long: "Rank the document's endpoints against a free-text query. The default output is the " +
			"markdown response the agent tool returns; --format list prints one ranked line per endpoint.",
		Example: strings.TrimSpace(`  apiscout search --input ./openapi.yaml create customer
  apiscout search --input ./openapi.yaml --language curl --max-results 3 orders
  apiscout search --input ./openapi.yaml --format list pets`),
		Args: cobra.MinimumNArgs(1),
		RunE: command(&searchRunner, func(cmd *cobra.Command, args []string, cfg *Config) error {
			if err := requireInput(cmd, args, cfg); err != nil {
				return err
			}
			cfg.Query = strings.TrimSpace(strings.Join(args, " "))
			switch cfg.Format {
			case "":
				cfg.Format = "markdown"
			case "markdown", "list":
			default:
				return newUsageError(fmt.Sprintf("search: unsupported --format %q (allowed: markdown, list)", cfg.Format))
			}
			return nil
		}),
	}
	addDocumentFlags(cmd)
	addToolFlags(cmd)
	cmd.Flags().String("format", "", "Output format (markdown|list)")
	return cmd
}

func runSearch(ctx context.Context, cfg *Config, out io.Writer, logger *zerolog.Logger) error {
	cat := newCatalog(cfg, logger, nil)
	if _, err := cat.LoadSource(ctx, cfg.Input); err != nil {
		return loadError(err)
	}
	res, err := newSearcher(cat, cfg, nil, "cli").Search(ctx, assistant.Request{Query: cfg.Query})
	if err != nil {
		return err
	}
	if cfg.Format != "list" {
		_, err := io.WriteString(out, res.Text)
		return err
	}

	if len(res.Hits) == 0 {
		_, err := fmt.Fprintln(out, assistant.NoResultsText)
		return err
	}
	color := isTerminal(out)
	for _, h := range res.Hits {
		summary := h.Summary
		if color {
			summary = search.Highlight(summary, cfg.Query, boldOn, boldOff)
		}
		if _, err := fmt.Fprintf(out, "%4d  %-7s %s  %s  [%s]\n", h.Score, h.Method, h.Path, summary, h.ID); err != nil {
			return err
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
