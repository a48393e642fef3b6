package cli

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mark3labs/apiscout/internal/mcpserver"
)

var mcpRunner runFunc = runMCP

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Expose the documentation search tool to agents over MCP (stdio)",
		Long: "Run a Model Context Protocol server on stdin/stdout offering the " +
			mcpserver.SearchToolName + " and " + mcpserver.EndpointToolName + " tools. Logs go to stderr.",
		Example: strings.TrimSpace(`  apiscout mcp --input https://petstore3.swagger.io/api/v3/openapi.json
  apiscout mcp --input ./openapi.yaml --language python --log-format json`),
		RunE: command(&mcpRunner, requireInput),
	}
	addDocumentFlags(cmd)
	addToolFlags(cmd)
	return cmd
}

func runMCP(ctx context.Context, cfg *Config, _ io.Writer, logger *zerolog.Logger) error {
	cat := newCatalog(cfg, logger, nil)
	if _, err := cat.LoadSource(ctx, cfg.Input); err != nil {
		return loadError(err)
	}
	server := mcpserver.New(newSearcher(cat, cfg, nil, "mcp"), Version, logger)
	logger.Info().Str("input", cfg.Input).Msg("serving MCP on stdio")
	return mcpserver.Run(ctx, server, logger)
}
