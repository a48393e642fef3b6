package cli

import (
	"context"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mark3labs/apiscout/internal/assistant"
	"github.com/mark3labs/apiscout/internal/catalog"
	"github.com/mark3labs/apiscout/internal/httpapi"
	"github.com/mark3labs/apiscout/internal/metrics"
)

var serveRunner runFunc = runServe

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API behind the interactive endpoint browser",
		Long: "Serve endpoint listing, ranked search, endpoint details and document upload over HTTP, " +
			"with Prometheus metrics at /metrics and the API description at /apidocs.json.",
		Example: strings.TrimSpace(`  apiscout serve --input ./openapi.yaml
  apiscout serve --addr :9000 --rate-limit 5
  apiscout --config apiscout.yaml serve`),
		RunE: command(&serveRunner, nil),
	}
	addDocumentFlags(cmd)
	addToolFlags(cmd)
	flags := cmd.Flags()
	flags.String("addr", "", "Listen address (default "+DefaultAddr+")")
	flags.Float64("rate-limit", 0, "Search requests per second; negative disables limiting")
	flags.StringSlice("allowed-origins", nil, "CORS origins allowed to call the API (default any)")
	return cmd
}

func runServe(ctx context.Context, cfg *Config, _ io.Writer, logger *zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewCollector(reg)

	cat := newCatalog(cfg, logger, m)
	if cfg.Input != "" {
		if _, err := cat.LoadSource(ctx, cfg.Input); err != nil {
			return loadError(err)
		}
	} else {
		logger.Warn().Msg("no input configured; upload a document with PUT /api/v1/document")
	}

	srv := httpapi.New(cat, newSearcher(cat, cfg, m, "http"), httpapi.Options{
		Version:        Version,
		RateLimit:      cfg.RateLimit,
		AllowedOrigins: cfg.AllowedOrigins,
		Metrics:        m,
		Gatherer:       reg,
		Logger:         logger,
	})
	return httpapi.ListenAndServe(ctx, cfg.Addr, srv.Handler(), logger)
}

func newCatalog(cfg *Config, logger *zerolog.Logger, m *metrics.Collector) *catalog.Catalog {
	return catalog.New(
		catalog.WithLogger(logger),
		catalog.WithMetrics(m),
		catalog.WithBuildOptions(cfg.buildOptions()...),
		catalog.WithStrict(cfg.Strict),
	)
}

func newSearcher(source assistant.DocumentSource, cfg *Config, m *metrics.Collector, surface string) *assistant.Searcher {
	return assistant.New(source,
		assistant.WithLanguage(cfg.Language),
		assistant.WithBaseURL(cfg.BaseURL),
		assistant.WithMaxResults(cfg.MaxResults),
		assistant.WithMetrics(m, surface),
	)
}
