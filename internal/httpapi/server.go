// Package httpapi serves the loaded API document over REST: the grouped and
// ranked endpoint list behind the interactive viewer, endpoint details,
// document upload and the agent search tool.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	openapispec "github.com/go-openapi/spec"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mark3labs/apiscout/internal/assistant"
	"github.com/mark3labs/apiscout/internal/metrics"
	"github.com/mark3labs/apiscout/internal/spec"
)

// Store is the document holder the API reads from and uploads into.
type Store interface {
	Current() *spec.Document
	Source() (string, time.Time)
	LoadBytes(ctx context.Context, data []byte, location string) (*spec.Document, error)
}

// Options configure a Server. Zero values pick the defaults.
type Options struct {
	Version string
	// RateLimit is the sustained number of search requests per second.
	// Zero means DefaultRateLimit; a negative value disables limiting.
	RateLimit float64
	Burst     int
	// MaxUploadBytes bounds PUT /document bodies.
	MaxUploadBytes int64
	AllowedOrigins []string
	Metrics        *metrics.Collector
	// Gatherer backs /metrics. Nil leaves /metrics unregistered.
	Gatherer prometheus.Gatherer
	Logger   *zerolog.Logger
}

const (
	DefaultRateLimit      = 20
	DefaultMaxUploadBytes = 32 << 20
)

// Server owns the REST routes. Create it with New.
type Server struct {
	store    Store
	searcher *assistant.Searcher
	limiter  *rate.Limiter
	opts     Options
	logger   *zerolog.Logger
}

func New(store Store, searcher *assistant.Searcher, opts Options) *Server {
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = DefaultRateLimit
	}
	s := &Server{store: store, searcher: searcher, opts: opts, logger: opts.Logger}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RateLimit)
			if burst < 1 {
				burst = 1
			}
		}
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return s
}

// Container builds a go-restful container with every route, the OpenAPI
// description at /apidocs.json and, when a Gatherer is set, /metrics.
func (s *Server) Container() *restful.Container {
	container := restful.NewContainer()
	container.Filter(s.logRequests)
	container.Filter(s.recoverPanic)
	s.RegisterRoutes(container)

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: s.describeAPI,
	}))
	if s.opts.Gatherer != nil {
		container.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return container
}

// Handler wraps Container with CORS for the browser viewer.
func (s *Server) Handler() http.Handler {
	origins := s.opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(s.Container())
}

func (s *Server) RegisterRoutes(container *restful.Container) {
	ws := new(restful.WebService)
	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.Route(ws.GET("/health").
		To(s.health).
		Doc("Health check").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(HealthResponse{}).
		Returns(200, "OK", HealthResponse{}))

	ws.Route(ws.GET("/document").
		To(s.getDocument).
		Doc("Summary of the loaded API document").
		Metadata(restfulspec.KeyOpenAPITags, []string{"document"}).
		Writes(DocumentInfo{}).
		Returns(200, "OK", DocumentInfo{}).
		Returns(503, "No document loaded", ErrorResponse{}))

	ws.Route(ws.PUT("/document").
		To(s.putDocument).
		Doc("Replace the loaded document").
		Notes("The body is the raw OpenAPI 3 or Swagger 2.0 document, JSON or YAML.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"document"}).
		Consumes(restful.MIME_JSON, "application/yaml", "application/x-yaml", "text/yaml", "text/plain", restful.MIME_OCTET).
		Writes(DocumentInfo{}).
		Returns(200, "OK", DocumentInfo{}).
		Returns(400, "Invalid document", ErrorResponse{}).
		Returns(409, "Superseded by a newer upload", ErrorResponse{}).
		Returns(413, "Document too large", ErrorResponse{}))

	ws.Route(ws.GET("/endpoints").
		To(s.listEndpoints).
		Doc("Endpoints ranked by a free-text query and grouped by category").
		Metadata(restfulspec.KeyOpenAPITags, []string{"endpoints"}).
		Param(ws.QueryParameter("q", "free-text filter; empty lists everything").DataType("string").Required(false)).
		Writes([]GroupView{}).
		Returns(200, "OK", []GroupView{}).
		Returns(503, "No document loaded", ErrorResponse{}))

	ws.Route(ws.GET("/endpoints/{id}").
		To(s.getEndpoint).
		Doc("One endpoint with its resolved schemas").
		Metadata(restfulspec.KeyOpenAPITags, []string{"endpoints"}).
		Param(ws.PathParameter("id", "endpoint id").DataType("string")).
		Writes(spec.Endpoint{}).
		Returns(200, "OK", spec.Endpoint{}).
		Returns(404, "Unknown endpoint", ErrorResponse{}).
		Returns(503, "No document loaded", ErrorResponse{}))

	ws.Route(ws.POST("/search").
		To(s.search).
		Filter(s.rateLimit).
		Doc("Agent search tool: top endpoints as markdown with code samples").
		Metadata(restfulspec.KeyOpenAPITags, []string{"search"}).
		Reads(SearchRequest{}).
		Writes(assistant.Result{}).
		Returns(200, "OK", assistant.Result{}).
		Returns(400, "Bad Request", ErrorResponse{}).
		Returns(429, "Too Many Requests", ErrorResponse{}).
		Returns(503, "No document loaded", ErrorResponse{}))

	container.Add(ws)
}

func (s *Server) describeAPI(swo *openapispec.Swagger) {
	swo.Info = &openapispec.Info{
		InfoProps: openapispec.InfoProps{
			Title:       "apiscout",
			Description: "Browse and search a loaded OpenAPI document",
			Version:     s.opts.Version,
		},
	}
	swo.Tags = []openapispec.Tag{
		{TagProps: openapispec.TagProps{Name: "health", Description: "Health checks"}},
		{TagProps: openapispec.TagProps{Name: "document", Description: "The loaded API document"}},
		{TagProps: openapispec.TagProps{Name: "endpoints", Description: "Interactive endpoint filter"}},
		{TagProps: openapispec.TagProps{Name: "search", Description: "Agent search tool"}},
	}
}

// ListenAndServe serves h on addr until ctx is done, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *zerolog.Logger) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("address", addr).Msg("starting HTTP server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info().Msg("HTTP server stopped")
	return nil
}
