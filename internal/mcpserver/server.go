// Package mcpserver exposes the assistant tools over the Model Context
// Protocol so an agent can search the loaded API document.
package mcpserver

import (
	"context"
	"errors"
	"io"
	"os"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/mark3labs/apiscout/internal/assistant"
)

const (
	SearchToolName   = "search_documentation"
	EndpointToolName = "get_endpoint"
)

const searchDescription = `Search the API documentation for relevant endpoints, their details, and code examples.
Use this tool whenever you need to find out how to perform a specific operation with the API.
The query is free text such as "create customer" or "search appointments"; the best five endpoints
are returned with their parameters and a code sample in the requested language.`

const endpointDescription = `Show everything known about one endpoint: parameters, request body, responses,
a code sample and an example success payload. Pass the id returned by search_documentation.`

// New builds a server with the search and endpoint tools registered.
func New(searcher *assistant.Searcher, version string, logger *zerolog.Logger) *mcp.Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "apiscout",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        SearchToolName,
		Description: searchDescription,
	}, searchHandler(searcher, logger))

	mcp.AddTool(server, &mcp.Tool{
		Name:        EndpointToolName,
		Description: endpointDescription,
	}, endpointHandler(searcher, logger))
	return server
}

func searchHandler(s *assistant.Searcher, logger *zerolog.Logger) func(context.Context, *mcp.CallToolRequest, assistant.Request) (*mcp.CallToolResult, assistant.Result, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in assistant.Request) (*mcp.CallToolResult, assistant.Result, error) {
		res, err := s.Search(ctx, in)
		if err != nil {
			logger.Warn().Err(err).Str("query", in.Query).Msg("search failed")
			return nil, assistant.Result{}, err
		}
		logger.Debug().Str("query", in.Query).Int("hits", len(res.Hits)).Msg("search")
		return textResult(res.Text), *res, nil
	}
}

func endpointHandler(s *assistant.Searcher, logger *zerolog.Logger) func(context.Context, *mcp.CallToolRequest, assistant.EndpointRequest) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in assistant.EndpointRequest) (*mcp.CallToolResult, any, error) {
		text, err := s.Describe(ctx, in)
		if err != nil {
			logger.Warn().Err(err).Str("id", in.ID).Msg("endpoint lookup failed")
			return nil, nil, err
		}
		return textResult(text), nil, nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// Run serves over stdio until the client disconnects or ctx is done. A
// closed stdin is a normal shutdown.
func Run(ctx context.Context, server *mcp.Server, logger *zerolog.Logger) error {
	return RunIO(ctx, server, os.Stdin, os.Stdout, logger)
}

// RunIO serves newline-delimited JSON-RPC over r and w. Once r reports EOF
// the session error is treated as the client going away.
func RunIO(ctx context.Context, server *mcp.Server, r io.Reader, w io.Writer, logger *zerolog.Logger) error {
	in := &eofReader{r: r}
	err := server.Run(ctx, &mcp.IOTransport{Reader: in, Writer: nopWriteCloser{w}})
	if err == nil || ctx.Err() != nil || in.eof.Load() || errors.Is(err, io.EOF) {
		if logger != nil {
			logger.Debug().Err(err).Msg("mcp server stopped")
		}
		return nil
	}
	return err
}

// eofReader records whether the underlying reader has been drained.
type eofReader struct {
	r   io.Reader
	eof atomic.Bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if errors.Is(err, io.EOF) {
		e.eof.Store(true)
	}
	return n, err
}

func (e *eofReader) Close() error {
	if c, ok := e.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
