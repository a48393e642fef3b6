package httpapi

import (
	"fmt"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/emicklei/go-restful/v3"
)

// logRequests logs every request and records it in the HTTP metrics.
func (s *Server) logRequests(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	start := time.Now()
	chain.ProcessFilter(req, resp)
	elapsed := time.Since(start)

	route := req.SelectedRoutePath()
	if route == "" {
		route = "unmatched"
	}
	status := resp.StatusCode()
	s.opts.Metrics.RecordHTTPRequest(req.Request.Method, route, status, elapsed)

	ev := s.logger.Debug()
	if status >= http.StatusInternalServerError {
		ev = s.logger.Error()
	}
	ev.Str("method", req.Request.Method).
		Str("path", req.Request.URL.Path).
		Int("status", status).
		Dur("duration", elapsed).
		Msg("request")
}

func (s *Server) recoverPanic(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("panic", fmt.Sprint(r)).
				Str("path", req.Request.URL.Path).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic")
			writeError(resp, http.StatusInternalServerError, fmt.Errorf("internal error"))
		}
	}()
	chain.ProcessFilter(req, resp)
}

// rateLimit rejects requests beyond the configured rate with 429 and a
// Retry-After hint.
func (s *Server) rateLimit(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if s.limiter == nil {
		chain.ProcessFilter(req, resp)
		return
	}
	r := s.limiter.Reserve()
	if !r.OK() {
		writeError(resp, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
		return
	}
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		resp.AddHeader("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
		writeError(resp, http.StatusTooManyRequests, fmt.Errorf("rate limit exceeded"))
		return
	}
	chain.ProcessFilter(req, resp)
}
