package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/emicklei/go-restful/v3"

	"github.com/mark3labs/apiscout/internal/assistant"
	"github.com/mark3labs/apiscout/internal/catalog"
	"github.com/mark3labs/apiscout/internal/search"
	"github.com/mark3labs/apiscout/internal/spec"
)

// GET /api/v1/health
func (s *Server) health(req *restful.Request, resp *restful.Response) {
	_ = resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.opts.Version,
		Loaded:  s.store.Current() != nil,
	})
}

// document writes 503 and returns nil when nothing is loaded.
func (s *Server) document(resp *restful.Response) *spec.Document {
	doc := s.store.Current()
	if doc == nil {
		writeError(resp, http.StatusServiceUnavailable, assistant.ErrNoDocument)
	}
	return doc
}

// GET /api/v1/document
func (s *Server) getDocument(req *restful.Request, resp *restful.Response) {
	doc := s.document(resp)
	if doc == nil {
		return
	}
	source, loadedAt := s.store.Source()
	_ = resp.WriteHeaderAndEntity(http.StatusOK, documentInfo(doc, source, loadedAt))
}

// PUT /api/v1/document
// Body: raw JSON or YAML document
func (s *Server) putDocument(req *restful.Request, resp *restful.Response) {
	body := http.MaxBytesReader(resp.ResponseWriter, req.Request.Body, s.opts.MaxUploadBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(resp, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(resp, http.StatusBadRequest, err)
		return
	}

	location := "upload"
	if name := strings.TrimSpace(req.QueryParameter("name")); name != "" {
		location = name
	}
	doc, err := s.store.LoadBytes(req.Request.Context(), data, location)
	if err != nil {
		s.logger.Warn().Err(err).Str("location", location).Msg("rejected document upload")
		writeError(resp, statusFor(err), err)
		return
	}
	source, loadedAt := s.store.Source()
	_ = resp.WriteHeaderAndEntity(http.StatusOK, documentInfo(doc, source, loadedAt))
}

// GET /api/v1/endpoints?q=
func (s *Server) listEndpoints(req *restful.Request, resp *restful.Response) {
	doc := s.document(resp)
	if doc == nil {
		return
	}
	query := req.QueryParameter("q")
	hits := search.RankHits(doc.Endpoints, query)
	ranked := make([]*spec.Endpoint, len(hits))
	scores := make(map[*spec.Endpoint]int, len(hits))
	for i, h := range hits {
		ranked[i] = h.Endpoint
		scores[h.Endpoint] = h.Score
	}
	if len(search.Terms(query)) == 0 {
		query = ""
	}
	groups := search.GroupEndpoints(ranked, doc.Categories)
	_ = resp.WriteHeaderAndEntity(http.StatusOK, groupViews(groups, scores, query))
}

// GET /api/v1/endpoints/{id}
func (s *Server) getEndpoint(req *restful.Request, resp *restful.Response) {
	doc := s.document(resp)
	if doc == nil {
		return
	}
	ep, ok := doc.Endpoint(req.PathParameter("id"))
	if !ok {
		writeError(resp, http.StatusNotFound, assistant.ErrUnknownEndpoint)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, ep)
}

// POST /api/v1/search
// Body: SearchRequest
// Returns: assistant.Result
func (s *Server) search(req *restful.Request, resp *restful.Response) {
	var in SearchRequest
	if err := req.ReadEntity(&in); err != nil {
		writeError(resp, http.StatusBadRequest, err)
		return
	}
	res, err := s.searcher.Search(req.Request.Context(), assistant.Request{Query: in.Query, Language: in.Language})
	if err != nil {
		writeError(resp, statusFor(err), err)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, res)
}

func statusFor(err error) int {
	var specErr *spec.SpecError
	switch {
	case errors.Is(err, assistant.ErrNoDocument):
		return http.StatusServiceUnavailable
	case errors.Is(err, assistant.ErrUnknownEndpoint):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrSuperseded):
		return http.StatusConflict
	case errors.As(err, &specErr):
		if specErr.Code == spec.NetworkError {
			return http.StatusBadGateway
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(resp *restful.Response, status int, err error) {
	body := ErrorResponse{Error: err.Error()}
	var specErr *spec.SpecError
	if errors.As(err, &specErr) {
		body.Code = string(specErr.Code)
		body.Pointer = specErr.JSONPointer
		body.Line = specErr.Line
		body.Column = specErr.Column
	}
	_ = resp.WriteHeaderAndEntity(status, body)
}
