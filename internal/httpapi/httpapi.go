// Package httpapi exposes indexservice.Service over HTTP: a thin
// chi-routed JSON façade for callers that would rather talk to a
// long-running daemon than shell out to the CLI for every query. Grounded
// on the pack's kadirpekel-hector transport package, which routes through
// chi.Router and pulls the matched route pattern back out of
// chi.RouteContext for per-request logging rather than hand-rolled path
// matching.
package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/imyousuf/everdex/internal/indexservice"
	"github.com/imyousuf/everdex/internal/queryengine"
)

// Logger matches indexservice's plain func(format, args...) idiom.
type Logger func(format string, args ...any)

// Server adapts a long-lived, non-inline indexservice.Service onto HTTP.
type Server struct {
	svc *indexservice.Service
	log Logger
}

// New builds a Server and its chi router. Every write handler waits on
// Submit-style completion. A daemon normally passes a started, non-inline
// svc; an inline svc also works (each task then runs on the request's own
// goroutine), which is what the package tests use.
func New(svc *indexservice.Service, log Logger) (*Server, http.Handler) {
	if log == nil {
		log = func(format string, args ...any) { fmt.Printf(format+"\n", args...) }
	}
	s := &Server{svc: svc, log: log}

	r := chi.NewRouter()
	r.Use(s.logRequest)
	r.Post("/i", s.handleIndex)
	r.Delete("/i", s.handleRemove)
	r.Get("/q", s.handleQuery)
	r.Post("/i/refresh", s.handleRefresh)

	return s, r
}

// logRequest logs method, chi's matched route pattern, and duration,
// pulling the pattern out of chi.RouteContext rather than the raw path.
func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, req)
		pattern := req.URL.Path
		if rctx := chi.RouteContext(req.Context()); rctx != nil && rctx.RoutePattern() != "" {
			pattern = rctx.RoutePattern()
		}
		s.log("httpapi: %s %s (%s)", req.Method, pattern, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type indexRequest struct {
	Paths []string `json:"paths"`
}

// handleIndex registers (or re-reconciles) every root in the request
// body, sequentially, stopping at the first failure.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("paths must not be empty"))
		return
	}

	ctx := r.Context()
	for _, p := range req.Paths {
		if err := s.svc.Index(ctx, p); err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("index %s: %w", p, err))
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"indexed": req.Paths})
}

// handleRemove unregisters the root named by the ?path= query parameter.
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("path query parameter is required"))
		return
	}
	if err := s.svc.Remove(r.Context(), path); err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("remove %s: %w", path, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"removed": path})
}

type queryHit struct {
	Path string `json:"path"`
}

// handleQuery answers a path/content regex query via ?path=&content=&
// ignore_case=&raw_pattern=, returning the matching paths as JSON. It
// never shells out to rawmatch for per-line spans: the HTTP façade is a
// path-listing surface, the same scope as --path_only on the CLI.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pathRegex := q.Get("path")
	contentRegex := q.Get("content")
	if pathRegex == "" && contentRegex == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("at least one of path or content query parameter is required"))
		return
	}

	handle, err := s.svc.Query(r.Context(), queryengine.Options{
		PathRegex:    pathRegex,
		ContentRegex: contentRegex,
		IgnoreCase:   q.Get("ignore_case") == "true",
		RawPattern:   q.Get("raw_pattern") == "true",
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	defer handle.Close()

	hits := handle.All()
	out := make([]queryHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, queryHit{Path: h.Path})
	}
	writeJSON(w, http.StatusOK, map[string]any{"hits": out})
}

// handleRefresh calls Service.RefreshCache and reports success. Every
// query already opens a fresh snapshot, so no searcher state is dropped.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.svc.RefreshCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
