package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mnemo-lab/mnemo/pkg/domain/types"
	"github.com/mnemo-lab/mnemo/pkg/usecase"
	"github.com/mnemo-lab/mnemo/pkg/utils/errutil"
	"github.com/mnemo-lab/mnemo/pkg/utils/logging"
)

type Server struct {
	router  *chi.Mux
	uc      *usecase.UseCases
	version string
}

type Options func(*Server)

// WithVersion sets the version reported by the service-info endpoint.
func WithVersion(version string) Options {
	return func(s *Server) {
		s.version = version
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:  r,
		uc:      uc,
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleServiceInfo)
	r.Get("/health", s.handleHealth)
	r.Post("/ask", s.handleAsk)
	r.Post("/warmup", s.handleWarmup)
	r.Post("/clear-cache", s.handleClearCache)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}

// statusFromError maps pipeline failures onto HTTP statuses: dependency
// outages are 503, a broken generation backend is 502, anything else 500.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, types.ErrIndexNotReady),
		errors.Is(err, types.ErrSourceUnavailable),
		errors.Is(err, types.ErrSourceAuth),
		errors.Is(err, types.ErrEmbeddingService):
		return http.StatusServiceUnavailable
	case errors.Is(err, types.ErrGenerationService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleServiceInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]any{
		"service":     "Member QnA Service",
		"version":     s.version,
		"description": "Retrieval-augmented question-answering service for member messages",
		"endpoints": map[string]string{
			"/ask":         "POST - Ask a question about member data",
			"/health":      "GET - Health check",
			"/warmup":      "POST - Pre-load the vector index (reduces first request latency)",
			"/clear-cache": "POST - Clear member data cache",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to decode ask request"), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.New("question cannot be empty"), http.StatusBadRequest)
		return
	}

	answer, err := s.uc.Ask(r.Context(), req.Question)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFromError(err))
		return
	}

	respondJSON(w, r, http.StatusOK, askResponse{Answer: answer})
}

func (s *Server) handleWarmup(w http.ResponseWriter, r *http.Request) {
	stats, err := s.uc.Warmup(r.Context())
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFromError(err))
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"status":    "success",
		"documents": stats.Documents,
	})
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.Invalidate(r.Context()); err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFromError(err))
		return
	}

	respondJSON(w, r, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "cache cleared, next request rebuilds the index",
	})
}
