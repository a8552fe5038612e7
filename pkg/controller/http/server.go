package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/formulary-lab/rxquery/pkg/usecase"
	"github.com/formulary-lab/rxquery/pkg/utils/logging"
)

type Server struct {
	router      *chi.Mux
	uc          *usecase.UseCases
	middlewares []func(http.Handler) http.Handler
}

type Options func(*Server)

// WithMiddleware appends a middleware to the chain, after the built-in
// request ID, access log, recovery, and CORS middleware
func WithMiddleware(mw func(http.Handler) http.Handler) Options {
	return func(s *Server) {
		s.middlewares = append(s.middlewares, mw)
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)
	r.Use(s.middlewares...)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler(uc.Corpus))
		r.Get("/stats", statsHandler(uc.Corpus))
		r.Get("/drugs", drugsHandler(uc.Corpus))
		r.Post("/query", queryHandler(uc.Query, uc.Corpus.Source()))
	})

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

// corsMiddleware allows the browser frontend to call the API directly
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
