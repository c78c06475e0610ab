// Package server exposes a dashboard.Session over HTTP: JSON endpoints for
// the option lists, tables, panels, statistics and predictions, file
// downloads for the exports and PNG charts.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/YuminosukeSato/agriyield/dashboard"
	"github.com/YuminosukeSato/agriyield/pkg/errors"
	"github.com/YuminosukeSato/agriyield/pkg/log"
)

// maxBodyBytes bounds request bodies; every request is a small JSON document.
const maxBodyBytes = 1 << 20

// Server serves one session.
type Server struct {
	session *dashboard.Session
	logger  log.Logger
	origins []string
	now     func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithAllowedOrigins sets the CORS origins.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithClock sets the time used to date prediction exports.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New returns a server for session.
func New(session *dashboard.Session, opts ...Option) *Server {
	s := &Server{
		session: session,
		logger:  log.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(log.ComponentKey, "server")
	return s
}

// Handler wires middlewares and endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/options", s.handleOptions)

		api.Post("/table", s.handleTable)
		api.Post("/panels", s.handlePanels)
		api.Post("/explore", s.handleExplore)
		api.Post("/describe", s.handleDescribe)
		api.Post("/correlation", s.handleCorrelation)
		api.Post("/trend", s.handleTrend)
		api.Post("/relation", s.handleRelation)
		api.Post("/export", s.handleExport)

		api.Route("/predict", func(pr chi.Router) {
			pr.Post("/", s.handlePredict)
			pr.Get("/last", s.handleLastPrediction)
			pr.Get("/export", s.handleExportPrediction)
		})

		api.Post("/charts/{kind}", s.handleChart)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// logRequests writes one record per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info("request",
			log.HTTPMethodKey, r.Method,
			log.HTTPPathKey, r.URL.Path,
			log.HTTPStatusKey, status,
			log.HTTPRequestIDKey, middleware.GetReqID(r.Context()),
			log.DurationMsKey, time.Since(start).Milliseconds(),
		)
	})
}
