// Package server exposes the pipeline over HTTP for editor integrations:
//
//	POST /v1/render     raw block (text/plain) or {"block": "...", "separator": "double"}
//	POST /v1/sentences  raw text or {"text": "..."}
//	GET  /healthz
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/minios-linux/lehrer/pipeline"
)

// DefaultMaxBodyBytes caps request bodies when Options.MaxBodyBytes is 0.
const DefaultMaxBodyBytes = 256 << 10

// Options configures a Server.
type Options struct {
	Runner *pipeline.Runner
	// AllowedOrigins enables CORS for these origins. Empty disables CORS.
	AllowedOrigins []string
	MaxBodyBytes   int64
	// Slow marks requests taking at least this long as warnings in the
	// access log. Zero disables it.
	Slow   time.Duration
	Logger zerolog.Logger
}

// Server is a chi router plus the http.Server that runs it.
type Server struct {
	opts Options
	mux  *chi.Mux
	log  zerolog.Logger
}

// New builds the router. A nil Runner renders without translation.
func New(opts Options) *Server {
	if opts.Runner == nil {
		opts.Runner = &pipeline.Runner{}
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Server{opts: opts, mux: chi.NewRouter(), log: opts.Logger}

	s.mux.Use(chimw.RequestID)
	s.mux.Use(chimw.Recoverer)
	s.mux.Use(accessLog(s.log, opts.Slow))
	if len(opts.AllowedOrigins) > 0 {
		s.mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			MaxAge:         300,
		}))
	}

	s.mux.Get("/healthz", s.handleHealth)
	s.mux.Route("/v1", func(r chi.Router) {
		r.Post("/render", s.handleRender)
		r.Post("/sentences", s.handleSentences)
	})
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("http listening")

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info().Msg("http stopped")
	return nil
}

// captureWriter records status and bytes for the access log.
type captureWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	n, err := cw.ResponseWriter.Write(b)
	cw.bytes += n
	return n, err
}

func accessLog(log zerolog.Logger, slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cw := &captureWriter{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(cw, r)

			elapsed := time.Since(start)
			evt := log.Info()
			if slow > 0 && elapsed >= slow {
				evt = log.Warn()
			}
			evt.Str("request_id", chimw.GetReqID(r.Context())).
				Int("status", cw.status).
				Dur("elapsed", elapsed).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("bytes", cw.bytes).
				Msg("request done")
		})
	}
}
