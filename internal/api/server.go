// Package api serves the scheduler over HTTP.
//
// Routes:
//
//	POST /v1/schedule   schedule a graph, see [ScheduleRequest]
//	GET  /healthz       build information
//	GET  /metrics       Prometheus metrics
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/shiftsched/pkg/config"
	"github.com/matzehuels/shiftsched/pkg/observability"
)

// shutdownTimeout bounds how long in-flight requests may finish after the
// server context is cancelled.
const shutdownTimeout = 10 * time.Second

// NewRouter builds the chi router with all routes and middleware. metrics
// may be nil, in which case /metrics is not mounted.
func NewRouter(cfg config.Server, h *Handlers, metrics http.Handler, hooks observability.ServerHooks) http.Handler {
	if hooks == nil {
		hooks = observability.NoopServerHooks{}
	}
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument(hooks))

	r.Get("/healthz", h.HandleHealth)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		r.Post("/v1/schedule", h.HandleSchedule)
	})
	return r
}

// NewServer wraps handler in an http.Server listening on cfg.Addr.
func NewServer(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ListenAndServe runs srv until ctx is cancelled, then shuts it down
// gracefully.
func ListenAndServe(ctx context.Context, srv *http.Server, logger *log.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// requestID tags every request with a UUID unless the client sent an
// X-Request-Id header. The ID is readable with middleware.GetReqID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// instrument reports requests to hooks, labelled with the matched route
// pattern so paths do not explode label cardinality.
func instrument(hooks observability.ServerHooks) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			hooks.OnRequest(r.Context(), r.Method, r.URL.Path)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			hooks.OnResponse(r.Context(), r.Method, route, status, time.Since(start))
		})
	}
}
