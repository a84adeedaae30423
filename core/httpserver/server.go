// Package httpserver serves webhooks, health checks and metrics over HTTP.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/arafat-telecom/chatbot/core/logger"
)

const (
	defaultShutdownTimeout = 10 * time.Second
	readHeaderTimeout      = 10 * time.Second
	readTimeout            = 30 * time.Second
	writeTimeout           = 60 * time.Second
	idleTimeout            = 120 * time.Second
)

// Mounter registers routes on the shared router.
type Mounter interface {
	Mount(r chi.Router)
}

// Options configure a Server.
type Options struct {
	Listen string
	Port   int
	// Metrics is served at /metrics when set.
	Metrics         http.Handler
	Mounts          []Mounter
	ShutdownTimeout time.Duration
	// ServiceName names server spans.
	ServiceName string
}

// Server is the public HTTP listener.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

// New builds the router and the underlying http.Server.
func New(opts Options) *Server {
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	return &Server{
		srv: &http.Server{
			Addr:              net.JoinHostPort(opts.Listen, strconv.Itoa(opts.Port)),
			Handler:           NewHandler(opts),
			ReadHeaderTimeout: readHeaderTimeout,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
		},
		shutdownTimeout: timeout,
	}
}

// NewHandler returns the traced chi router with the standard middleware stack.
func NewHandler(opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Heartbeat("/health"))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	for _, m := range opts.Mounts {
		if m != nil {
			m.Mount(r)
		}
	}

	name := opts.ServiceName
	if name == "" {
		name = "http"
	}
	return otelhttp.NewHandler(r, name)
}

// Addr reports the configured listen address.
func (s *Server) Addr() string { return s.srv.Addr }

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.HTTP.Info("listening", slog.String("event", "listen"), slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error(ctx, "http", "listen", slog.String("status", "fail"), slog.String("err", err.Error()))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	start := time.Now()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "http", "shutdown", slog.String("status", "fail"), slog.String("err", err.Error()))
		return err
	}
	logger.HTTP.Info("server stopped",
		slog.String("event", "shutdown"),
		slog.String("status", "ok"),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// requestLogger carries the request id into the logging context and logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if rid := chimiddleware.GetReqID(ctx); rid != "" {
			ctx = logger.WithRID(ctx, rid)
		}
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Event(ctx, "http", level, "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_status", status),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}
