// Package rpc exposes the contract over JSON-RPC 2.0.
package rpc

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"

	"quarkdapp/core/dispatch"
	"quarkdapp/core/witness"
	"quarkdapp/native/common"
	telemetry "quarkdapp/observability/otel"
)

const (
	requestIDHeader   = "X-Request-ID"
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	serverSpanName    = "quarkd"
)

// Executor runs a decoded call on behalf of the recovered signers.
type Executor interface {
	Execute(ctx context.Context, call dispatch.Call, signers witness.Witness) dispatch.Result
}

// Config tunes the transport.
type Config struct {
	RateLimit   RateLimit
	SignerQuota common.Quota
	Logger      *slog.Logger
	// Now defaults to time.Now and drives signer quota windows.
	Now func() time.Time
}

// Server serves dapp_<operation> methods.
type Server struct {
	exec    Executor
	logger  *slog.Logger
	limiter *rateLimiter
	quota   *common.QuotaTracker
	tracer  trace.Tracer
	now     func() time.Time
}

func NewServer(exec Executor, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Server{
		exec:    exec,
		logger:  logger,
		limiter: newRateLimiter(cfg.RateLimit),
		quota:   common.NewQuotaTracker(cfg.SignerQuota),
		tracer:  telemetry.Tracer("quarkdapp/rpc"),
		now:     now,
	}
}

// Handler returns the HTTP routes: JSON-RPC on / and /rpc, plus /healthz and
// /metrics. The router is wrapped in an otelhttp server span that continues
// the caller's trace; per-method spans are its children.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(requestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(gr chi.Router) {
		gr.Use(s.limiter.middleware)
		gr.Post("/", s.handle)
		gr.Post("/rpc", s.handle)
	})
	return otelhttp.NewHandler(r, serverSpanName)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("json-rpc server listening", slog.String("address", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

type requestIDKey struct{}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
