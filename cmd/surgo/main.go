// Command surgo executes SurrealQL queries against a configured database.
//
// One-shot mode renders rows as JSON lines:
//
//	surgo "SELECT * FROM user WHERE age >= 18"
//	echo "SELECT count() AS count FROM user GROUP ALL" | surgo
//
// With -listen the command runs a small HTTP proxy instead: POST /query
// executes the body, plus /health and Prometheus /metrics.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/surgo"
	"github.com/kailas-cloud/surgo/internal/config"
	logpkg "github.com/kailas-cloud/surgo/internal/logger"
	"github.com/kailas-cloud/surgo/internal/metrics"
	openaiEmb "github.com/kailas-cloud/surgo/internal/transport/openai"
	"github.com/kailas-cloud/surgo/internal/version"
)

func main() {
	listen := flag.String("listen", "", "serve an HTTP query proxy on this address instead of one-shot mode")
	queryTimeout := flag.Duration("timeout", 30*time.Second, "per-query timeout")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("surgo " + version.String())
		return
	}

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	client, err := buildClient(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create client", zap.Error(err))
	}
	defer client.Close()

	if *listen != "" {
		serve(*listen, client, logger, env, *queryTimeout)
		return
	}

	query, err := readQuery(flag.Args())
	if err != nil {
		logger.Fatal("No query given", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *queryTimeout)
	defer cancel()

	rows, err := client.Raw(ctx, query)
	if err != nil {
		logger.Fatal("Query failed", zap.Error(err))
	}

	enc := json.NewEncoder(os.Stdout)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			logger.Fatal("Failed to encode row", zap.Error(err))
		}
	}
}

// buildClient is the composition root: executor, optional cache, optional
// embedder, all from config.
func buildClient(cfg config.Config, logger *zap.Logger) (*surgo.Client, error) {
	opts := []surgo.Option{
		surgo.WithEndpoint(cfg.Database.Endpoint),
		surgo.WithNamespace(cfg.Database.Namespace),
		surgo.WithDatabase(cfg.Database.Database),
		surgo.WithLogger(logger),
		surgo.WithReadinessTimeout(time.Duration(cfg.Database.ReadinessTimeout) * time.Second),
	}
	if cfg.Database.Username != "" {
		opts = append(opts, surgo.WithBasicAuth(cfg.Database.Username, cfg.Database.Password))
	}
	if len(cfg.Cache.Addrs) > 0 {
		opts = append(opts, surgo.WithQueryCache(
			cfg.Cache.Addrs, cfg.Cache.Password, time.Duration(cfg.Cache.TTLSec)*time.Second,
		))
	}
	if cfg.Embedding.Provider != "" {
		metrics.RegisterEmbeddingMetrics()
		opts = append(opts, surgo.WithEmbedder(openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Provider:   cfg.Embedding.Provider,
			Logger:     logger,
		})))
	}
	return surgo.New(opts...)
}

func readQuery(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if q := strings.TrimSpace(string(data)); q != "" {
			return q, nil
		}
	}
	return "", fmt.Errorf("pass a query as an argument or via stdin")
}

// serve runs the HTTP query proxy until SIGINT/SIGTERM.
func serve(addr string, client *surgo.Client, logger *zap.Logger, env string, queryTimeout time.Duration) {
	logger.Info("Starting surgo query proxy",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("addr", addr),
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())

	r.Post("/query", func(w http.ResponseWriter, req *http.Request) {
		body, err := io.ReadAll(io.LimitReader(req.Body, 1<<20))
		if err != nil || len(strings.TrimSpace(string(body))) == 0 {
			writeError(w, http.StatusBadRequest, "empty query")
			return
		}

		ctx, cancel := context.WithTimeout(req.Context(), queryTimeout)
		defer cancel()

		logpkg.FromContext(ctx).Debug("Executing query", zap.Int("query_bytes", len(body)))

		rows, err := client.Raw(ctx, string(body))
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rows)
	})
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := client.Ping(req.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: queryTimeout + 5*time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	logger.Info("Server stopped gracefully")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
