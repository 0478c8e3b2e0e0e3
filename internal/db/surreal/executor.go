// Package surreal implements the query executor over SurrealDB's HTTP /sql
// endpoint.
package surreal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/surgo/internal/metrics"
	"github.com/kailas-cloud/surgo/pkg/surql"
)

// Config holds connection parameters for a SurrealDB endpoint.
type Config struct {
	Endpoint  string // base URL, e.g. http://localhost:8000
	Namespace string
	Database  string
	Username  string
	Password  string
	HTTPAgent *http.Client // optional, defaults to a 30s-timeout client
	Logger    *zap.Logger
}

// Executor submits rendered queries over HTTP. It is safe for concurrent
// use; statement batching and transactions are the caller's concern.
type Executor struct {
	endpoint  string
	namespace string
	database  string
	username  string
	password  string
	client    *http.Client
	logger    *zap.Logger
}

// Compile-time check: Executor implements surql.Executor.
var _ surql.Executor = (*Executor)(nil)

// New creates an HTTP executor.
func New(cfg Config) (*Executor, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Namespace == "" || cfg.Database == "" {
		return nil, fmt.Errorf("namespace and database are required")
	}
	client := cfg.HTTPAgent
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		namespace: cfg.Namespace,
		database:  cfg.Database,
		username:  cfg.Username,
		password:  cfg.Password,
		client:    client,
		logger:    logger,
	}, nil
}

// Submit posts query text to /sql and decodes the per-statement response.
// Transport and protocol failures return an error; statement-level errors
// come back inside the response for the normalizer to judge.
func (e *Executor) Submit(ctx context.Context, query string) (surql.RawResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/sql", strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Surreal-NS", e.namespace)
	req.Header.Set("Surreal-DB", e.database)
	if e.username != "" {
		req.SetBasicAuth(e.username, e.password)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("submit query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("surrealdb returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw surql.RawResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode response: %w", err)
	}

	metrics.QueriesTotal.WithLabelValues("success").Inc()
	metrics.QueryDuration.WithLabelValues("success").Observe(duration.Seconds())
	e.logger.Debug("Query executed",
		zap.Int("statements", len(raw)),
		zap.Duration("duration", duration),
	)
	return raw, nil
}

// Ping checks endpoint health.
func (e *Executor) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"/health", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (e *Executor) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
			if err := e.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}
