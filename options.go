package surgo

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/surgo/pkg/surql"
)

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	endpoint  string
	namespace string
	database  string
	username  string
	password  string

	httpClient *http.Client
	logger     *zap.Logger
	executor   surql.Executor

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration

	embedder         Embedder
	readinessTimeout time.Duration
}

// WithEndpoint sets the SurrealDB base URL (default http://localhost:8000).
func WithEndpoint(url string) Option {
	return func(c *clientConfig) { c.endpoint = url }
}

// WithNamespace sets the SurrealDB namespace (default "surgo").
func WithNamespace(ns string) Option {
	return func(c *clientConfig) { c.namespace = ns }
}

// WithDatabase sets the SurrealDB database (default "surgo").
func WithDatabase(db string) Option {
	return func(c *clientConfig) { c.database = db }
}

// WithBasicAuth sets root/user credentials for the HTTP endpoint.
func WithBasicAuth(username, password string) Option {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient overrides the HTTP client used for query submission.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WithExecutor replaces the default HTTP executor entirely. Connection
// options are ignored when set; useful for tests and custom transports.
func WithExecutor(e surql.Executor) Option {
	return func(c *clientConfig) { c.executor = e }
}

// WithQueryCache enables a Redis-backed read-through cache for SELECT
// results. ttl <= 0 means one minute.
func WithQueryCache(addrs []string, password string, ttl time.Duration) Option {
	return func(c *clientConfig) {
		c.cacheAddrs = addrs
		c.cachePassword = password
		c.cacheTTL = ttl
	}
}

// WithEmbedder enables SearchSimilar by providing a text embedder.
func WithEmbedder(e Embedder) Option {
	return func(c *clientConfig) { c.embedder = e }
}

// WithReadinessTimeout bounds the initial wait for the database to become
// reachable (default 10s).
func WithReadinessTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.readinessTimeout = d }
}
