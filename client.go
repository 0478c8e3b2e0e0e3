package surgo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/surgo/internal/db"
	"github.com/kailas-cloud/surgo/internal/db/cache"
	dbRedis "github.com/kailas-cloud/surgo/internal/db/redis"
	"github.com/kailas-cloud/surgo/internal/db/surreal"
	"github.com/kailas-cloud/surgo/internal/metrics"
	"github.com/kailas-cloud/surgo/pkg/surql"
)

const defaultReadinessTimeout = 10 * time.Second

// Client is the surgo SDK entry point. It owns the executor chain
// (HTTP transport, optional result cache) and the optional embedder.
type Client struct {
	exec       surql.Executor
	cacheStore db.Store
	embedder   Embedder
	logger     *zap.Logger
}

// New creates a surgo Client and waits for the database to become ready.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		endpoint:         "http://localhost:8000",
		namespace:        "surgo",
		database:         "surgo",
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics.RegisterQueryMetrics()

	exec := cfg.executor
	if exec == nil {
		httpExec, err := surreal.New(surreal.Config{
			Endpoint:  cfg.endpoint,
			Namespace: cfg.namespace,
			Database:  cfg.database,
			Username:  cfg.username,
			Password:  cfg.password,
			HTTPAgent: cfg.httpClient,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("surgo: create executor: %w", err)
		}
		if err := httpExec.WaitForReady(context.Background(), cfg.readinessTimeout); err != nil {
			return nil, fmt.Errorf("surgo: database not ready: %w", err)
		}
		exec = httpExec
	}

	c := &Client{exec: exec, embedder: cfg.embedder, logger: logger}

	if len(cfg.cacheAddrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.cacheAddrs,
			Password: cfg.cachePassword,
		})
		if err != nil {
			return nil, fmt.Errorf("surgo: create cache store: %w", err)
		}
		ttl := cfg.cacheTTL
		if ttl <= 0 {
			ttl = time.Minute
		}
		c.cacheStore = store
		c.exec = cache.New(exec, store, ttl, metrics.QueryCacheTotal, logger)
	}

	return c, nil
}

// Close releases cache connections. The HTTP executor holds no state.
func (c *Client) Close() {
	if c.cacheStore != nil {
		c.cacheStore.Close()
	}
}

// Ping checks database connectivity when the executor supports it.
func (c *Client) Ping(ctx context.Context) error {
	p, ok := c.exec.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Raw submits pre-rendered SurrealQL and normalizes the result.
func (c *Client) Raw(ctx context.Context, query string) ([]Row, error) {
	return c.run(ctx, query)
}

// Relate creates a graph edge between two records with optional edge
// attributes and returns the created edge row.
func (c *Client) Relate(
	ctx context.Context, from RecordID, edge string, to RecordID, attrs map[string]any,
) (Row, error) {
	query, err := surql.RenderRelate(from, edge, to, attrs)
	if err != nil {
		return nil, fmt.Errorf("relate: %w", err)
	}
	rows, err := c.run(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows[0], nil
}

// ShortestPath returns the records along the shortest path from start to
// end following the given edge, start and end included.
func (c *Client) ShortestPath(
	ctx context.Context, start, end RecordID, edge string,
) ([]RecordID, error) {
	query, err := surql.RenderShortestPath(start, end, edge)
	if err != nil {
		return nil, fmt.Errorf("shortest path: %w", err)
	}
	rows, err := c.run(ctx, query)
	if err != nil {
		return nil, err
	}
	path := make([]RecordID, 0, len(rows))
	for _, row := range rows {
		switch v := row["value"].(type) {
		case RecordID:
			path = append(path, v)
		case string:
			if id, ok := surql.ParseRecordID(v); ok {
				path = append(path, id)
			}
		}
	}
	return path, nil
}

// run is the single execution funnel: submit, then normalize. Statement
// failures and transport errors both surface as *QueryError carrying the
// rendered query text.
func (c *Client) run(ctx context.Context, query string) ([]Row, error) {
	resp, err := c.exec.Submit(ctx, query)
	if err != nil {
		return nil, &surql.QueryError{Query: query, Err: err}
	}
	return surql.Normalize(query, resp)
}
