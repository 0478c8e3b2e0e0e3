// Package cache decorates a query executor with a read-through result
// cache for SELECT statements.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/surgo/internal/db"
	"github.com/kailas-cloud/surgo/pkg/surql"
)

const cacheKeyPrefix = "surgo:qcache:"

// store is the consumer interface for the query cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Executor caches raw responses of read-only queries in a key-value store.
// Write statements and failed responses pass through uncached.
type Executor struct {
	inner      surql.Executor
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. cacheTotal is a counter vec with label
// "result" ("hit"/"miss"), passed explicitly.
func New(
	inner surql.Executor,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Submit returns a cached response or delegates to the inner executor.
// Only SELECT text is cacheable; responses carrying statement errors are
// never stored, so transient failures do not stick for a TTL.
func (e *Executor) Submit(ctx context.Context, query string) (surql.RawResponse, error) {
	if !cacheable(query) {
		return e.inner.Submit(ctx, query)
	}

	key := cacheKey(query)
	if resp, ok := e.getFromCache(ctx, key); ok {
		e.incCache("hit")
		return resp, nil
	}
	e.incCache("miss")

	resp, err := e.inner.Submit(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("submit query: %w", err)
	}
	if respClean(resp) {
		e.putToCache(ctx, key, resp)
	}
	return resp, nil
}

func (e *Executor) incCache(result string) {
	if e.cacheTotal != nil {
		e.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (e *Executor) getFromCache(ctx context.Context, key string) (surql.RawResponse, bool) {
	data, err := e.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			e.logger.Warn("Failed to get cached query result", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	var resp surql.RawResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		e.logger.Warn("Failed to parse cached query result", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return resp, true
}

func (e *Executor) putToCache(ctx context.Context, key string, resp surql.RawResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		e.logger.Warn("Failed to encode query result for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := e.store.SetWithTTL(ctx, key, data, e.ttl); err != nil {
		e.logger.Warn("Failed to cache query result", zap.String("key", key), zap.Error(err))
	}
}

func cacheKey(query string) string {
	h := sha256.Sum256([]byte(query))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}

// cacheable admits only SELECT statements: everything else either mutates
// state or is not worth pinning for a TTL.
func cacheable(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT")
}

// respClean reports whether every statement in the response succeeded.
func respClean(resp surql.RawResponse) bool {
	for _, st := range resp {
		if st.Status != "" && st.Status != surql.StatusOK {
			return false
		}
	}
	return true
}
