package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/surgo/internal/db"
	"github.com/kailas-cloud/surgo/pkg/surql"
)

type mockStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	return m.getFn(ctx, key)
}

func (m *mockStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn == nil {
		return nil
	}
	return m.setFn(ctx, key, value, ttl)
}

type mockExecutor struct {
	resp  surql.RawResponse
	err   error
	calls int
}

func (m *mockExecutor) Submit(_ context.Context, _ string) (surql.RawResponse, error) {
	m.calls++
	return m.resp, m.err
}

func newTestExecutor(inner surql.Executor, ms *mockStore) *Executor {
	return New(inner, ms, time.Minute, nil, zap.NewNop())
}

func okResponse() surql.RawResponse {
	return surql.RawResponse{{
		Status: surql.StatusOK,
		Result: []any{map[string]any{"name": "Ann"}},
	}}
}

func TestSubmit_CacheMiss(t *testing.T) {
	inner := &mockExecutor{resp: okResponse()}
	ms := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return nil, db.ErrKeyNotFound
		},
	}
	var setCalled bool
	ms.setFn = func(_ context.Context, _ string, _ []byte, ttl time.Duration) error {
		setCalled = true
		if ttl != time.Minute {
			t.Errorf("unexpected ttl: %v", ttl)
		}
		return nil
	}

	resp, err := newTestExecutor(inner, ms).Submit(context.Background(), "SELECT * FROM person")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp) != 1 || inner.calls != 1 {
		t.Fatalf("expected one inner call with one statement, got calls=%d resp=%v", inner.calls, resp)
	}
	if !setCalled {
		t.Fatal("expected SET to be called for cache put")
	}
}

func TestSubmit_CacheHit(t *testing.T) {
	inner := &mockExecutor{resp: okResponse()}
	cached := []byte(`[{"status":"OK","result":[{"name":"Cached"}]}]`)
	ms := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return cached, nil
		},
	}

	resp, err := newTestExecutor(inner, ms).Submit(context.Background(), "SELECT * FROM person")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 0 {
		t.Errorf("expected 0 inner calls on hit, got %d", inner.calls)
	}
	rows, err := surql.Normalize("q", resp)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(rows) != 1 || rows[0]["name"] != "Cached" {
		t.Errorf("expected cached rows, got %v", rows)
	}
}

func TestSubmit_CorruptCacheFallsThrough(t *testing.T) {
	inner := &mockExecutor{resp: okResponse()}
	ms := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte("{not json"), nil
		},
	}

	_, err := newTestExecutor(inner, ms).Submit(context.Background(), "SELECT 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected fall-through to inner, got %d calls", inner.calls)
	}
}

func TestSubmit_WriteStatementsBypassCache(t *testing.T) {
	inner := &mockExecutor{resp: okResponse()}
	ms := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			t.Fatal("cache should not be consulted for writes")
			return nil, nil
		},
	}

	_, err := newTestExecutor(inner, ms).Submit(context.Background(), "UPDATE person SET age = 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected direct inner call, got %d", inner.calls)
	}
}

func TestSubmit_ErrorResponsesNotCached(t *testing.T) {
	inner := &mockExecutor{resp: surql.RawResponse{{Status: surql.StatusErr, Result: "boom"}}}
	ms := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return nil, db.ErrKeyNotFound
		},
		setFn: func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
			t.Fatal("error responses must not be cached")
			return nil
		},
	}

	resp, err := newTestExecutor(inner, ms).Submit(context.Background(), "SELECT * FROM person")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("expected pass-through response, got %v", resp)
	}
}

func TestSubmit_InnerError(t *testing.T) {
	inner := &mockExecutor{err: errors.New("transport down")}
	ms := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return nil, db.ErrKeyNotFound
		},
	}

	if _, err := newTestExecutor(inner, ms).Submit(context.Background(), "SELECT 1"); err == nil {
		t.Fatal("expected error from inner executor")
	}
}

func TestCacheable(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT * FROM person", true},
		{"  select id from person", true},
		{"UPDATE person SET a = 1", false},
		{"DELETE person", false},
		{"INSERT INTO person [{}]", false},
		{"RELATE a:1->knows->b:2", false},
	}
	for _, tc := range tests {
		if got := cacheable(tc.query); got != tc.want {
			t.Errorf("cacheable(%q) = %v, want %v", tc.query, got, tc.want)
		}
	}
}
