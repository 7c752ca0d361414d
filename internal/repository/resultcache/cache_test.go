package resultcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/ohmygaugh/factgpt/internal/domain/document"
	"github.com/ohmygaugh/factgpt/internal/domain/graph"
)

var testDocs = []document.Document{
	{Title: "Go concurrency patterns", Tags: []string{"go"}, ExtraTags: []string{"channels"}, URL: "https://example.com/a", Date: "2021-01-01"},
}

func TestSearch_CacheMissThenHit(t *testing.T) {
	inner := &mockPipeline{docs: testDocs}
	c, ms := newTestCache(t, inner)
	ctx := context.Background()

	docs, err := c.Search(ctx, "go", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].Title != "Go concurrency patterns" {
		t.Fatalf("unexpected docs: %+v", docs)
	}
	if len(ms.data) != 1 {
		t.Fatalf("expected one cached entry, got %d", len(ms.data))
	}
	for k, ttl := range ms.ttls {
		if !strings.HasPrefix(k, "factgpt:digest:search:") {
			t.Errorf("unexpected key %q", k)
		}
		if ttl != time.Hour {
			t.Errorf("expected ttl 1h, got %v", ttl)
		}
	}

	docs, err = c.Search(ctx, "go", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.searchCalls != 1 {
		t.Errorf("expected inner to be called once, got %d", inner.searchCalls)
	}
	if len(docs) != 1 || docs[0].ExtraTags[0] != "channels" {
		t.Errorf("cached docs lost fields: %+v", docs)
	}
}

func TestSearch_KeyIncludesTagsFlag(t *testing.T) {
	inner := &mockPipeline{docs: testDocs}
	c, ms := newTestCache(t, inner)
	ctx := context.Background()

	_, _ = c.Search(ctx, "go", true)
	_, _ = c.Search(ctx, "go", false)

	if inner.searchCalls != 2 {
		t.Errorf("expected distinct keys for tags flag, inner called %d times", inner.searchCalls)
	}
	if len(ms.data) != 2 {
		t.Errorf("expected two entries, got %d", len(ms.data))
	}
}

func TestSearch_StoreErrorsFallThrough(t *testing.T) {
	inner := &mockPipeline{docs: testDocs}
	c, ms := newTestCache(t, inner)
	ms.getErr = errors.New("connection refused")
	ms.setErr = errors.New("connection refused")

	docs, err := c.Search(context.Background(), "go", false)
	if err != nil {
		t.Fatalf("store errors must not fail the request: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("expected inner result, got %+v", docs)
	}
}

func TestSearch_CorruptEntryIsMiss(t *testing.T) {
	inner := &mockPipeline{docs: testDocs}
	c, ms := newTestCache(t, inner)
	ms.data[c.key(opSearch, "go", "false")] = []byte("{not json")

	docs, err := c.Search(context.Background(), "go", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.searchCalls != 1 || len(docs) != 1 {
		t.Errorf("expected fallback to inner, calls=%d docs=%+v", inner.searchCalls, docs)
	}
}

func TestSearch_InnerErrorNotCached(t *testing.T) {
	sentinel := errors.New("pipeline exploded")
	inner := &mockPipeline{err: sentinel}
	c, ms := newTestCache(t, inner)

	_, err := c.Search(context.Background(), "go", false)
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected inner error, got %v", err)
	}
	if len(ms.data) != 0 {
		t.Error("errors must not be cached")
	}
}

func TestPlot_CacheMissThenHit(t *testing.T) {
	inner := &mockPipeline{g: graph.New([]any{map[string]any{"id": "go", "group": 0}}, nil)}
	c, _ := newTestCache(t, inner)
	ctx := context.Background()

	if _, err := c.Plot(ctx, "go", 3, 1, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := c.Plot(ctx, "go", 3, 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.plotCalls != 1 {
		t.Errorf("expected inner to be called once, got %d", inner.plotCalls)
	}
	if len(g.Nodes) != 1 || g.Links == nil {
		t.Errorf("unexpected cached graph: %+v", g)
	}

	if _, err := c.Plot(ctx, "go", 4, 1, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.plotCalls != 2 {
		t.Errorf("expected k_tags to be part of the key, inner called %d times", inner.plotCalls)
	}
}

func TestKey_DigestScoped(t *testing.T) {
	a := New(&mockPipeline{}, newMockKVStore(), "aaa", time.Hour, nil, zap.NewNop())
	b := New(&mockPipeline{}, newMockKVStore(), "bbb", time.Hour, nil, zap.NewNop())

	if a.key(opSearch, "go", "true") == b.key(opSearch, "go", "true") {
		t.Error("keys must differ across artifact digests")
	}
	if a.key(opSearch, "a b", "true") == a.key(opSearch, "a", "b true") {
		t.Error("keys must not collide through separators")
	}
}

func TestCacheMetrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_result_cache_total"}, []string{"op", "result"})
	c := New(&mockPipeline{docs: testDocs}, newMockKVStore(), "d", time.Hour, counter, zap.NewNop())
	ctx := context.Background()

	_, _ = c.Search(ctx, "go", false)
	_, _ = c.Search(ctx, "go", false)

	if v := testutil.ToFloat64(counter.WithLabelValues("search", "miss")); v != 1 {
		t.Errorf("expected 1 miss, got %v", v)
	}
	if v := testutil.ToFloat64(counter.WithLabelValues("search", "hit")); v != 1 {
		t.Errorf("expected 1 hit, got %v", v)
	}
}

func TestLen(t *testing.T) {
	c, _ := newTestCache(t, &mockPipeline{docs: testDocs})
	if c.Len() != 1 {
		t.Errorf("expected Len=1, got %d", c.Len())
	}
}
