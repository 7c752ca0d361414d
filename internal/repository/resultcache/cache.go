package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ohmygaugh/factgpt/internal/db"
	"github.com/ohmygaugh/factgpt/internal/domain/document"
	"github.com/ohmygaugh/factgpt/internal/domain/graph"
	"github.com/ohmygaugh/factgpt/internal/usecase/knowledge"
)

const keyPrefix = "factgpt:"

// Cache operations, used as the "op" metric label.
const (
	opSearch = "search"
	opPlot   = "plot"
)

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Pipeline caches Search and Plot results of an inner pipeline in a key-value store.
// Keys embed the artifact digest, so a rebuilt artifact never reads stale entries.
// Store failures are logged and fall through to the inner pipeline.
type Pipeline struct {
	inner      knowledge.Pipeline
	store      store
	digest     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Compile-time check: Pipeline implements knowledge.Pipeline.
var _ knowledge.Pipeline = (*Pipeline)(nil)

// New creates a caching decorator.
// cacheTotal is a counter vec with labels "op" and "result" ("hit"/"miss"), passed explicitly.
func New(
	inner knowledge.Pipeline,
	s store,
	digest string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		inner:      inner,
		store:      s,
		digest:     digest,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Len reports the inner pipeline size when it is known.
func (p *Pipeline) Len() int {
	if sz, ok := p.inner.(knowledge.Sized); ok {
		return sz.Len()
	}
	return 0
}

// Search returns cached documents or calls the inner pipeline.
func (p *Pipeline) Search(ctx context.Context, q string, tags bool) ([]document.Document, error) {
	key := p.key(opSearch, q, strconv.FormatBool(tags))

	var docs []document.Document
	if p.getFromCache(ctx, key, &docs) {
		p.incCache(opSearch, "hit")
		return docs, nil
	}
	p.incCache(opSearch, "miss")

	docs, err := p.inner.Search(ctx, q, tags)
	if err != nil {
		return nil, err //nolint:wrapcheck // transparent decorator
	}

	p.putToCache(ctx, key, docs)
	return docs, nil
}

// Plot returns a cached graph or calls the inner pipeline.
func (p *Pipeline) Plot(ctx context.Context, q string, kTags, kYens, kWalk int) (graph.Graph, error) {
	key := p.key(opPlot, q, strconv.Itoa(kTags), strconv.Itoa(kYens), strconv.Itoa(kWalk))

	var g graph.Graph
	if p.getFromCache(ctx, key, &g) {
		p.incCache(opPlot, "hit")
		return graph.New(g.Nodes, g.Links), nil
	}
	p.incCache(opPlot, "miss")

	g, err := p.inner.Plot(ctx, q, kTags, kYens, kWalk)
	if err != nil {
		return graph.Graph{}, err //nolint:wrapcheck // transparent decorator
	}

	p.putToCache(ctx, key, g)
	return g, nil
}

func (p *Pipeline) incCache(op, result string) {
	if p.cacheTotal != nil {
		p.cacheTotal.WithLabelValues(op, result).Inc()
	}
}

// key hashes the NUL-joined parts so queries cannot collide through separators.
func (p *Pipeline) key(op string, parts ...string) string {
	h := sha256.New()
	for i, part := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(part))
	}
	return keyPrefix + p.digest + ":" + op + ":" + hex.EncodeToString(h.Sum(nil))
}

func (p *Pipeline) getFromCache(ctx context.Context, key string, dst any) bool {
	data, err := p.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			p.logger.Warn("Failed to get cached result", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if len(data) == 0 {
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		p.logger.Warn("Failed to parse cached result", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (p *Pipeline) putToCache(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Warn("Failed to encode result for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := p.store.SetWithTTL(ctx, key, data, p.ttl); err != nil {
		p.logger.Warn("Failed to cache result", zap.String("key", key), zap.Error(err))
	}
}
