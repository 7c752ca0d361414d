package resultcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ohmygaugh/factgpt/internal/db"
	"github.com/ohmygaugh/factgpt/internal/domain/document"
	"github.com/ohmygaugh/factgpt/internal/domain/graph"
)

type mockPipeline struct {
	docs        []document.Document
	g           graph.Graph
	err         error
	searchCalls int
	plotCalls   int
}

func (m *mockPipeline) Search(_ context.Context, _ string, _ bool) ([]document.Document, error) {
	m.searchCalls++
	return m.docs, m.err
}

func (m *mockPipeline) Plot(_ context.Context, _ string, _, _, _ int) (graph.Graph, error) {
	m.plotCalls++
	return m.g, m.err
}

func (m *mockPipeline) Len() int { return len(m.docs) }

// mockKVStore is an in-memory implementation of the consumer interface.
type mockKVStore struct {
	data   map[string][]byte
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func newTestCache(t *testing.T, inner *mockPipeline) (*Pipeline, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(inner, ms, "digest", time.Hour, nil, zap.NewNop()), ms
}
