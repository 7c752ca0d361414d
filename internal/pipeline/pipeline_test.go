package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohmygaugh/factgpt/internal/domain/document"
)

func corpus() Artifact {
	return Artifact{
		Version: ArtifactVersion,
		Documents: []document.Document{
			{
				Title: "Go concurrency patterns", Summary: "Goroutines and channels in Go",
				Tags: []string{"go", "concurrency"}, ExtraTags: []string{"channels"},
				URL: "https://example.com/go-concurrency", Date: "2021-01-01",
			},
			{
				Title: "Rust ownership", Summary: "Borrowing and lifetimes",
				Tags: []string{"rust", "memory"}, ExtraTags: []string{"ownership"},
				URL: "https://example.com/rust-ownership", Date: "2022-06-15",
			},
			{
				Title: "Writing HTTP servers in Go", Summary: "net/http basics",
				Tags: []string{"go", "http"}, ExtraTags: []string{},
				URL: "https://example.com/go-http", Date: "2023-03-01",
			},
			{
				Title: "Memory models", Summary: "Comparing Go and Rust memory models",
				Tags: []string{"memory", "concurrency"}, ExtraTags: []string{"go", "rust"},
				URL: "https://example.com/memory-models", Date: "2020-05-05",
			},
		},
	}
}

func titles(docs []document.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Title
	}
	return out
}

func TestSearch_RanksByWeightedHits(t *testing.T) {
	p := New(corpus(), "test")

	docs, err := p.Search(context.Background(), "Go", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go concurrency patterns", "Writing HTTP servers in Go", "Memory models"}, titles(docs))
}

func TestSearch_TagFilter(t *testing.T) {
	p := New(corpus(), "test")
	ctx := context.Background()

	docs, err := p.Search(ctx, "rust", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust ownership", "Memory models"}, titles(docs))

	docs, err = p.Search(ctx, "borrowing", true)
	require.NoError(t, err)
	assert.Empty(t, docs, "summary-only hits are dropped by the tag filter")

	docs, err = p.Search(ctx, "borrowing", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust ownership"}, titles(docs))
}

func TestSearch_TopK(t *testing.T) {
	a := corpus()
	a.TopK = 2
	p := New(a, "test")

	docs, err := p.Search(context.Background(), "go", false)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestSearch_NoTerms(t *testing.T) {
	p := New(corpus(), "test")

	docs, err := p.Search(context.Background(), " -- ", false)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestSearch_CancelledContext(t *testing.T) {
	p := New(corpus(), "test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Search(ctx, "go", false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecode(t *testing.T) {
	data, err := json.Marshal(corpus())
	require.NoError(t, err)

	p, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Len())
	assert.Len(t, p.Digest(), 64)
	assert.Equal(t, DefaultTopK, p.topK)

	again, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, p.Digest(), again.Digest())
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"version": 1, "documents": [`},
		{"wrong version", `{"version": 2, "documents": []}`},
		{"missing version", `{"documents": []}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.json")
	data, err := json.Marshal(corpus())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	p, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, 4, p.Len())

	_, err = Open(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_SampleArtifact(t *testing.T) {
	p, err := Open(filepath.Join("..", "..", "database", "pipeline.json"))
	require.NoError(t, err)
	assert.Positive(t, p.Len())
}
