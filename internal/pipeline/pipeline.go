// Package pipeline implements the snapshot knowledge pipeline: a JSON artifact
// of tagged documents, built offline, answering search and tag-graph plot
// queries from memory.
//
// A Pipeline is immutable after Open and safe for concurrent use.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/ohmygaugh/factgpt/internal/domain/document"
)

// ArtifactVersion is the artifact format this package reads.
const ArtifactVersion = 1

// DefaultTopK caps search results when the artifact does not set top_k.
const DefaultTopK = 10

// Artifact is the serialized pipeline.
type Artifact struct {
	Version   int                 `json:"version"`
	TopK      int                 `json:"top_k"`
	Documents []document.Document `json:"documents"`
}

// Pipeline answers search and plot queries over a loaded artifact.
type Pipeline struct {
	docs   []document.Document
	index  []indexedDoc
	topK   int
	graph  *tagGraph
	digest string
}

// Open reads and decodes the artifact at path.
func Open(path string) (*Pipeline, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	p, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return p, nil
}

// Decode builds a Pipeline from artifact bytes.
func Decode(data []byte) (*Pipeline, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal artifact: %w", err)
	}
	if a.Version != ArtifactVersion {
		return nil, fmt.Errorf("unsupported artifact version %d (want %d)", a.Version, ArtifactVersion)
	}

	sum := sha256.Sum256(data)
	return New(a, hex.EncodeToString(sum[:])), nil
}

// New indexes an in-memory artifact. digest identifies the artifact content.
func New(a Artifact, digest string) *Pipeline {
	topK := a.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	p := &Pipeline{
		docs:   a.Documents,
		index:  make([]indexedDoc, len(a.Documents)),
		topK:   topK,
		graph:  newTagGraph(a.Documents),
		digest: digest,
	}
	for i, d := range a.Documents {
		p.index[i] = indexDocument(d)
	}
	return p
}

// Len returns the number of documents in the artifact.
func (p *Pipeline) Len() int {
	return len(p.docs)
}

// Digest returns the hex SHA-256 of the artifact bytes.
func (p *Pipeline) Digest() string {
	return p.digest
}

// Search returns up to top_k documents matching q, best first.
// When tags is true only documents tagged with a query term are kept.
func (p *Pipeline) Search(ctx context.Context, q string, tags bool) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	hits := p.rank(tokenize(q), tags)
	out := make([]document.Document, len(hits))
	for i, h := range hits {
		out[i] = p.docs[h.doc]
	}
	return out, nil
}
