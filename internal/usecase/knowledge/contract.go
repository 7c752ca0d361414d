package knowledge

import (
	"context"

	"github.com/ohmygaugh/factgpt/internal/domain/document"
	"github.com/ohmygaugh/factgpt/internal/domain/graph"
)

// Pipeline is the pre-built knowledge pipeline: document search and tag-graph plotting.
type Pipeline interface {
	Search(ctx context.Context, q string, tags bool) ([]document.Document, error)
	Plot(ctx context.Context, q string, kTags, kYens, kWalk int) (graph.Graph, error)
}

// Loader deserializes the pipeline artifact.
type Loader interface {
	Load(ctx context.Context) (Pipeline, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (Pipeline, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context) (Pipeline, error) {
	return f(ctx)
}

// Sized is implemented by pipelines that can report their corpus size.
type Sized interface {
	Len() int
}
