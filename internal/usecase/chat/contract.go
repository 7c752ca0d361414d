package chat

import (
	"context"

	"github.com/ohmygaugh/factgpt/internal/domain/document"
)

// Searcher retrieves the candidate documents to re-rank.
type Searcher interface {
	Search(ctx context.Context, q string, tags bool) ([]document.Document, error)
}

// Prompt is the system+user message pair sent to the completion provider.
type Prompt struct {
	System string
	User   string
}

// Completer opens a streaming chat completion.
type Completer interface {
	Stream(ctx context.Context, p Prompt) (TokenStream, error)
}

// TokenStream yields completion text deltas. Recv returns io.EOF once the completion ends.
type TokenStream interface {
	Recv() (string, error)
	Close()
}
