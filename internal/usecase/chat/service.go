package chat

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ohmygaugh/factgpt/internal/domain/answer"
	logpkg "github.com/ohmygaugh/factgpt/internal/logger"
)

const systemPromptTemplate = "You are a knowledgeable personal assistant. Based on the input query %s, " +
	"you will recommend the best resources from the set of retrieved documents. " +
	"You will write for the top 3 recommended resources their title, a comprehensive and short " +
	"description and their url. Rely on the set of documents provided and on your knowledge."

// Emitter receives the cleaned answer after every token.
type Emitter func(text string) error

// Result summarizes a finished recommendation stream.
type Result struct {
	Tokens      int
	ContextSize int
}

// Service re-ranks search results by streaming them through a chat-completion model.
type Service struct {
	search    Searcher
	completer Completer
	opts      answer.ContextOptions
}

// New creates a chat service.
func New(search Searcher, completer Completer) *Service {
	return &Service{search: search, completer: completer}
}

// WithContextLimits overrides the summary and context sizes, in runes.
func (s *Service) WithContextLimits(summaryChars, contextChars int) *Service {
	s.opts = answer.ContextOptions{SummaryChars: summaryChars, ContextChars: contextChars}
	return s
}

// SystemPrompt returns the instruction sent with every recommendation request.
func SystemPrompt(q string) string {
	return fmt.Sprintf(systemPromptTemplate, q)
}

// Recommend searches q without the tag filter, streams the documents to the
// model and calls emit with the whole cleaned answer after each token.
// Nothing is emitted before the first token arrives.
func (s *Service) Recommend(ctx context.Context, q string, emit Emitter) (Result, error) {
	docs, err := s.search.Search(ctx, q, false)
	if err != nil {
		return Result{}, fmt.Errorf("search documents: %w", err)
	}

	content := answer.BuildContext(docs, s.opts)
	res := Result{ContextSize: len([]rune(content))}

	logpkg.FromContext(ctx).Info("chat query",
		zap.String("q", q),
		zap.Int("documents", len(docs)),
		zap.Int("content_length", res.ContextSize),
	)

	stream, err := s.completer.Stream(ctx, Prompt{System: SystemPrompt(q), User: content})
	if err != nil {
		return res, fmt.Errorf("open completion stream: %w", err)
	}
	defer stream.Close()

	var buf answer.Stream
	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.Tokens = buf.Tokens()
			return res, fmt.Errorf("receive token: %w", err)
		}
		if token == "" {
			continue
		}
		if err := emit(buf.Add(token)); err != nil {
			res.Tokens = buf.Tokens()
			return res, fmt.Errorf("emit answer: %w", err)
		}
	}

	res.Tokens = buf.Tokens()
	return res, nil
}
