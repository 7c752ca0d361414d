package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ohmygaugh/factgpt/internal/domain"
	"github.com/ohmygaugh/factgpt/internal/domain/document"
)

// --- Mocks ---

type mockSearcher struct {
	docs    []document.Document
	err     error
	gotTags *bool
}

func (m *mockSearcher) Search(_ context.Context, _ string, tags bool) ([]document.Document, error) {
	m.gotTags = &tags
	return m.docs, m.err
}

type mockStream struct {
	tokens []string
	err    error // returned after tokens are exhausted instead of io.EOF
	closed bool
}

func (m *mockStream) Recv() (string, error) {
	if len(m.tokens) == 0 {
		if m.err != nil {
			return "", m.err
		}
		return "", io.EOF
	}
	t := m.tokens[0]
	m.tokens = m.tokens[1:]
	return t, nil
}

func (m *mockStream) Close() { m.closed = true }

type mockCompleter struct {
	stream *mockStream
	err    error
	got    Prompt
}

func (m *mockCompleter) Stream(_ context.Context, p Prompt) (TokenStream, error) {
	m.got = p
	if m.err != nil {
		return nil, m.err
	}
	return m.stream, nil
}

func twoDocs() []document.Document {
	return []document.Document{
		{Title: "Go Tour", Summary: "An interactive introduction to Go", Tags: []string{"go"}, URL: "https://go.dev/tour"},
		{Title: "Effective Go", Summary: "Tips", Tags: []string{"go"}, ExtraTags: []string{"style"}, URL: "https://go.dev/doc/effective_go"},
		{Title: "Last", Summary: "dropped", URL: "u"},
	}
}

// --- Tests ---

func TestRecommend_StreamsCleanedBuffer(t *testing.T) {
	search := &mockSearcher{docs: twoDocs()}
	stream := &mockStream{tokens: []string{"1. Title: A", "\n\n", "Summary: B", ""}}
	comp := &mockCompleter{stream: stream}
	svc := New(search, comp)

	var chunks []string
	res, err := svc.Recommend(context.Background(), "golang", func(text string) error {
		chunks = append(chunks, text)
		return nil
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}

	want := []string{"\n1. A", "\n1. A\n", "\n1. A\nB"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
	if res.Tokens != 3 {
		t.Errorf("expected 3 tokens, got %d", res.Tokens)
	}
	if !stream.closed {
		t.Error("stream must be closed")
	}
}

func TestRecommend_SearchesWithoutTagFilter(t *testing.T) {
	search := &mockSearcher{docs: twoDocs()}
	comp := &mockCompleter{stream: &mockStream{}}
	svc := New(search, comp)

	if _, err := svc.Recommend(context.Background(), "golang", func(string) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if search.gotTags == nil || *search.gotTags {
		t.Fatal("expected search with tag filter disabled")
	}
}

func TestRecommend_PromptContents(t *testing.T) {
	search := &mockSearcher{docs: twoDocs()}
	comp := &mockCompleter{stream: &mockStream{}}
	svc := New(search, comp)

	res, err := svc.Recommend(context.Background(), "golang", func(string) error { return nil })
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(comp.got.System, "golang") || !strings.Contains(comp.got.System, "top 3") {
		t.Errorf("unexpected system prompt: %q", comp.got.System)
	}
	if !strings.HasPrefix(comp.got.User, "title: Go Tour\nsummary: An interactive introduction to\n") {
		t.Errorf("unexpected context: %q", comp.got.User)
	}
	if !strings.Contains(comp.got.User, "tags: go, style\n") {
		t.Errorf("expected joined tags and extra tags: %q", comp.got.User)
	}
	if strings.Contains(comp.got.User, "Last") {
		t.Errorf("last entry must be dropped: %q", comp.got.User)
	}
	if res.ContextSize != len([]rune(comp.got.User)) {
		t.Errorf("context size %d does not match prompt", res.ContextSize)
	}
}

func TestRecommend_ContextLimits(t *testing.T) {
	search := &mockSearcher{docs: twoDocs()}
	comp := &mockCompleter{stream: &mockStream{}}
	svc := New(search, comp).WithContextLimits(5, 3000)

	if _, err := svc.Recommend(context.Background(), "q", func(string) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(comp.got.User, "summary: An in\n") {
		t.Errorf("expected 5-char summary: %q", comp.got.User)
	}
}

func TestRecommend_SearchError(t *testing.T) {
	search := &mockSearcher{err: domain.ErrPipelineNotLoaded}
	comp := &mockCompleter{stream: &mockStream{}}
	svc := New(search, comp)

	_, err := svc.Recommend(context.Background(), "q", func(string) error { return nil })
	if !errors.Is(err, domain.ErrPipelineNotLoaded) {
		t.Fatalf("expected ErrPipelineNotLoaded, got %v", err)
	}
}

func TestRecommend_OpenStreamError(t *testing.T) {
	search := &mockSearcher{docs: twoDocs()}
	comp := &mockCompleter{err: domain.ErrUpstreamStream}
	svc := New(search, comp)

	emitted := 0
	_, err := svc.Recommend(context.Background(), "q", func(string) error { emitted++; return nil })
	if !errors.Is(err, domain.ErrUpstreamStream) {
		t.Fatalf("expected ErrUpstreamStream, got %v", err)
	}
	if emitted != 0 {
		t.Errorf("nothing must be emitted before the first token, got %d", emitted)
	}
}

func TestRecommend_MidStreamError(t *testing.T) {
	search := &mockSearcher{docs: twoDocs()}
	stream := &mockStream{tokens: []string{"Hello", " there"}, err: domain.ErrUpstreamStream}
	svc := New(search, &mockCompleter{stream: stream})

	var last string
	res, err := svc.Recommend(context.Background(), "q", func(text string) error { last = text; return nil })
	if !errors.Is(err, domain.ErrUpstreamStream) {
		t.Fatalf("expected ErrUpstreamStream, got %v", err)
	}
	if last != "Hello there" {
		t.Errorf("expected partial answer emitted before abort, got %q", last)
	}
	if res.Tokens != 2 {
		t.Errorf("expected 2 tokens, got %d", res.Tokens)
	}
	if !stream.closed {
		t.Error("stream must be closed on abort")
	}
}

func TestRecommend_EmitError(t *testing.T) {
	search := &mockSearcher{docs: twoDocs()}
	stream := &mockStream{tokens: []string{"a", "b", "c"}}
	svc := New(search, &mockCompleter{stream: stream})

	gone := errors.New("client gone")
	calls := 0
	_, err := svc.Recommend(context.Background(), "q", func(string) error { calls++; return gone })
	if !errors.Is(err, gone) {
		t.Fatalf("expected emit error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected stop after first failed emit, got %d calls", calls)
	}
}
