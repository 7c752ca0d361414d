package knowledge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/ohmygaugh/factgpt/internal/domain"
	"github.com/ohmygaugh/factgpt/internal/domain/document"
	"github.com/ohmygaugh/factgpt/internal/domain/graph"
)

// --- Mocks ---

type mockPipeline struct {
	docs      []document.Document
	graph     graph.Graph
	err       error
	gotQuery  string
	gotTags   bool
	gotKTags  int
	gotKYens  int
	gotKWalk  int
	searchCnt int
}

func (m *mockPipeline) Search(_ context.Context, q string, tags bool) ([]document.Document, error) {
	m.searchCnt++
	m.gotQuery, m.gotTags = q, tags
	return m.docs, m.err
}

func (m *mockPipeline) Plot(_ context.Context, q string, kTags, kYens, kWalk int) (graph.Graph, error) {
	m.gotQuery = q
	m.gotKTags, m.gotKYens, m.gotKWalk = kTags, kYens, kWalk
	return m.graph, m.err
}

func (m *mockPipeline) Len() int { return len(m.docs) }

func staticLoader(p Pipeline, err error, calls *int) Loader {
	return LoaderFunc(func(context.Context) (Pipeline, error) {
		*calls++
		return p, err
	})
}

// --- Tests ---

func TestStart_LoadsOnce(t *testing.T) {
	calls := 0
	p := &mockPipeline{docs: []document.Document{{Title: "a"}}}
	svc := New(staticLoader(p, nil, &calls), zap.NewNop())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Start(context.Background()); err != nil {
				t.Errorf("Start: %v", err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("expected loader called once, got %d", calls)
	}
	if !svc.Ready() {
		t.Error("expected service ready")
	}
	if svc.Len() != 1 {
		t.Errorf("expected Len=1, got %d", svc.Len())
	}
}

func TestStart_LoaderError(t *testing.T) {
	calls := 0
	svc := New(staticLoader(nil, errors.New("no such file"), &calls), zap.NewNop())

	err := svc.Start(context.Background())
	if !errors.Is(err, domain.ErrArtifactLoad) {
		t.Fatalf("expected ErrArtifactLoad, got %v", err)
	}

	// The failure is sticky: no retry.
	if err2 := svc.Start(context.Background()); !errors.Is(err2, domain.ErrArtifactLoad) {
		t.Fatalf("expected sticky ErrArtifactLoad, got %v", err2)
	}
	if calls != 1 {
		t.Errorf("expected loader called once, got %d", calls)
	}
	if svc.Ready() {
		t.Error("service must not be ready after failed start")
	}
}

func TestStart_NilPipeline(t *testing.T) {
	calls := 0
	svc := New(staticLoader(nil, nil, &calls), zap.NewNop())

	if err := svc.Start(context.Background()); !errors.Is(err, domain.ErrArtifactLoad) {
		t.Fatalf("expected ErrArtifactLoad, got %v", err)
	}
}

func TestSearch_NotStarted(t *testing.T) {
	svc := New(LoaderFunc(func(context.Context) (Pipeline, error) { return &mockPipeline{}, nil }), zap.NewNop())

	_, err := svc.Search(context.Background(), "go", true)
	if !errors.Is(err, domain.ErrPipelineNotLoaded) {
		t.Fatalf("expected ErrPipelineNotLoaded, got %v", err)
	}
	if _, err := svc.Plot(context.Background(), "go", 3); !errors.Is(err, domain.ErrPipelineNotLoaded) {
		t.Fatalf("expected ErrPipelineNotLoaded from Plot, got %v", err)
	}
	if err := svc.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check error before start")
	}
}

func TestSearch_Delegates(t *testing.T) {
	calls := 0
	p := &mockPipeline{docs: []document.Document{{Title: "x"}, {Title: "y"}}}
	svc := New(staticLoader(p, nil, &calls), zap.NewNop())
	if err := svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	docs, err := svc.Search(context.Background(), "golang", true)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(docs) != 2 || docs[0].Title != "x" {
		t.Errorf("unexpected docs: %+v", docs)
	}
	if p.gotQuery != "golang" || !p.gotTags {
		t.Errorf("unexpected delegation: q=%q tags=%v", p.gotQuery, p.gotTags)
	}
}

func TestSearch_PipelineError(t *testing.T) {
	calls := 0
	cause := errors.New("index corrupted")
	p := &mockPipeline{err: cause}
	svc := New(staticLoader(p, nil, &calls), zap.NewNop())
	_ = svc.Start(context.Background())

	_, err := svc.Search(context.Background(), "q", false)
	if !errors.Is(err, domain.ErrPipelineQuery) {
		t.Fatalf("expected ErrPipelineQuery, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected original cause preserved, got %v", err)
	}
}

func TestPlot_DefaultsAndPassthrough(t *testing.T) {
	calls := 0
	nodes := []any{map[string]any{"id": 1}}
	p := &mockPipeline{graph: graph.Graph{Nodes: nodes}}
	svc := New(staticLoader(p, nil, &calls), zap.NewNop())
	_ = svc.Start(context.Background())

	g, err := svc.Plot(context.Background(), "rust", 5)
	if err != nil {
		t.Fatalf("Plot: %v", err)
	}
	if p.gotKTags != 5 || p.gotKYens != DefaultKYens || p.gotKWalk != DefaultKWalk {
		t.Errorf("unexpected plot args: %d %d %d", p.gotKTags, p.gotKYens, p.gotKWalk)
	}
	if len(g.Nodes) != 1 {
		t.Errorf("expected nodes passed through, got %v", g.Nodes)
	}
	if g.Links == nil {
		t.Error("links must be an empty slice, not nil")
	}
}

func TestPlot_CustomDefaults(t *testing.T) {
	calls := 0
	p := &mockPipeline{}
	svc := New(staticLoader(p, nil, &calls), zap.NewNop()).WithPlotDefaults(2, 4)
	_ = svc.Start(context.Background())

	if _, err := svc.Plot(context.Background(), "q", 1); err != nil {
		t.Fatal(err)
	}
	if p.gotKYens != 2 || p.gotKWalk != 4 {
		t.Errorf("expected kYens=2 kWalk=4, got %d %d", p.gotKYens, p.gotKWalk)
	}
}
