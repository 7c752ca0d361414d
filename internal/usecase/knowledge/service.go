package knowledge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ohmygaugh/factgpt/internal/domain"
	"github.com/ohmygaugh/factgpt/internal/domain/document"
	"github.com/ohmygaugh/factgpt/internal/domain/graph"
)

// Default plot tuning: one path per seed pair, three-step walks.
const (
	DefaultKYens = 1
	DefaultKWalk = 3
)

type loaded struct {
	p Pipeline
}

// Service holds the process-wide pipeline. It is loaded once by Start and read-only afterwards.
type Service struct {
	loader Loader
	kYens  int
	kWalk  int
	logger *zap.Logger

	once     sync.Once
	startErr error
	pipeline atomic.Pointer[loaded]
}

// New creates a Service that loads its pipeline from loader.
func New(loader Loader, logger *zap.Logger) *Service {
	return &Service{
		loader: loader,
		kYens:  DefaultKYens,
		kWalk:  DefaultKWalk,
		logger: logger,
	}
}

// WithPlotDefaults overrides the path count and walk length used by Plot.
func (s *Service) WithPlotDefaults(kYens, kWalk int) *Service {
	if kYens > 0 {
		s.kYens = kYens
	}
	if kWalk > 0 {
		s.kWalk = kWalk
	}
	return s
}

// Start loads the pipeline. Only the first call runs the loader; later calls return its outcome.
func (s *Service) Start(ctx context.Context) error {
	s.once.Do(func() {
		p, err := s.loader.Load(ctx)
		if err != nil {
			s.startErr = fmt.Errorf("%w: %w", domain.ErrArtifactLoad, err)
			return
		}
		if p == nil {
			s.startErr = fmt.Errorf("%w: loader returned no pipeline", domain.ErrArtifactLoad)
			return
		}
		s.pipeline.Store(&loaded{p: p})

		fields := []zap.Field{}
		if sz, ok := p.(Sized); ok {
			fields = append(fields, zap.Int("documents", sz.Len()))
		}
		s.logger.Info("Pipeline loaded successfully", fields...)
	})
	return s.startErr
}

// Ready reports whether Start completed successfully.
func (s *Service) Ready() bool {
	return s.pipeline.Load() != nil
}

// Len returns the number of loaded documents, or 0 when unknown.
func (s *Service) Len() int {
	l := s.pipeline.Load()
	if l == nil {
		return 0
	}
	if sz, ok := l.p.(Sized); ok {
		return sz.Len()
	}
	return 0
}

// Search delegates to the pipeline search.
func (s *Service) Search(ctx context.Context, q string, tags bool) ([]document.Document, error) {
	p, err := s.get()
	if err != nil {
		return nil, err
	}
	docs, err := p.Search(ctx, q, tags)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrPipelineQuery, err)
	}
	return docs, nil
}

// Plot delegates to the pipeline plot with the configured path count and walk length.
func (s *Service) Plot(ctx context.Context, q string, kTags int) (graph.Graph, error) {
	p, err := s.get()
	if err != nil {
		return graph.Graph{}, err
	}
	g, err := p.Plot(ctx, q, kTags, s.kYens, s.kWalk)
	if err != nil {
		return graph.Graph{}, fmt.Errorf("%w: plot: %w", domain.ErrPipelineQuery, err)
	}
	return graph.New(g.Nodes, g.Links), nil
}

// HealthCheck implements health.Checker.
func (s *Service) HealthCheck(_ context.Context) error {
	_, err := s.get()
	return err
}

func (s *Service) get() (Pipeline, error) {
	l := s.pipeline.Load()
	if l == nil {
		return nil, domain.ErrPipelineNotLoaded
	}
	return l.p, nil
}
