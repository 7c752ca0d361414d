package factgpt

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ohmygaugh/factgpt/internal/db"
	dbRedis "github.com/ohmygaugh/factgpt/internal/db/redis"
	"github.com/ohmygaugh/factgpt/internal/domain/document"
	"github.com/ohmygaugh/factgpt/internal/domain/graph"
	"github.com/ohmygaugh/factgpt/internal/pipeline"
	"github.com/ohmygaugh/factgpt/internal/repository/resultcache"
	openaiChat "github.com/ohmygaugh/factgpt/internal/transport/openai"
	chatuc "github.com/ohmygaugh/factgpt/internal/usecase/chat"
	healthuc "github.com/ohmygaugh/factgpt/internal/usecase/health"
	"github.com/ohmygaugh/factgpt/internal/usecase/knowledge"
)

const cacheReadyTimeout = 10 * time.Second

// Document is a search result.
type Document = document.Document

// Graph is a plot result: nodes and links ready for a force-directed layout.
type Graph = graph.Graph

// SearchOptions controls a Search call.
type SearchOptions struct {
	// Tags keeps only documents whose tags match the query.
	Tags bool
	// SortByDate orders results newest first.
	SortByDate bool
}

// Client is the factgpt SDK entry point.
type Client struct {
	store     db.Store
	knowledge *knowledge.Service
	chat      *chatuc.Service
	health    *healthuc.Service
	obs       *observer
}

// New loads the pipeline artifact and wires the optional cache and chat provider.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	// Internal layers log through zap; SDK callers get slog via the observer.
	logger := zap.NewNop()

	var store db.Store
	if len(cfg.cacheAddrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.cacheAddrs, Password: cfg.cachePassword})
		if err != nil {
			return nil, fmt.Errorf("factgpt: create cache: %w", err)
		}
		if err := s.WaitForReady(ctx, cacheReadyTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("factgpt: cache not ready: %w", err)
		}
		store = s
	}

	ks := knowledge.New(
		knowledge.LoaderFunc(func(context.Context) (knowledge.Pipeline, error) {
			p, err := pipeline.Open(cfg.artifactPath)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", cfg.artifactPath, err)
			}
			if store == nil {
				return p, nil
			}
			return resultcache.New(p, store, p.Digest(), cfg.cacheTTL, nil, logger), nil
		}),
		logger,
	).WithPlotDefaults(cfg.kYens, cfg.kWalk)

	if err := ks.Start(ctx); err != nil {
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("factgpt: %w", err)
	}

	completer := cfg.completer
	if completer == nil && cfg.apiKey != "" {
		completer = openaiChat.NewCompleter(&openaiChat.Config{
			APIKey:      cfg.apiKey,
			BaseURL:     cfg.baseURL,
			Model:       cfg.model,
			Temperature: 0.3,
			TopP:        1,
			MaxTokens:   300,
			Breaker: openaiChat.BreakerConfig{
				MaxRequests:      5,
				Interval:         30 * time.Second,
				Timeout:          60 * time.Second,
				MinRequests:      5,
				FailureThreshold: 0.8,
			},
			Logger: logger,
		})
	}

	c := &Client{store: store, knowledge: ks, obs: obs}
	if completer != nil {
		c.chat = chatuc.New(ks, completer)
	}

	c.health = healthuc.New(ks)
	if store != nil {
		c.health.With("cache", healthuc.CheckerFunc(store.Ping))
	}
	return c, nil
}

// Len returns the number of documents in the loaded pipeline.
func (c *Client) Len() int {
	return c.knowledge.Len()
}

// Search returns the documents matching q.
func (c *Client) Search(ctx context.Context, q string, opts SearchOptions) (docs []Document, err error) {
	defer func(start time.Time) { c.obs.observe("search", start, len(docs), err) }(time.Now())

	docs, err = c.knowledge.Search(ctx, q, opts.Tags)
	if err != nil {
		return nil, err //nolint:wrapcheck // domain sentinels are part of the SDK surface
	}
	if opts.SortByDate {
		docs, err = document.SortByDateDesc(docs)
		if err != nil {
			return nil, fmt.Errorf("sort results: %w", err)
		}
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// Plot returns the tag graph around q seeded with up to kTags tags.
func (c *Client) Plot(ctx context.Context, q string, kTags int) (g Graph, err error) {
	defer func(start time.Time) { c.obs.observe("plot", start, len(g.Nodes), err) }(time.Now())

	if kTags < 0 {
		return Graph{}, fmt.Errorf("%w: k_tags must not be negative, got %d", ErrInvalidParameter, kTags)
	}
	return c.knowledge.Plot(ctx, q, kTags) //nolint:wrapcheck // domain sentinels are part of the SDK surface
}

// Recommend streams a re-ranking of the documents matching q. emit receives
// the whole cleaned answer after each token; a nil emit is allowed.
// The final answer is returned.
func (c *Client) Recommend(ctx context.Context, q string, emit func(text string) error) (text string, err error) {
	defer func(start time.Time) { c.obs.observe("recommend", start, utf8.RuneCountInString(text), err) }(time.Now())

	if c.chat == nil {
		return "", ErrChatNotConfigured
	}
	_, err = c.chat.Recommend(ctx, q, func(s string) error {
		text = s
		if emit == nil {
			return nil
		}
		return emit(s)
	})
	if err != nil {
		return text, err //nolint:wrapcheck // domain sentinels are part of the SDK surface
	}
	return text, nil
}

// Close releases the cache connection, if any.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

var errNilClient = errors.New("factgpt: nil client")
