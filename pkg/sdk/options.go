package factgpt

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	chatuc "github.com/ohmygaugh/factgpt/internal/usecase/chat"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	artifactPath string
	kYens        int
	kWalk        int

	cacheAddrs    []string
	cachePassword string
	cacheTTL      time.Duration

	apiKey    string
	baseURL   string
	model     string
	completer chatuc.Completer

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		artifactPath: filepath.Join("database", "pipeline.json"),
		cacheTTL:     time.Hour,
		baseURL:      "https://api.openai.com/v1",
		model:        "gpt-3.5-turbo",
	}
}

// WithArtifact sets the pipeline artifact path. Default: database/pipeline.json.
func WithArtifact(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.artifactPath = path
	})
}

// WithPlotDefaults sets the path count and walk length used by Plot.
// Defaults: kYens=1, kWalk=3.
func WithPlotDefaults(kYens, kWalk int) Option {
	return optionFunc(func(c *clientConfig) {
		c.kYens = kYens
		c.kWalk = kWalk
	})
}

// WithCache caches search and plot results in a Valkey or Redis instance.
func WithCache(addr, password string, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheAddrs = []string{addr}
		c.cachePassword = password
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	})
}

// WithOpenAI enables Recommend through an OpenAI-compatible API.
// Empty baseURL and model keep the defaults.
func WithOpenAI(apiKey, baseURL, model string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
		if baseURL != "" {
			c.baseURL = baseURL
		}
		if model != "" {
			c.model = model
		}
	})
}

// withCompleter replaces the completion provider (tests).
func withCompleter(cp chatuc.Completer) Option {
	return optionFunc(func(c *clientConfig) {
		c.completer = cp
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
