package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	json "github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ohmygaugh/factgpt/internal/domain"
	"github.com/ohmygaugh/factgpt/internal/metrics"
	"github.com/ohmygaugh/factgpt/internal/usecase/chat"
)

// Compile-time check: Completer implements chat.Completer.
var _ chat.Completer = (*Completer)(nil)

// Completer streams chat completions from an OpenAI-compatible API.
// Calls pass a local rate limiter and then a circuit breaker that guards stream creation.
type Completer struct {
	client      *openai.Client
	model       string
	temperature float32
	topP        float32
	maxTokens   int
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	MinRequests      uint32
	FailureThreshold float64
}

// Config holds the chat provider settings.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Temperature       float32
	TopP              float32
	MaxTokens         int
	RequestsPerSecond float64 // 0 = unlimited
	Burst             int
	Breaker           BreakerConfig
	Logger            *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat completer.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	// go-openai omits a zero temperature, which leaves the provider default in effect.
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	logger := cfg.Logger
	bc := cfg.Breaker
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "chat-completion",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests || counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// A client hanging up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Completer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: temperature,
		topP:        cfg.TopP,
		maxTokens:   cfg.MaxTokens,
		limiter:     rate.NewLimiter(limit, burst),
		breaker:     breaker,
		logger:      logger,
	}
}

// Stream implements chat.Completer.
func (c *Completer) Stream(ctx context.Context, p chat.Prompt) (chat.TokenStream, error) {
	if err := ctx.Err(); err != nil {
		c.recordFailure("canceled")
		return nil, fmt.Errorf("open stream: %w", err)
	}
	// Over-limit calls are rejected rather than queued.
	if !c.limiter.Allow() {
		c.recordFailure("rate_limited")
		return nil, fmt.Errorf("%w: %.3g req/s exceeded", domain.ErrRateLimited, float64(c.limiter.Limit()))
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: p.System},
			{Role: openai.ChatMessageRoleUser, Content: p.User},
		},
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
		Stream:      true,
	}

	start := time.Now()

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.client.CreateChatCompletionStream(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.recordFailure("circuit_open")
			return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
		}
		if ctx.Err() != nil {
			c.recordFailure("canceled")
			return nil, fmt.Errorf("open stream: %w", ctx.Err())
		}
		c.recordFailure("api_error")
		return nil, parseAPIError(err)
	}

	stream, ok := res.(*openai.ChatCompletionStream)
	if !ok {
		c.recordFailure("api_error")
		return nil, fmt.Errorf("unexpected stream type %T: %w", res, domain.ErrUpstreamStream)
	}

	return &tokenStream{stream: stream, model: c.model, start: start}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (c *Completer) recordFailure(errorType string) {
	metrics.ChatRequestsTotal.WithLabelValues(c.model, "error").Inc()
	metrics.ChatErrorsTotal.WithLabelValues(c.model, errorType).Inc()
}

// tokenStream adapts a go-openai stream to chat.TokenStream and records
// request metrics once, when the stream ends or fails.
type tokenStream struct {
	stream *openai.ChatCompletionStream
	model  string
	start  time.Time
	done   bool
}

// Recv returns the next content delta. Chunks without choices yield "".
func (s *tokenStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		s.finish("success", "")
		return "", io.EOF
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.finish("error", "canceled")
			return "", fmt.Errorf("receive: %w", err)
		}
		s.finish("error", "stream_error")
		return "", parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	metrics.ChatTokensTotal.WithLabelValues(s.model).Inc()
	return resp.Choices[0].Delta.Content, nil
}

// Close releases the underlying HTTP response. Closing before io.EOF counts as aborted.
func (s *tokenStream) Close() {
	s.finish("error", "aborted")
	s.stream.Close()
}

func (s *tokenStream) finish(status, errorType string) {
	if s.done {
		return
	}
	s.done = true
	metrics.ChatRequestsTotal.WithLabelValues(s.model, status).Inc()
	metrics.ChatStreamDuration.WithLabelValues(s.model).Observe(time.Since(s.start).Seconds())
	if errorType != "" {
		metrics.ChatErrorsTotal.WithLabelValues(s.model, errorType).Inc()
	}
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrUpstreamStream for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrUpstreamStream

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("completion API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("completion request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body (used by some OpenAI-compatible providers).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
