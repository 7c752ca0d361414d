package factgpt

import (
	"errors"

	"github.com/ohmygaugh/factgpt/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrArtifactLoad        = domain.ErrArtifactLoad
	ErrPipelineNotLoaded   = domain.ErrPipelineNotLoaded
	ErrPipelineQuery       = domain.ErrPipelineQuery
	ErrDateParse           = domain.ErrDateParse
	ErrInvalidParameter    = domain.ErrInvalidParameter
	ErrUpstreamStream      = domain.ErrUpstreamStream
	ErrUpstreamUnavailable = domain.ErrUpstreamUnavailable
	ErrRateLimited         = domain.ErrRateLimited
)

// ErrChatNotConfigured is returned by Recommend when no completion provider was set.
var ErrChatNotConfigured = errors.New("factgpt: chat provider not configured (use WithOpenAI)")
