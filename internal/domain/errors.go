package domain

import "errors"

var (
	// ErrArtifactLoad signals that the pipeline artifact is missing or malformed.
	ErrArtifactLoad = errors.New("pipeline artifact load failed")
	// ErrPipelineNotLoaded signals a query against a pipeline that was never started.
	ErrPipelineNotLoaded = errors.New("pipeline not loaded")
	// ErrPipelineQuery signals a failure inside a pipeline search or plot call.
	ErrPipelineQuery = errors.New("pipeline query failed")
	// ErrDateParse signals a document date that is not in YYYY-MM-DD format.
	ErrDateParse = errors.New("document date parse failed")
	// ErrInvalidParameter signals a malformed path parameter.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUpstreamStream signals a chat-completion provider failure.
	ErrUpstreamStream = errors.New("upstream completion failed")
	// ErrUpstreamUnavailable signals that calls to the provider are short-circuited.
	ErrUpstreamUnavailable = errors.New("upstream completion unavailable")
	// ErrRateLimited signals that the local provider rate limit rejected the call.
	ErrRateLimited = errors.New("rate limited")
)
