package chi

import (
	"context"
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ohmygaugh/factgpt/internal/domain"
	"github.com/ohmygaugh/factgpt/internal/domain/document"
	logpkg "github.com/ohmygaugh/factgpt/internal/logger"
	chatuc "github.com/ohmygaugh/factgpt/internal/usecase/chat"
	healthuc "github.com/ohmygaugh/factgpt/internal/usecase/health"
	"github.com/ohmygaugh/factgpt/internal/usecase/knowledge"
)

// Error codes returned in the "code" field of error responses.
const (
	codeInvalidParameter    = "invalid_parameter"
	codePipelineUnavailable = "pipeline_unavailable"
	codeDateParse           = "date_parse_error"
	codePipelineError       = "pipeline_error"
	codeRateLimited         = "rate_limited"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeUpstreamError       = "upstream_error"
	codeNotFound            = "not_found"
	codeMethodNotAllowed    = "method_not_allowed"
	codeInternalError       = "internal_error"
)

const welcomeMessage = "Welcome to the API"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Server serves the search, plot and chat endpoints.
type Server struct {
	knowledge     *knowledge.Service
	chat          *chatuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	knowledgeSvc *knowledge.Service,
	chatSvc *chatuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		knowledge: knowledgeSvc,
		chat:      chatSvc,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidParameter, http.StatusUnprocessableEntity, codeInvalidParameter),
		sentinelHandler(domain.ErrPipelineNotLoaded, http.StatusServiceUnavailable, codePipelineUnavailable),
		sentinelHandler(domain.ErrArtifactLoad, http.StatusServiceUnavailable, codePipelineUnavailable),
		sentinelHandler(domain.ErrDateParse, http.StatusInternalServerError, codeDateParse),
		sentinelHandler(domain.ErrPipelineQuery, http.StatusInternalServerError, codePipelineError),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, codeUpstreamUnavailable),
		sentinelHandler(domain.ErrUpstreamStream, http.StatusBadGateway, codeUpstreamError),
	}
	return s
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Documents []document.Document `json:"documents"`
}

// Search handles GET /search/{sort}/{tags}/{k_tags}/{q}.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	p, err := bindSearchParams(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	docs, err := s.knowledge.Search(r.Context(), p.Q, p.tagFilter())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	if p.sortByDate {
		docs, err = document.SortByDateDesc(docs)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
	}
	if docs == nil {
		docs = []document.Document{}
	}

	logpkg.Annotate(r.Context(),
		zap.String("q", p.Q),
		zap.Bool("tags", p.tagFilter()),
		zap.Bool("sort", p.sortByDate),
		zap.Int("documents", len(docs)),
	)

	writeJSON(w, http.StatusOK, SearchResponse{Documents: docs})
}

// Plot handles GET /plot/{k_tags}/{q}.
func (s *Server) Plot(w http.ResponseWriter, r *http.Request) {
	p, err := bindQueryParams(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	g, err := s.knowledge.Plot(r.Context(), p.Q, p.KTags)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	logpkg.Annotate(r.Context(),
		zap.String("q", p.Q),
		zap.Int("k_tags", p.KTags),
		zap.Int("nodes", len(g.Nodes)),
		zap.Int("links", len(g.Links)),
	)

	writeJSON(w, http.StatusOK, g)
}

// Chat handles GET /chat/{k_tags}/{q}. The body is plain text; every chunk
// is the whole cleaned answer so far. Errors before the first chunk are
// JSON replies; later errors end the response early.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	p, err := bindQueryParams(r)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ctx := r.Context()
	log := logpkg.FromContext(ctx)
	rc := http.NewResponseController(w)
	started := false

	res, err := s.chat.Recommend(ctx, p.Q, func(text string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err //nolint:wrapcheck // wrapped by Recommend
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err //nolint:wrapcheck // wrapped by Recommend
		}
		return nil
	})

	logpkg.Annotate(ctx,
		zap.String("q", p.Q),
		zap.Int("tokens", res.Tokens),
		zap.Int("content_length", res.ContextSize),
	)

	switch {
	case err != nil && errors.Is(ctx.Err(), context.Canceled):
		log.Info("chat stream cancelled by client")
	case err != nil && started:
		log.Warn("chat stream aborted", zap.Error(err))
	case err != nil:
		s.handleDomainError(w, err)
	case !started:
		// Empty completion.
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// NotFound replies to unknown routes.
func (s *Server) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, codeNotFound, "not found")
}

// MethodNotAllowed replies to known routes called with an unsupported method.
func (s *Server) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidParameter,
		domain.ErrPipelineNotLoaded,
		domain.ErrArtifactLoad,
		domain.ErrDateParse,
		domain.ErrPipelineQuery,
		domain.ErrRateLimited,
		domain.ErrUpstreamUnavailable,
		domain.ErrUpstreamStream,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
