package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/okolin/scribe/internal/core/domain"
	"github.com/okolin/scribe/internal/core/ports"
	"github.com/okolin/scribe/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// ResilientDrafter wraps the drafter with retry and a circuit breaker.
// Context deadlines pass through untouched so the orchestrator can map them
// to stage timeouts.
type ResilientDrafter struct {
	inner    ports.Drafter
	executor *resilience.Executor
}

func NewResilientDrafter(inner ports.Drafter, executor *resilience.Executor) *ResilientDrafter {
	return &ResilientDrafter{inner: inner, executor: executor}
}

func (d *ResilientDrafter) Draft(ctx context.Context, spec ports.DraftSpec) (string, error) {
	var content string
	err := d.executor.Execute(ctx, "ollama.draft", func(ctx context.Context) error {
		var innerErr error
		content, innerErr = d.inner.Draft(ctx, spec)
		return innerErr
	}, classifyOllamaError)
	return content, wrapTemporaryIfNeeded("draft content", err)
}

func (d *ResilientDrafter) Revise(ctx context.Context, draft string, reasons []string, spec ports.DraftSpec) (string, error) {
	var content string
	err := d.executor.Execute(ctx, "ollama.revise", func(ctx context.Context) error {
		var innerErr error
		content, innerErr = d.inner.Revise(ctx, draft, reasons, spec)
		return innerErr
	}, classifyOllamaError)
	return content, wrapTemporaryIfNeeded("revise content", err)
}

func classifyOllamaError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}

	class := classifyOllamaError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
