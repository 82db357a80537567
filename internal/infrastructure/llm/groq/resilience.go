package groq

import (
	"context"
	"errors"
	"net"

	openai "github.com/sashabaranov/go-openai"

	"github.com/edgarqa/edgarqa/internal/core/domain"
	"github.com/edgarqa/edgarqa/internal/infrastructure/resilience"
)

func classifyLLMError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	// Transport failures without a status code (connection refused, DNS)
	// surface as plain errors from the HTTP client.
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

func classifyStatus(status int) resilience.ErrorClassification {
	switch {
	case status == 408 || status == 429:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	case status >= 500:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		// Other 4xx mean a malformed request; retrying cannot help and the
		// provider is healthy, so the breaker stays untouched.
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	class := classifyLLMError(err)
	if class.Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
