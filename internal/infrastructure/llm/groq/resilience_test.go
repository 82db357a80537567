package groq

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

func TestClassifyLLMError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantRetryable bool
		wantRecord    bool
	}{
		{name: "context cancel", err: context.Canceled},
		{name: "rate limited", err: &openai.APIError{HTTPStatusCode: 429}, wantRetryable: true, wantRecord: true},
		{name: "server error", err: &openai.APIError{HTTPStatusCode: 502}, wantRetryable: true, wantRecord: true},
		{name: "bad request", err: &openai.APIError{HTTPStatusCode: 400}},
		{name: "unauthorized", err: &openai.RequestError{HTTPStatusCode: 401}},
		{name: "plain transport", err: errors.New("connection refused"), wantRetryable: true, wantRecord: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyLLMError(tt.err)
			if got.Retryable != tt.wantRetryable || got.RecordFailure != tt.wantRecord {
				t.Fatalf("classifyLLMError() = %+v", got)
			}
		})
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	transport := errors.New("connection refused")
	wrapped := wrapTemporaryIfNeeded("llm complete", transport)
	if !domain.IsKind(wrapped, domain.ErrTemporary) {
		t.Fatalf("transport error should become ErrTemporary, got %v", wrapped)
	}

	badReq := &openai.APIError{HTTPStatusCode: 400, Message: "bad"}
	if got := wrapTemporaryIfNeeded("llm complete", badReq); domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("client error must stay untyped: %v", got)
	}

	if got := wrapTemporaryIfNeeded("llm complete", context.Canceled); !errors.Is(got, context.Canceled) || domain.IsKind(got, domain.ErrTemporary) {
		t.Fatalf("context errors pass through: %v", got)
	}

	if got := wrapTemporaryIfNeeded("llm complete", nil); got != nil {
		t.Fatalf("nil stays nil, got %v", got)
	}
}
