package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")

	// ErrRetrievalUnavailable marks an index that is missing or not yet
	// built. The pipeline degrades to the surviving index.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrPlanningFailure means no intent or table matched the question.
	// The generator is told to avoid numeric claims.
	ErrPlanningFailure = errors.New("query planning failure")

	// ErrExecutionFailed means a query ran and failed; it is captured as
	// an errored citation, not a pipeline abort.
	ErrExecutionFailed = errors.New("query execution failed")

	// ErrTemporary marks transport-level failures (model or store
	// unreachable), fatal for the current question, retryable by the
	// caller.
	ErrTemporary = errors.New("temporary failure")

	// ErrParseFailure means a model response stayed unusable after every
	// fallback extraction.
	ErrParseFailure = errors.New("response parse failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
