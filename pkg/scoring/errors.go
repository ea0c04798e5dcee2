package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrEmptyInput is returned when a required text is empty or whitespace
	// only. No embedding provider call is made in that case.
	ErrEmptyInput = errors.New("text must not be empty")

	// ErrInvalidInput is an alias of ErrEmptyInput.
	ErrInvalidInput = ErrEmptyInput

	// ErrProviderFailure wraps any error returned by the embedding provider.
	ErrProviderFailure = errors.New("embedding provider failure")

	// ErrProviderTimeout is returned when a provider call exceeds the
	// configured timeout.
	ErrProviderTimeout = errors.New("embedding provider timed out")
)

// providerError classifies err from an embedding call made under timeout.
func providerError(err error, timeout time.Duration) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrProviderTimeout, timeout, err)
	}
	return fmt.Errorf("%w: %w", ErrProviderFailure, err)
}
