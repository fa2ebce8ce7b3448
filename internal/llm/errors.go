package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrAllProvidersFailed indicates every configured provider failed.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrNoProviders indicates the manager was built without providers.
	ErrNoProviders = errors.New("no providers configured")

	// ErrEmptyCompletion is returned when a provider answers without text.
	ErrEmptyCompletion = errors.New("empty completion")

	// ErrUnknownProvider is returned by NewProvider for unsupported names.
	ErrUnknownProvider = errors.New("unknown provider")
)

// ProviderError wraps provider-specific errors
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
