package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ManagerConfig defines retry and fallback behaviour.
type ManagerConfig struct {
	FallbackEnabled bool
	RetryAttempts   int
	RetryDelay      time.Duration
	// Timeout bounds a single provider attempt.
	Timeout time.Duration
}

// Manager is a CompletionService that tries providers in order, retrying
// each with exponential backoff before falling back to the next one.
type Manager struct {
	providers []Provider
	config    ManagerConfig
	logger    *zap.Logger
}

// NewManager creates a Manager over providers in priority order.
func NewManager(providers []Provider, config ManagerConfig, logger *zap.Logger) *Manager {
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = 1
	}
	return &Manager{providers: providers, config: config, logger: logger}
}

// Complete implements CompletionService.
func (m *Manager) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(m.providers) == 0 {
		return "", ErrNoProviders
	}

	var lastErr error
	for _, provider := range m.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := m.completeWithRetry(ctx, provider, messages)
		if err == nil {
			m.logger.Debug("completion succeeded",
				zap.String("provider", provider.Name()),
				zap.String("model", provider.Model()))
			return text, nil
		}

		m.logger.Warn("completion failed",
			zap.String("provider", provider.Name()),
			zap.String("model", provider.Model()),
			zap.Error(err))
		lastErr = &ProviderError{Provider: provider.Name(), Err: err}

		if !m.config.FallbackEnabled {
			break
		}
	}

	return "", fmt.Errorf("%w: %w", ErrAllProvidersFailed, lastErr)
}

func (m *Manager) completeWithRetry(ctx context.Context, provider Provider, messages []Message) (string, error) {
	var lastErr error
	for attempt := 0; attempt < m.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(m.backoff(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := m.attempt(ctx, provider, messages)
		if err == nil {
			return text, nil
		}
		lastErr = err
		// The caller gave up; further attempts cannot succeed.
		if ctx.Err() != nil {
			return "", errors.Join(lastErr, ctx.Err())
		}
	}
	return "", lastErr
}

func (m *Manager) attempt(ctx context.Context, provider Provider, messages []Message) (string, error) {
	if m.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.Timeout)
		defer cancel()
	}
	return provider.Complete(ctx, messages)
}

// backoff doubles the configured delay for every retry: d, 2d, 4d, ...
func (m *Manager) backoff(attempt int) time.Duration {
	return m.config.RetryDelay * time.Duration(1<<(attempt-1))
}
