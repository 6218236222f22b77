package resilience

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/kart-io/logger"

	"github.com/ai-nk/rag-service/pkg/llm"
)

// ResilientEmbeddingProvider wraps an EmbeddingProvider with retries and a
// circuit breaker.
type ResilientEmbeddingProvider struct {
	provider    llm.EmbeddingProvider
	retryConfig *RetryConfig
	breaker     *CircuitBreaker
}

// WrapEmbeddingProvider adds resilience around an embedding provider.
func WrapEmbeddingProvider(
	provider llm.EmbeddingProvider,
	retryConfig *RetryConfig,
	breakerConfig *CircuitBreakerConfig,
) *ResilientEmbeddingProvider {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
		retryConfig.RetryableErrors = IsRetryableError
	}
	return &ResilientEmbeddingProvider{
		provider:    provider,
		retryConfig: retryConfig,
		breaker:     NewCircuitBreaker(breakerConfig),
	}
}

// Embed implements llm.EmbeddingProvider.
func (r *ResilientEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	var result [][]float32
	err := RetryWithCircuitBreaker(ctx, r.retryConfig, r.breaker, func() error {
		var callErr error
		result, callErr = r.provider.Embed(ctx, texts)
		return callErr
	})
	if err != nil {
		logger.Errorw("embedding request failed after retries",
			"provider", r.provider.Name(),
			"texts", len(texts),
			"error", err,
		)
		return nil, err
	}
	return result, nil
}

// EmbedSingle implements llm.EmbeddingProvider.
func (r *ResilientEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := RetryWithCircuitBreaker(ctx, r.retryConfig, r.breaker, func() error {
		var callErr error
		result, callErr = r.provider.EmbedSingle(ctx, text)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Name implements llm.EmbeddingProvider.
func (r *ResilientEmbeddingProvider) Name() string {
	return r.provider.Name()
}

// BreakerState exposes the breaker state for health reporting.
func (r *ResilientEmbeddingProvider) BreakerState() CircuitBreakerState {
	return r.breaker.State()
}

// ResilientChatProvider wraps a ChatProvider with retries and a circuit
// breaker.
type ResilientChatProvider struct {
	provider    llm.ChatProvider
	retryConfig *RetryConfig
	breaker     *CircuitBreaker
}

// WrapChatProvider adds resilience around a chat provider.
func WrapChatProvider(
	provider llm.ChatProvider,
	retryConfig *RetryConfig,
	breakerConfig *CircuitBreakerConfig,
) *ResilientChatProvider {
	if retryConfig == nil {
		retryConfig = DefaultRetryConfig()
		retryConfig.RetryableErrors = IsRetryableError
	}
	return &ResilientChatProvider{
		provider:    provider,
		retryConfig: retryConfig,
		breaker:     NewCircuitBreaker(breakerConfig),
	}
}

// Chat implements llm.ChatProvider.
func (r *ResilientChatProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	var result string
	err := RetryWithCircuitBreaker(ctx, r.retryConfig, r.breaker, func() error {
		var callErr error
		result, callErr = r.provider.Chat(ctx, messages)
		return callErr
	})
	if err != nil {
		logger.Errorw("chat request failed after retries",
			"provider", r.provider.Name(),
			"error", err,
		)
		return "", err
	}
	return result, nil
}

// Generate implements llm.ChatProvider.
func (r *ResilientChatProvider) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	var result string
	err := RetryWithCircuitBreaker(ctx, r.retryConfig, r.breaker, func() error {
		var callErr error
		result, callErr = r.provider.Generate(ctx, prompt, systemPrompt)
		return callErr
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// Name implements llm.ChatProvider.
func (r *ResilientChatProvider) Name() string {
	return r.provider.Name()
}

// BreakerState exposes the breaker state for health reporting.
func (r *ResilientChatProvider) BreakerState() CircuitBreakerState {
	return r.breaker.State()
}

// IsRetryableError reports whether err looks transient: network failures,
// timeouts, rate limiting, or server-side errors.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCircuitBreakerOpen) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	retryableMarkers := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"too many requests",
		"status 429",
		"status 500",
		"status 502",
		"status 503",
		"status 504",
		"eof",
	}
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
