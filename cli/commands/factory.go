package commands

import (
	"github.com/hiddenpath/relay"
	"github.com/hiddenpath/relay/cli/config"
	"github.com/hiddenpath/relay/drivers"
	"github.com/hiddenpath/relay/drivers/anthropic"
	"github.com/hiddenpath/relay/drivers/gemini"
	"github.com/hiddenpath/relay/drivers/openai"
	"github.com/hiddenpath/relay/resilience"
)

// defaultClientFactory builds a client from the provider's configured
// style, base URL, and the resilience budgets.
func (a *App) defaultClientFactory(providerID, apiKey string, cfg *config.Config) (*relay.Client, error) {
	pc := cfg.GetProvider(providerID)

	style := providerID
	baseURL := ""
	if pc != nil {
		if pc.Style != "" {
			style = pc.Style
		}
		baseURL = pc.BaseURL
	}

	driver := buildDriver(drivers.APIStyle(style), apiKey, baseURL)
	executor := buildExecutor(providerID, cfg.Resilience)
	return relay.NewFromDriver(driver, relay.WithExecutor(executor)), nil
}

// buildDriver constructs the protocol driver for a style. Unknown styles
// get the OpenAI-compatible driver, matching the registry fallback.
func buildDriver(style drivers.APIStyle, apiKey, baseURL string) drivers.Driver {
	switch style {
	case drivers.StyleAnthropic:
		var opts []anthropic.Option
		if baseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(baseURL))
		}
		return anthropic.New(apiKey, opts...)
	case drivers.StyleGemini:
		var opts []gemini.Option
		if baseURL != "" {
			opts = append(opts, gemini.WithBaseURL(baseURL))
		}
		return gemini.New(apiKey, opts...)
	default:
		var opts []openai.Option
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		return openai.New(apiKey, opts...)
	}
}

// buildExecutor translates config budgets into executor gates. A gate
// with a zero budget is not installed.
func buildExecutor(provider string, rc config.ResilienceConfig) *resilience.Executor {
	var opts []resilience.ExecutorOption

	if !rc.Retry.Disabled {
		opts = append(opts, resilience.WithRetryPolicy(resilience.NewRetryPolicy(resilience.RetryPolicy{
			MaxRetries: rc.Retry.MaxRetries,
			BaseDelay:  rc.Retry.BaseDelay.Std(),
			MaxDelay:   rc.Retry.MaxDelay.Std(),
		})))
	}
	if rc.RateLimit.MaxTokens > 0 || rc.RateLimit.RefillRate > 0 {
		opts = append(opts, resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
			MaxTokens:  rc.RateLimit.MaxTokens,
			RefillRate: rc.RateLimit.RefillRate,
		})))
	}
	if rc.CircuitBreaker.FailureThreshold > 0 {
		opts = append(opts, resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: rc.CircuitBreaker.FailureThreshold,
			SuccessThreshold: rc.CircuitBreaker.SuccessThreshold,
			Cooldown:         rc.CircuitBreaker.Cooldown.Std(),
		})))
	}
	if rc.MaxConcurrent > 0 {
		opts = append(opts, resilience.WithBackpressure(resilience.NewBackpressure(resilience.BackpressureConfig{
			MaxConcurrent: rc.MaxConcurrent,
		})))
	}

	return resilience.NewExecutor(provider, opts...)
}
