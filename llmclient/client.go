// Package llmclient abstracts the LLM vendor behind a single-shot
// ChatCompletion capability, so the Planner and the summarizer never deal
// with provider-specific request/response shapes.
package llmclient

import (
	"context"
	"net/http"
	"time"
)

// ChatCompletion is the capability the Planner and the response
// summarizer depend on. Every implementation must enforce its own
// client-side timeout; callers additionally pass ctx for cancellation.
type ChatCompletion interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// DefaultTimeout is the client-side request timeout recommended when no
// deadline is already present on ctx.
const DefaultTimeout = 60 * time.Second

func sharedHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// New constructs the ChatCompletion implementation for provider
// ("openai" or "anthropic").
func New(provider, apiKey, baseURL, model string, timeout time.Duration) ChatCompletion {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	switch provider {
	case "anthropic":
		return newAnthropicClient(apiKey, baseURL, model, timeout)
	default:
		return newOpenAIClient(apiKey, baseURL, model, timeout)
	}
}
