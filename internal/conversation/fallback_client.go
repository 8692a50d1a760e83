package conversation

import (
	"context"
	"errors"

	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

// NamedClient labels a completion client for logs.
type NamedClient struct {
	Name   string
	Client LLMClient
}

// FallbackLLMClient walks an ordered provider chain until one answers.
// Each provider is attempted at most once per request. The error of the last
// attempted provider is returned, so the chat reply names the final cause.
type FallbackLLMClient struct {
	chain  []NamedClient
	logger *logging.Logger
}

// NewFallbackLLMClient builds a chain from the given providers. Entries with a
// nil Client are skipped.
func NewFallbackLLMClient(logger *logging.Logger, providers ...NamedClient) *FallbackLLMClient {
	if logger == nil {
		logger = logging.Default()
	}
	chain := make([]NamedClient, 0, len(providers))
	for _, p := range providers {
		if p.Client != nil {
			chain = append(chain, p)
		}
	}
	return &FallbackLLMClient{chain: chain, logger: logger}
}

// Providers returns the provider names in attempt order.
func (c *FallbackLLMClient) Providers() []string {
	names := make([]string, len(c.chain))
	for i, p := range c.chain {
		names[i] = p.Name
	}
	return names
}

func (c *FallbackLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(c.chain) == 0 {
		return LLMResponse{}, ErrMissingCredential
	}

	var lastErr error
	for i, p := range c.chain {
		resp, err := p.Client.Complete(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("completion served by fallback", "provider", p.Name, "attempt", i+1)
			}
			return resp, nil
		}
		lastErr = err

		// The caller is gone; another provider cannot help.
		if ctx.Err() != nil {
			return LLMResponse{}, err
		}
		if errors.Is(err, ErrMissingCredential) {
			c.logger.Warn("completion provider not configured", "provider", p.Name)
			continue
		}
		c.logger.Warn("completion provider failed", "provider", p.Name, "attempt", i+1, "error", err)
	}
	return LLMResponse{}, lastErr
}
