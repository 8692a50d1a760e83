package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/workshop-concierge/cmd/mainconfig"
	appconfig "github.com/wolfman30/workshop-concierge/internal/config"
	"github.com/wolfman30/workshop-concierge/internal/conversation"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

// LLM providers accepted in LLM_PROVIDER and LLM_FALLBACK_PROVIDER.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
)

type closer interface{ Close() error }

// LLMHandle is the completion client handed to the chat service.
type LLMHandle struct {
	Client  conversation.LLMClient
	Model   string
	closers []closer
}

func (h LLMHandle) Close() {
	for _, c := range h.closers {
		_ = c.Close()
	}
}

// BuildLLMClient wires the primary provider and, when configured, a fallback.
// A nil Client means no provider has credentials; the chat endpoint then
// answers with the missing-key message.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (LLMHandle, error) {
	if cfg == nil {
		return LLMHandle{}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var handle LLMHandle
	primary, model, err := buildProvider(ctx, cfg, cfg.LLMProvider, logger, &handle)
	if err != nil {
		return LLMHandle{}, err
	}

	fb := strings.TrimSpace(cfg.LLMFallbackProvider)
	var fallback conversation.LLMClient
	var fallbackModel string
	if fb != "" && fb != cfg.LLMProvider {
		fallback, fallbackModel, err = buildProvider(ctx, cfg, fb, logger, &handle)
		if err != nil {
			logger.Warn("fallback provider unavailable", "provider", fb, "error", err)
			fallback = nil
		}
	}

	switch {
	case primary != nil && fallback != nil:
		logger.Info("completion fallback enabled", "primary", cfg.LLMProvider, "fallback", fb)
		handle.Client = conversation.NewFallbackLLMClient(logger,
			conversation.NamedClient{Name: cfg.LLMProvider, Client: primary},
			conversation.NamedClient{Name: fb, Client: fallback},
		)
		handle.Model = model
	case primary != nil:
		handle.Client, handle.Model = primary, model
	case fallback != nil:
		logger.Warn("primary provider has no credentials, using fallback only", "primary", cfg.LLMProvider, "fallback", fb)
		handle.Client, handle.Model = fallback, fallbackModel
	default:
		logger.Warn("no completion credentials configured", "provider", cfg.LLMProvider)
	}
	return handle, nil
}

func buildProvider(ctx context.Context, cfg *appconfig.Config, provider string, logger *logging.Logger, handle *LLMHandle) (conversation.LLMClient, string, error) {
	switch provider {
	case ProviderOpenAI, "":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, "", nil
		}
		logger.Info("using openai completions", "model", cfg.OpenAIModel)
		return conversation.NewOpenAIClient(conversation.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.LLMTimeout,
		}, logger), cfg.OpenAIModel, nil
	case ProviderBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, "", nil
		}
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		logger.Info("using bedrock completions", "model", cfg.BedrockModelID)
		return conversation.NewBedrockLLMClient(mainconfig.NewBedrockClient(awsCfg, cfg), cfg.BedrockModelID), cfg.BedrockModelID, nil
	case ProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, "", nil
		}
		client, err := conversation.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, "", fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		handle.closers = append(handle.closers, client)
		logger.Info("using gemini completions", "model", cfg.GeminiModelID)
		return client, cfg.GeminiModelID, nil
	default:
		return nil, "", fmt.Errorf("bootstrap: unknown llm provider %q", provider)
	}
}
