package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
	defaultOpenAITimeout = 25 * time.Second
)

// OpenAIClient is a minimal chat-completions client.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *logging.Logger
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func NewOpenAIClient(cfg OpenAIConfig, logger *logging.Logger) *OpenAIClient {
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultOpenAITimeout
	}
	return &OpenAIClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int32           `json:"max_tokens,omitempty"`
	Temperature *float32        `json:"temperature,omitempty"`
	TopP        *float32        `json:"top_p,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int32 `json:"prompt_tokens"`
		CompletionTokens int32 `json:"completion_tokens"`
		TotalTokens      int32 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return LLMResponse{}, fmt.Errorf("conversation: openai: %w", ErrMissingCredential)
	}

	// The configured model wins: in a fallback chain req.Model names the
	// primary provider's model.
	model := c.model
	if model == "" {
		model = strings.TrimSpace(req.Model)
	}
	payload := openAIRequest{Model: model, MaxTokens: req.MaxTokens}
	if req.Temperature >= 0 {
		t := req.Temperature
		payload.Temperature = &t
	}
	if req.TopP != 0 {
		p := req.TopP
		payload.TopP = &p
	}
	for _, s := range req.System {
		if strings.TrimSpace(s) == "" {
			continue
		}
		payload.Messages = append(payload.Messages, openAIMessage{Role: ChatRoleSystem, Content: s})
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: openai: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return LLMResponse{}, &UpstreamError{Provider: "openai", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("conversation: openai: read response: %w", err)
	}

	var out openAIResponse
	decodeErr := json.Unmarshal(respBody, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if decodeErr == nil && out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		c.logger.Warn("openai returned non-2xx", "status", resp.StatusCode, "message", msg)
		return LLMResponse{}, &UpstreamError{Provider: "openai", StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return LLMResponse{}, fmt.Errorf("conversation: openai: unmarshal response: %w", decodeErr)
	}
	if len(out.Choices) == 0 {
		return LLMResponse{}, &UpstreamError{Provider: "openai", StatusCode: resp.StatusCode, Message: "no choices returned"}
	}

	return LLMResponse{
		Text:       out.Choices[0].Message.Content,
		StopReason: out.Choices[0].FinishReason,
		Usage: TokenUsage{
			InputTokens:  out.Usage.PromptTokens,
			OutputTokens: out.Usage.CompletionTokens,
			TotalTokens:  out.Usage.TotalTokens,
		},
	}, nil
}
