package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiLLMClient answers through the Gemini chat API. The persona prompt is
// sent as the system instruction; prior turns become chat history.
type GeminiLLMClient struct {
	client  *genai.Client
	modelID string
}

func NewGeminiLLMClient(ctx context.Context, apiKey, modelID string) (*GeminiLLMClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("conversation: gemini: %w", ErrMissingCredential)
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = defaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: gemini client: %w", err)
	}
	return &GeminiLLMClient{client: client, modelID: modelID}, nil
}

func (c *GeminiLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	history, last, err := geminiTurns(req.Messages)
	if err != nil {
		return LLMResponse{}, err
	}

	modelID := c.modelID
	if modelID == "" {
		modelID = strings.TrimSpace(req.Model)
	}
	model := c.client.GenerativeModel(modelID)
	model.SetTemperature(req.Temperature)
	if req.TopP > 0 {
		model.SetTopP(req.TopP)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if text := strings.TrimSpace(strings.Join(req.System, "\n\n")); text != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(text))
	}

	cs := model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return LLMResponse{}, &UpstreamError{Provider: "gemini", Message: err.Error()}
	}
	return geminiResult(resp)
}

// geminiTurns maps the conversation onto Gemini roles ("user" and "model").
// The final entry must be the user turn being answered.
func geminiTurns(messages []ChatMessage) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", ErrInvalidMessages
	}
	final := messages[len(messages)-1]
	if final.Role != ChatRoleUser {
		return nil, "", ErrInvalidMessages
	}

	history := make([]*genai.Content, 0, len(messages)-1)
	for _, msg := range messages[:len(messages)-1] {
		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}
		var role string
		switch msg.Role {
		case ChatRoleUser:
			role = "user"
		case ChatRoleAssistant:
			role = "model"
		default:
			continue
		}
		history = append(history, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(text)}})
	}
	return history, final.Content, nil
}

func geminiResult(resp *genai.GenerateContentResponse) (LLMResponse, error) {
	if resp == nil {
		return LLMResponse{}, &UpstreamError{Provider: "gemini", Message: "empty response"}
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return LLMResponse{}, &UpstreamError{Provider: "gemini", Message: "prompt blocked: " + resp.PromptFeedback.BlockReason.String()}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return LLMResponse{}, &UpstreamError{Provider: "gemini", Message: "no candidates returned"}
	}

	candidate := resp.Candidates[0]
	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return LLMResponse{}, &UpstreamError{Provider: "gemini", Message: "empty content returned"}
	}

	out := LLMResponse{Text: text, StopReason: candidate.FinishReason.String()}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = TokenUsage{
			InputTokens:  u.PromptTokenCount,
			OutputTokens: u.CandidatesTokenCount,
			TotalTokens:  u.TotalTokenCount,
		}
	}
	return out, nil
}

func (c *GeminiLLMClient) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
