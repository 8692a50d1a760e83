package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

func TestOpenAIClientComplete(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Servus! "},"finish_reason":"stop"}],"usage":{"prompt_tokens":120,"completion_tokens":8,"total_tokens":128}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"}, logging.Discard())
	resp, err := client.Complete(context.Background(), LLMRequest{
		System:      []string{"Du bist Franz."},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "hallo"}},
		MaxTokens:   200,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, " Servus! ", resp.Text)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, int32(128), resp.Usage.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, int32(200), got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.7, *got.Temperature, 0.0001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openAIMessage{Role: "system", Content: "Du bist Franz."}, got.Messages[0])
	assert.Equal(t, openAIMessage{Role: "user", Content: "hallo"}, got.Messages[1])
}

func TestOpenAIClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error envelope", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached for gpt-4o-mini"}}`, "Rate limit reached for gpt-4o-mini"},
		{"non json", http.StatusBadGateway, `<html>bad gateway</html>`, "HTTP 502"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices returned"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL}, logging.Discard())
			_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "x"}}})
			var up *UpstreamError
			require.ErrorAs(t, err, &up)
			assert.Equal(t, "openai", up.Provider)
			assert.Equal(t, tc.status, up.StatusCode)
			assert.Equal(t, tc.message, userFacingCause(err))
		})
	}
}

func TestOpenAIClientMissingKey(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{}, logging.Discard())
	_, err := client.Complete(context.Background(), LLMRequest{})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestFallbackLLMClient(t *testing.T) {
	failing := &stubLLM{err: errors.New("primary down")}
	backup := &stubLLM{text: "Servus vom Ersatz"}

	chain := NewFallbackLLMClient(logging.Discard(),
		NamedClient{Name: "openai", Client: failing},
		NamedClient{Name: "bedrock", Client: backup},
	)
	assert.Equal(t, []string{"openai", "bedrock"}, chain.Providers())
	resp, err := chain.Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Servus vom Ersatz", resp.Text)
	assert.Equal(t, 1, failing.calls())
	assert.Equal(t, 1, backup.calls())

	ok := &stubLLM{text: "primär"}
	unused := &stubLLM{text: "never"}
	resp, err = NewFallbackLLMClient(logging.Discard(),
		NamedClient{Name: "openai", Client: ok},
		NamedClient{Name: "gemini", Client: unused},
	).Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "primär", resp.Text)
	assert.Zero(t, unused.calls())

	_, err = NewFallbackLLMClient(logging.Discard(),
		NamedClient{Name: "openai", Client: failing},
		NamedClient{Name: "bedrock"},
	).Complete(context.Background(), LLMRequest{})
	assert.EqualError(t, err, "primary down")

	bothDown := &stubLLM{err: errors.New("backup down")}
	_, err = NewFallbackLLMClient(logging.Discard(),
		NamedClient{Name: "openai", Client: failing},
		NamedClient{Name: "bedrock", Client: bothDown},
	).Complete(context.Background(), LLMRequest{})
	assert.EqualError(t, err, "backup down")
}

func TestFallbackToOpenAIUsesOwnModel(t *testing.T) {
	var got openAIRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Servus vom Ersatz"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	bedrock := &stubLLM{err: &UpstreamError{Provider: "bedrock", Message: "ThrottlingException"}}
	openai := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-4o-mini"}, logging.Discard())

	resp, err := NewFallbackLLMClient(logging.Discard(),
		NamedClient{Name: "bedrock", Client: bedrock},
		NamedClient{Name: "openai", Client: openai},
	).Complete(context.Background(), LLMRequest{
		Model:    "anthropic.claude-3-haiku-20240307-v1:0",
		Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hallo"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Servus vom Ersatz", resp.Text)
	assert.Equal(t, "gpt-4o-mini", got.Model)
}

func TestFallbackLLMClientEmptyChain(t *testing.T) {
	_, err := NewFallbackLLMClient(nil).Complete(context.Background(), LLMRequest{})
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestFallbackLLMClientStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	primary := &stubLLM{err: context.Canceled}
	backup := &stubLLM{text: "zu spät"}

	_, err := NewFallbackLLMClient(logging.Discard(),
		NamedClient{Name: "openai", Client: primary},
		NamedClient{Name: "bedrock", Client: backup},
	).Complete(ctx, LLMRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, backup.calls())
}

func TestFallbackLLMClientSkipsMissingCredential(t *testing.T) {
	unconfigured := &stubLLM{err: ErrMissingCredential}
	backup := &stubLLM{text: "Servus"}

	resp, err := NewFallbackLLMClient(logging.Discard(),
		NamedClient{Name: "openai", Client: unconfigured},
		NamedClient{Name: "gemini", Client: backup},
	).Complete(context.Background(), LLMRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Servus", resp.Text)
}

type fakeConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (f *fakeConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.input = in
	return f.out, f.err
}

func TestBedrockLLMClientComplete(t *testing.T) {
	api := &fakeConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "Grüß Gott! "}},
		}},
		StopReason: brtypes.StopReasonEndTurn,
		Usage:      &brtypes.TokenUsage{InputTokens: aws.Int32(50), OutputTokens: aws.Int32(4), TotalTokens: aws.Int32(54)},
	}}
	client := NewBedrockLLMClient(api, "anthropic.claude-3-haiku")

	resp, err := client.Complete(context.Background(), LLMRequest{
		System:      []string{"Du bist Franz."},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: "hallo"}, {Role: ChatRoleAssistant, Content: "Servus"}, {Role: ChatRoleUser, Content: "wie spät?"}},
		MaxTokens:   200,
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Grüß Gott!", resp.Text)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, int32(54), resp.Usage.TotalTokens)

	require.NotNil(t, api.input)
	assert.Equal(t, "anthropic.claude-3-haiku", aws.ToString(api.input.ModelId))
	require.Len(t, api.input.System, 1)
	require.Len(t, api.input.Messages, 3)
	assert.Equal(t, brtypes.ConversationRoleAssistant, api.input.Messages[1].Role)
	assert.Equal(t, int32(200), aws.ToInt32(api.input.InferenceConfig.MaxTokens))
}

func TestBedrockLLMClientErrors(t *testing.T) {
	client := NewBedrockLLMClient(&fakeConverse{err: errors.New("ThrottlingException")}, "m")
	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "x"}}})
	assert.Equal(t, "ThrottlingException", userFacingCause(err))

	_, err = NewBedrockLLMClient(&fakeConverse{}, "m").Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: "tool", Content: "x"}}})
	assert.ErrorContains(t, err, "unsupported role")

	_, err = NewBedrockLLMClient(&fakeConverse{}, "").Complete(context.Background(), LLMRequest{})
	assert.ErrorContains(t, err, "model id is required")
}

func TestGeminiTurns(t *testing.T) {
	history, last, err := geminiTurns([]ChatMessage{
		{Role: ChatRoleUser, Content: "Servus"},
		{Role: ChatRoleAssistant, Content: "Griaß di!"},
		{Role: ChatRoleAssistant, Content: "   "},
		{Role: ChatRoleUser, Content: "Wann ist Frühstück?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Wann ist Frühstück?", last)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, genai.Text("Griaß di!"), history[1].Parts[0])

	_, _, err = geminiTurns(nil)
	assert.ErrorIs(t, err, ErrInvalidMessages)
	_, _, err = geminiTurns([]ChatMessage{{Role: ChatRoleAssistant, Content: "hi"}})
	assert.ErrorIs(t, err, ErrInvalidMessages)
}

func TestGeminiResult(t *testing.T) {
	resp, err := geminiResult(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Parts: []genai.Part{genai.Text(" Servus, "), genai.Text("Franz hier. ")}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 40, CandidatesTokenCount: 6, TotalTokenCount: 46},
	})
	require.NoError(t, err)
	assert.Equal(t, "Servus, Franz hier.", resp.Text)
	assert.Equal(t, int32(46), resp.Usage.TotalTokens)

	_, err = geminiResult(&genai.GenerateContentResponse{
		PromptFeedback: &genai.PromptFeedback{BlockReason: genai.BlockReasonSafety},
	})
	var up *UpstreamError
	require.ErrorAs(t, err, &up)
	assert.Contains(t, up.Message, "prompt blocked")

	_, err = geminiResult(&genai.GenerateContentResponse{})
	assert.ErrorContains(t, err, "no candidates returned")

	_, err = geminiResult(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []genai.Part{genai.Text("  ")}}}},
	})
	assert.ErrorContains(t, err, "empty content returned")
}
