package conversation

import (
	"context"
	"strings"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one entry of the caller-supplied conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMClient is the opaque completion service behind every persona.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// LLMRequest is provider-neutral. System holds the assembled persona prompt;
// Messages never contain system entries.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	StopReason string
	Usage      TokenUsage
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// TrimHistory keeps the most recent limit user and assistant messages.
// Caller-supplied system entries are dropped so the persona prompt stays the
// only instruction block; other unknown roles go with them.
func TrimHistory(messages []ChatMessage, limit int) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role != ChatRoleUser && m.Role != ChatRoleAssistant {
			continue
		}
		out = append(out, m)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// lastUserMessage returns the content of the final entry when it is a
// non-blank user turn.
func lastUserMessage(messages []ChatMessage) (string, bool) {
	if len(messages) == 0 {
		return "", false
	}
	last := messages[len(messages)-1]
	if last.Role != ChatRoleUser || strings.TrimSpace(last.Content) == "" {
		return "", false
	}
	return last.Content, true
}
