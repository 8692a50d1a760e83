package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wolfman30/workshop-concierge/internal/workshop"
)

// fixedSampler always picks index int(f) mod n.
type fixedSampler int

func (f fixedSampler) IntN(n int) int { return int(f) % n }

var vienna = workshop.LocationOrUTC("Europe/Vienna")

func testDataset(t *testing.T) *workshop.Dataset {
	t.Helper()
	ds, err := workshop.DefaultDataset()
	require.NoError(t, err)
	return ds
}

func viennaTime(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, vienna)
}

// stubLLM records every request and replies with a fixed text or error.
type stubLLM struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []LLMRequest
}

func (s *stubLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return LLMResponse{}, s.err
	}
	return LLMResponse{Text: s.text, Usage: TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}, nil
}

func (s *stubLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}
