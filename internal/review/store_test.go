package review

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/workshop-concierge/internal/kvstore"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

func newTestStore() (*Store, *kvstore.MemoryStore) {
	kv := kvstore.NewMemoryStore()
	return NewStore(kv, logging.Discard()), kv
}

func question(id string, at time.Time) UnknownQuestion {
	return UnknownQuestion{ID: id, UserQuestion: "q-" + id, Type: TypeUncertain, Priority: PriorityMedium, Timestamp: at}
}

func TestAppendQuestionKeepsMostRecent(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	base := time.Date(2025, 9, 29, 8, 0, 0, 0, time.UTC)

	for i := 0; i < MaxUnknownQuestions+5; i++ {
		require.NoError(t, store.AppendQuestion(ctx, question(fmt.Sprint(i), base.Add(time.Duration(i)*time.Minute))))
	}

	questions, err := store.Questions(ctx)
	require.NoError(t, err)
	require.Len(t, questions, MaxUnknownQuestions)
	assert.Equal(t, fmt.Sprint(MaxUnknownQuestions+4), questions[0].ID, "newest first")
	assert.Equal(t, "5", questions[len(questions)-1].ID, "oldest five dropped")
}

func TestAppendOffPurposeBounded(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	base := time.Date(2025, 9, 29, 8, 0, 0, 0, time.UTC)

	for i := 0; i < MaxOffPurpose+3; i++ {
		require.NoError(t, store.AppendOffPurpose(ctx, OffPurposeRecord{
			ID:        fmt.Sprint(i),
			Category:  "reprogramming",
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}))
	}
	records, err := store.OffPurposeRequests(ctx)
	require.NoError(t, err)
	require.Len(t, records, MaxOffPurpose)
	assert.Equal(t, fmt.Sprint(MaxOffPurpose+2), records[0].ID)
	assert.Equal(t, map[string]int{"reprogramming": MaxOffPurpose}, CountByCategory(records))
}

func TestResolveDeleteClear(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()
	now := time.Date(2025, 9, 30, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.AppendQuestion(ctx, question("a", now)))
	require.NoError(t, store.AppendQuestion(ctx, question("b", now.Add(time.Second))))
	require.NoError(t, store.AppendQuestion(ctx, question("c", now.Add(2*time.Second))))

	require.NoError(t, store.Resolve(ctx, "a"))
	require.NoError(t, store.Resolve(ctx, "b"))
	assert.True(t, errors.Is(store.Resolve(ctx, "zzz"), ErrQuestionNotFound))

	questions, err := store.Questions(ctx)
	require.NoError(t, err)
	for _, q := range questions {
		if q.ID == "a" {
			require.NotNil(t, q.ResolvedAt)
			assert.True(t, now.Equal(*q.ResolvedAt))
		}
	}

	require.NoError(t, store.Delete(ctx, "b"))
	assert.True(t, errors.Is(store.Delete(ctx, "b"), ErrQuestionNotFound))

	removed, err := store.ClearResolved(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	questions, err = store.Questions(ctx)
	require.NoError(t, err)
	require.Len(t, questions, 1)
	assert.Equal(t, "c", questions[0].ID)
}

func TestUnavailableStoreErrors(t *testing.T) {
	store := NewStore(nil, logging.Discard())
	ctx := context.Background()
	assert.False(t, store.Available())
	assert.ErrorIs(t, store.AppendQuestion(ctx, question("a", time.Now())), kvstore.ErrUnavailable)
	assert.ErrorIs(t, store.AppendOffPurpose(ctx, OffPurposeRecord{ID: "x"}), kvstore.ErrUnavailable)
}

func TestSummarize(t *testing.T) {
	now := time.Now()
	questions := []UnknownQuestion{
		{ID: "1", Type: TypeUnknown, Priority: PriorityHigh, Timestamp: now},
		{ID: "2", Type: TypeUnknown, Priority: PriorityHigh, Resolved: true, Timestamp: now},
		{ID: "3", Type: TypeUncertain, Priority: PriorityMedium, Timestamp: now},
		{ID: "4", Type: TypeOffTopic, Priority: PriorityMedium, Timestamp: now},
	}
	sum := Summarize(questions)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 3, sum.Unresolved)
	assert.Equal(t, 1, sum.HighPriority)
	assert.Equal(t, map[string]int{"unknown": 2, "uncertain": 1, "offTopic": 1}, sum.ByType)
}
