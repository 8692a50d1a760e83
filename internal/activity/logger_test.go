package activity

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

func TestLogNewestFirstAndBounded(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	l := NewLogger(kv, logging.Discard())
	ctx := context.Background()
	base := time.Date(2025, 9, 29, 10, 0, 0, 0, time.UTC)

	for i := 0; i < MaxEvents+7; i++ {
		l.Log(ctx, Event{ID: fmt.Sprint(i), Type: RequestStart, Timestamp: base.Add(time.Duration(i) * time.Second)})
	}

	events, err := l.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, MaxEvents)
	assert.Equal(t, fmt.Sprint(MaxEvents+6), events[0].ID)
	assert.Equal(t, "7", events[len(events)-1].ID)
}

func TestLogDefaults(t *testing.T) {
	l := NewLogger(kvstore.NewMemoryStore(), logging.Discard())
	l.now = func() time.Time { return time.Date(2025, 9, 29, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	l.RequestStarted(ctx, Correlation{RequestID: "r1"}, "wo ist viva la mamma?")

	events, err := l.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	evt := events[0]
	assert.NotEmpty(t, evt.ID)
	assert.Equal(t, "anonymous", evt.SessionID)
	assert.Equal(t, defaultUserColor, evt.UserColor)
	assert.Equal(t, RequestStart, evt.Type)
	assert.Equal(t, 21, evt.Data.MessageLength)
	assert.True(t, evt.Timestamp.Equal(l.now()))
}

func TestLifecycleSnippetsTruncated(t *testing.T) {
	l := NewLogger(kvstore.NewMemoryStore(), logging.Discard())
	ctx := context.Background()
	long := make([]rune, 300)
	for i := range long {
		long[i] = 'ö'
	}

	c := Correlation{SessionID: "s1", RequestID: "r1", UserColor: "#ff0000", MessageLength: 42}
	l.RequestEnded(ctx, c, string(long), string(long), 1500*time.Millisecond)
	l.RequestFailed(ctx, c, "hallo", errors.New("upstream 502"), time.Second)

	events, err := l.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)

	failed, ended := events[0], events[1]
	assert.Equal(t, RequestError, failed.Type)
	assert.Equal(t, "upstream 502", failed.Data.Error)
	require.NotNil(t, failed.Data.Success)
	assert.False(t, *failed.Data.Success)

	assert.Equal(t, RequestEnd, ended.Type)
	assert.Equal(t, 42, ended.Data.MessageLength, "header length wins")
	assert.Equal(t, 300, ended.Data.ResponseLength)
	assert.Equal(t, int64(1500), ended.Data.ProcessingTime)
	assert.Equal(t, messageSnippetLen+3, len([]rune(ended.Data.Message)))
	assert.Equal(t, responseSnippetLen+3, len([]rune(ended.Data.Response)))
}

func TestLogWithoutStorageIsNoop(t *testing.T) {
	l := NewLogger(nil, logging.Discard())
	l.RequestStarted(context.Background(), Correlation{}, "hallo")
	snap, err := l.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.RecentActivities)
	assert.False(t, snap.IsProcessing)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("connection refused")
}
func (failingStore) Set(context.Context, string, any) error { return errors.New("connection refused") }

func TestLogSwallowsStorageErrors(t *testing.T) {
	l := NewLogger(failingStore{}, logging.Discard())
	assert.NotPanics(t, func() {
		l.RequestStarted(context.Background(), Correlation{}, "hallo")
	})
}

func TestSummarize(t *testing.T) {
	now := time.Date(2025, 9, 29, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{Type: RequestStart, RequestID: "live", Timestamp: now.Add(-5 * time.Second)},
		{Type: RequestEnd, RequestID: "done", Timestamp: now.Add(-20 * time.Second), Data: Data{ProcessingTime: 1000}},
		{Type: RequestStart, RequestID: "done", Timestamp: now.Add(-21 * time.Second)},
		{Type: RequestError, RequestID: "err", Timestamp: now.Add(-25 * time.Second)},
		{Type: RequestStart, RequestID: "err", Timestamp: now.Add(-26 * time.Second)},
		{Type: RequestEnd, RequestID: "done2", Timestamp: now.Add(-40 * time.Second), Data: Data{ProcessingTime: 2001}},
		{Type: RequestStart, RequestID: "stale", Timestamp: now.Add(-45 * time.Second)},
	}

	snap := Summarize(events, now)
	assert.True(t, snap.IsProcessing)
	assert.Equal(t, 1, snap.ActiveRequests)
	assert.Equal(t, 4, snap.Stats.TotalRequests)
	assert.Equal(t, 2, snap.Stats.CompletedRequests)
	assert.Equal(t, 1, snap.Stats.ErrorRequests)
	assert.Equal(t, int64(1501), snap.Stats.AvgResponseTime)
	require.NotNil(t, snap.LastActivity)
	assert.True(t, snap.LastActivity.Equal(now.Add(-5*time.Second)))
	assert.Len(t, snap.RecentActivities, len(events))
}

func TestSummarizeCapsRecent(t *testing.T) {
	now := time.Now()
	events := make([]Event, 50)
	for i := range events {
		events[i] = Event{ID: fmt.Sprint(i), Type: RequestEnd, Timestamp: now}
	}
	snap := Summarize(events, now)
	assert.Len(t, snap.RecentActivities, recentActivities)
	assert.Equal(t, "0", snap.RecentActivities[0].ID)
}
