package activity

import (
	"context"
	"math"
	"time"

	"github.com/wolfman30/workshop-concierge/internal/kvstore"
)

const (
	activeWindow     = 30 * time.Second
	recentActivities = 20
)

type Stats struct {
	TotalRequests     int   `json:"totalRequests"`
	CompletedRequests int   `json:"completedRequests"`
	ErrorRequests     int   `json:"errorRequests"`
	AvgResponseTime   int64 `json:"avgResponseTime"`
}

// Snapshot is the dashboard view of the event list.
type Snapshot struct {
	IsProcessing     bool       `json:"isProcessing"`
	ActiveRequests   int        `json:"activeRequests"`
	RecentActivities []Event    `json:"recentActivities"`
	Stats            Stats      `json:"stats"`
	LastActivity     *time.Time `json:"lastActivity"`
	GeneratedAt      time.Time  `json:"generatedAt"`
}

// Snapshot summarizes the stored events. An unavailable store yields an empty snapshot.
func (l *Logger) Snapshot(ctx context.Context) (Snapshot, error) {
	now := l.now()
	if kvstore.IsUnavailable(l.kv) {
		return Summarize(nil, now), nil
	}
	events, err := l.Events(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return Summarize(events, now), nil
}

// Summarize computes a snapshot from newest-first events.
func Summarize(events []Event, now time.Time) Snapshot {
	snap := Snapshot{RecentActivities: []Event{}, GeneratedAt: now.UTC()}

	ended := make(map[string]bool)
	var totalMillis int64
	for _, e := range events {
		switch e.Type {
		case RequestStart:
			snap.Stats.TotalRequests++
		case RequestEnd:
			snap.Stats.CompletedRequests++
			totalMillis += e.Data.ProcessingTime
			if e.RequestID != "" {
				ended[e.RequestID] = true
			}
		case RequestError:
			snap.Stats.ErrorRequests++
			if e.RequestID != "" {
				ended[e.RequestID] = true
			}
		}
	}
	for _, e := range events {
		if e.Type == RequestStart && !ended[e.RequestID] && now.Sub(e.Timestamp) < activeWindow {
			snap.ActiveRequests++
		}
	}
	snap.IsProcessing = snap.ActiveRequests > 0
	if snap.Stats.CompletedRequests > 0 {
		snap.Stats.AvgResponseTime = int64(math.Round(float64(totalMillis) / float64(snap.Stats.CompletedRequests)))
	}
	if len(events) > 0 {
		ts := events[0].Timestamp
		snap.LastActivity = &ts
	}
	n := min(len(events), recentActivities)
	snap.RecentActivities = append(snap.RecentActivities, events[:n]...)
	return snap
}
