// Package activity records the request lifecycle of the chat endpoint into a
// bounded, newest-first event list and serves it as a live feed.
package activity

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/wolfman30/workshop-concierge/internal/kvstore"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

const (
	StoreKey  = "chat-activities"
	MaxEvents = 100

	messageSnippetLen  = 100
	responseSnippetLen = 200
	defaultUserColor   = "#58a6ff"
)

type EventType string

const (
	RequestStart EventType = "request_start"
	RequestEnd   EventType = "request_end"
	RequestError EventType = "request_error"
)

// Data carries the per-event payload. Message and response are truncated snippets.
type Data struct {
	Persona            string `json:"persona,omitempty"`
	Message            string `json:"message"`
	MessageLength      int    `json:"messageLength"`
	Response           string `json:"response,omitempty"`
	ResponseLength     int    `json:"responseLength,omitempty"`
	ProcessingTime     int64  `json:"processingTime,omitempty"`
	Success            *bool  `json:"success,omitempty"`
	Error              string `json:"error,omitempty"`
	ConversationTurn   int    `json:"conversationTurn,omitempty"`
	ConversationLength int    `json:"conversationLength,omitempty"`
}

type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId"`
	RequestID string    `json:"requestId,omitempty"`
	UserColor string    `json:"userColor"`
	Data      Data      `json:"data"`
}

// Correlation identifies one request across its start and end events.
type Correlation struct {
	Persona            string
	SessionID          string
	RequestID          string
	UserColor          string
	MessageLength      int
	ConversationTurn   int
	ConversationLength int
}

type eventLog struct {
	Events []Event `json:"events"`
}

// Logger persists lifecycle events. It never returns errors: storage failures are logged and dropped.
type Logger struct {
	kv     kvstore.Store
	logger *logging.Logger
	now    func() time.Time
}

func NewLogger(kv kvstore.Store, logger *logging.Logger) *Logger {
	if kv == nil {
		kv = kvstore.Unavailable{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Logger{kv: kv, logger: logger, now: time.Now}
}

// Log prepends evt to the stored list and trims it to MaxEvents.
// Concurrent writers may overwrite each other's event.
func (l *Logger) Log(ctx context.Context, evt Event) {
	if l == nil || kvstore.IsUnavailable(l.kv) {
		return
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = l.now().UTC()
	}
	if evt.SessionID == "" {
		evt.SessionID = "anonymous"
	}
	if evt.UserColor == "" {
		evt.UserColor = defaultUserColor
	}

	var log eventLog
	if _, err := l.kv.Get(ctx, StoreKey, &log); err != nil {
		l.logger.Warn("activity: load failed", "error", err, "event", evt.Type)
		return
	}
	events := make([]Event, 0, len(log.Events)+1)
	events = append(events, evt)
	events = append(events, log.Events...)
	if len(events) > MaxEvents {
		events = events[:MaxEvents]
	}
	if err := l.kv.Set(ctx, StoreKey, eventLog{Events: events}); err != nil {
		l.logger.Warn("activity: save failed", "error", err, "event", evt.Type)
	}
}

// RequestStarted records the arrival of a chat request.
func (l *Logger) RequestStarted(ctx context.Context, c Correlation, message string) {
	l.Log(ctx, Event{
		Type:      RequestStart,
		SessionID: c.SessionID,
		RequestID: c.RequestID,
		UserColor: c.UserColor,
		Data: Data{
			Persona:            c.Persona,
			Message:            Truncate(message, messageSnippetLen),
			MessageLength:      messageLength(c, message),
			ConversationTurn:   c.ConversationTurn,
			ConversationLength: c.ConversationLength,
		},
	})
}

// RequestEnded records a delivered answer.
func (l *Logger) RequestEnded(ctx context.Context, c Correlation, message, response string, elapsed time.Duration) {
	ok := true
	l.Log(ctx, Event{
		Type:      RequestEnd,
		SessionID: c.SessionID,
		RequestID: c.RequestID,
		UserColor: c.UserColor,
		Data: Data{
			Persona:        c.Persona,
			Message:        Truncate(message, messageSnippetLen),
			MessageLength:  messageLength(c, message),
			Response:       Truncate(response, responseSnippetLen),
			ResponseLength: utf8.RuneCountInString(response),
			ProcessingTime: elapsed.Milliseconds(),
			Success:        &ok,
		},
	})
}

// RequestFailed records a request that ended in an error.
func (l *Logger) RequestFailed(ctx context.Context, c Correlation, message string, cause error, elapsed time.Duration) {
	ok := false
	errText := ""
	if cause != nil {
		errText = cause.Error()
	}
	l.Log(ctx, Event{
		Type:      RequestError,
		SessionID: c.SessionID,
		RequestID: c.RequestID,
		UserColor: c.UserColor,
		Data: Data{
			Persona:        c.Persona,
			Message:        Truncate(message, messageSnippetLen),
			MessageLength:  messageLength(c, message),
			ProcessingTime: elapsed.Milliseconds(),
			Success:        &ok,
			Error:          errText,
		},
	})
}

// Events returns the stored list, newest first.
func (l *Logger) Events(ctx context.Context) ([]Event, error) {
	var log eventLog
	if _, err := l.kv.Get(ctx, StoreKey, &log); err != nil {
		return nil, err
	}
	return log.Events, nil
}

func messageLength(c Correlation, message string) int {
	if c.MessageLength > 0 {
		return c.MessageLength
	}
	return utf8.RuneCountInString(message)
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
