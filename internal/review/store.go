// Package review persists the operator review queues: responses the post-call
// classifier flagged and requests the pre-call guard refused.
package review

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/wolfman30/workshop-concierge/internal/kvstore"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

const (
	UnknownQuestionsKey = "unknown-questions"
	OffPurposeKey       = "off-purpose-requests"

	MaxUnknownQuestions = 100
	MaxOffPurpose       = 50
)

// ErrQuestionNotFound is returned when an operator action targets a missing id.
var ErrQuestionNotFound = errors.New("review: question not found")

type QuestionType string

const (
	TypeUnknown   QuestionType = "unknown"
	TypeUncertain QuestionType = "uncertain"
	TypeOffTopic  QuestionType = "off-topic"
)

const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"

	ConfidenceLow     = "low"
	ConfidenceVeryLow = "very-low"
)

// Analysis is the classifier payload stored with each record.
type Analysis struct {
	UncertaintyScore   int            `json:"uncertaintyScore"`
	Categories         []string       `json:"categories"`
	FamilyScores       map[string]int `json:"familyScores,omitempty"`
	ResponseLength     int            `json:"responseLength"`
	HasWorkshopContext bool           `json:"hasWorkshopContext"`
	HasRepetition      bool           `json:"hasRepetition"`
	IsVeryShort        bool           `json:"isVeryShort"`
	IsVeryLong         bool           `json:"isVeryLong"`
	IsUnknown          bool           `json:"isUnknown"`
	IsUncertain        bool           `json:"isUncertain"`
	IsOffTopic         bool           `json:"isOffTopic"`
}

// UnknownQuestion is one flagged exchange awaiting operator review.
type UnknownQuestion struct {
	ID           string       `json:"id"`
	UserQuestion string       `json:"userQuestion"`
	BotResponse  string       `json:"botResponse"`
	Type         QuestionType `json:"type"`
	Confidence   string       `json:"confidence"`
	Analysis     Analysis     `json:"analysis"`
	Timestamp    time.Time    `json:"timestamp"`
	Resolved     bool         `json:"resolved"`
	ResolvedAt   *time.Time   `json:"resolvedAt,omitempty"`
	Priority     string       `json:"priority"`
	Persona      string       `json:"persona,omitempty"`
}

// OffPurposeRecord is one refused request.
type OffPurposeRecord struct {
	ID          string    `json:"id"`
	UserMessage string    `json:"userMessage"`
	Category    string    `json:"category"`
	Response    string    `json:"response"`
	Timestamp   time.Time `json:"timestamp"`
	Persona     string    `json:"persona,omitempty"`
}

type questionLog struct {
	Questions []UnknownQuestion `json:"questions"`
}

type offPurposeLog struct {
	Requests []OffPurposeRecord `json:"requests"`
}

// Store reads and writes both queues. Appends are read-modify-write without
// locking; concurrent appends may lose one entry.
type Store struct {
	kv     kvstore.Store
	logger *logging.Logger
	now    func() time.Time
}

func NewStore(kv kvstore.Store, logger *logging.Logger) *Store {
	if kv == nil {
		kv = kvstore.Unavailable{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{kv: kv, logger: logger, now: time.Now}
}

// Available reports whether a durable backend is configured.
func (s *Store) Available() bool {
	return !kvstore.IsUnavailable(s.kv)
}

// AppendQuestion adds a record and drops the oldest beyond MaxUnknownQuestions.
func (s *Store) AppendQuestion(ctx context.Context, q UnknownQuestion) error {
	log, err := s.loadQuestions(ctx)
	if err != nil {
		return err
	}
	log.Questions = append(log.Questions, q)
	if len(log.Questions) > MaxUnknownQuestions {
		log.Questions = log.Questions[len(log.Questions)-MaxUnknownQuestions:]
	}
	if err := s.kv.Set(ctx, UnknownQuestionsKey, log); err != nil {
		return fmt.Errorf("review: save questions: %w", err)
	}
	return nil
}

// AppendOffPurpose adds a record and drops the oldest beyond MaxOffPurpose.
func (s *Store) AppendOffPurpose(ctx context.Context, r OffPurposeRecord) error {
	var log offPurposeLog
	if _, err := s.kv.Get(ctx, OffPurposeKey, &log); err != nil {
		return fmt.Errorf("review: load off-purpose log: %w", err)
	}
	log.Requests = append(log.Requests, r)
	if len(log.Requests) > MaxOffPurpose {
		log.Requests = log.Requests[len(log.Requests)-MaxOffPurpose:]
	}
	if err := s.kv.Set(ctx, OffPurposeKey, log); err != nil {
		return fmt.Errorf("review: save off-purpose log: %w", err)
	}
	return nil
}

// Questions returns the queue newest first.
func (s *Store) Questions(ctx context.Context) ([]UnknownQuestion, error) {
	log, err := s.loadQuestions(ctx)
	if err != nil {
		return nil, err
	}
	out := append([]UnknownQuestion(nil), log.Questions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// OffPurposeRequests returns the refusal log newest first.
func (s *Store) OffPurposeRequests(ctx context.Context) ([]OffPurposeRecord, error) {
	var log offPurposeLog
	if _, err := s.kv.Get(ctx, OffPurposeKey, &log); err != nil {
		return nil, fmt.Errorf("review: load off-purpose log: %w", err)
	}
	out := append([]OffPurposeRecord(nil), log.Requests...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Resolve marks a question as handled.
func (s *Store) Resolve(ctx context.Context, id string) error {
	return s.mutate(ctx, func(log *questionLog) error {
		for i := range log.Questions {
			if log.Questions[i].ID == id {
				now := s.now().UTC()
				log.Questions[i].Resolved = true
				log.Questions[i].ResolvedAt = &now
				return nil
			}
		}
		return ErrQuestionNotFound
	})
}

// Delete removes a question.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(log *questionLog) error {
		kept := log.Questions[:0]
		found := false
		for _, q := range log.Questions {
			if q.ID == id {
				found = true
				continue
			}
			kept = append(kept, q)
		}
		if !found {
			return ErrQuestionNotFound
		}
		log.Questions = kept
		return nil
	})
}

// ClearResolved drops every resolved question and reports how many were removed.
func (s *Store) ClearResolved(ctx context.Context) (int, error) {
	removed := 0
	err := s.mutate(ctx, func(log *questionLog) error {
		kept := log.Questions[:0]
		for _, q := range log.Questions {
			if q.Resolved {
				removed++
				continue
			}
			kept = append(kept, q)
		}
		log.Questions = kept
		return nil
	})
	return removed, err
}

func (s *Store) mutate(ctx context.Context, fn func(*questionLog) error) error {
	log, err := s.loadQuestions(ctx)
	if err != nil {
		return err
	}
	if err := fn(&log); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, UnknownQuestionsKey, log); err != nil {
		return fmt.Errorf("review: save questions: %w", err)
	}
	return nil
}

func (s *Store) loadQuestions(ctx context.Context) (questionLog, error) {
	var log questionLog
	if _, err := s.kv.Get(ctx, UnknownQuestionsKey, &log); err != nil {
		return questionLog{}, fmt.Errorf("review: load questions: %w", err)
	}
	return log, nil
}

// Summary aggregates a question list for the operator dashboard.
type Summary struct {
	Total        int            `json:"total"`
	Unresolved   int            `json:"unresolved"`
	ByType       map[string]int `json:"byType"`
	HighPriority int            `json:"highPriority"`
}

func Summarize(questions []UnknownQuestion) Summary {
	sum := Summary{
		Total:  len(questions),
		ByType: map[string]int{"unknown": 0, "uncertain": 0, "offTopic": 0},
	}
	for _, q := range questions {
		if !q.Resolved {
			sum.Unresolved++
			if q.Priority == PriorityHigh {
				sum.HighPriority++
			}
		}
		switch q.Type {
		case TypeUnknown:
			sum.ByType["unknown"]++
		case TypeUncertain:
			sum.ByType["uncertain"]++
		case TypeOffTopic:
			sum.ByType["offTopic"]++
		}
	}
	return sum
}

// CountByCategory groups refusals by category.
func CountByCategory(records []OffPurposeRecord) map[string]int {
	out := make(map[string]int)
	for _, r := range records {
		category := r.Category
		if category == "" {
			category = "unknown"
		}
		out[category]++
	}
	return out
}
