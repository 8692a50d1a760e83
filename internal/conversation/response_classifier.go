package conversation

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/wolfman30/workshop-concierge/internal/review"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

const (
	veryShortLimit   = 50
	veryLongLimit    = 800
	repetitionLimit  = 3
	uncertaintyLimit = 2
)

var unknownIndicators = []string{
	"weiß ich nicht",
	"kann ich nicht",
	"des kenn ich nicht",
	"hab keine ahnung",
	"tut mir leid",
	"sorry",
	"leider",
	"kann nicht helfen",
	"versteh ich nicht",
	"ist mir nicht bekannt",
	"kann ihnen nicht",
}

type uncertaintyFamily struct {
	name    string
	phrases []string
}

var uncertaintyFamilies = []uncertaintyFamily{
	{name: "vague", phrases: []string{
		"vielleicht", "könnte sein", "vermutlich", "wahrscheinlich", "ich denke",
		"ich glaube", "möglicherweise", "eventuell", "unter umständen",
	}},
	{name: "uncertain", phrases: []string{
		"bin mir nicht sicher", "kann nicht genau sagen", "müsste nachschauen",
		"würde empfehlen", "könnte ihnen nicht", "hab grad keine", "fällt mir nicht ein",
	}},
	{name: "evasive", phrases: []string{
		"das kommt darauf an", "schwer zu sagen", "kann verschiedene",
		"gibt mehrere", "unterschiedlich", "je nach situation",
	}},
	{name: "generic", phrases: []string{
		"allgemein", "normalerweise", "üblicherweise", "in der regel",
		"meistens", "oft", "häufig",
	}},
}

// domainAnchors mark a response as being about the workshop.
var domainAnchors = []string{
	"workshop", "openresearch", "viva", "figlmüller", "meissl", "topgolf",
	"insel", "montag", "dienstag", "mittwoch", "marcus", "wien", "biberstraße",
}

// offTopicKeywords are matched against the user's message.
var offTopicKeywords = []string{
	"wetter morgen", "restaurant empfehlung", "sehenswürdigkeiten", "hotel",
	"booking", "flug", "zug", "taxi preis", "einkaufen", "shopping", "nightlife",
	"bar", "club", "konzert", "theater", "oper", "museum", "corona", "covid",
	"impfung", "politik", "wahlen",
}

var clarifierSuffixes = []string{
	"\n\nFalls das nicht ganz passt, fragen Sie gern spezifischer nach!",
	"\n\nSollte ich was übersehen haben, einfach nochmal nachfragen!",
	"\n\nWenn Sie mehr Details brauchen, bin ich gern da!",
	"\n\nNicht ganz was Sie gesucht haben? Formulieren Sie gern nochmal anders!",
}

// ClarifierSuffixes returns the pool used by AppendClarifier.
func ClarifierSuffixes() []string { return clarifierSuffixes }

// ResponseAnalysis holds every signal computed for one completion.
type ResponseAnalysis struct {
	Unknown          bool
	Uncertain        bool
	OffTopic         bool
	UncertaintyScore int
	FamilyScores     map[string]int
	Categories       []string
	ResponseLength   int
	VeryShort        bool
	VeryLong         bool
	HasRepetition    bool
	HasDomainAnchor  bool
}

// Flagged reports whether any signal fired.
func (a ResponseAnalysis) Flagged() bool {
	return a.Unknown || a.Uncertain || a.OffTopic
}

// Label applies the precedence off-topic > unknown > uncertain.
func (a ResponseAnalysis) Label() (review.QuestionType, bool) {
	switch {
	case a.OffTopic:
		return review.TypeOffTopic, true
	case a.Unknown:
		return review.TypeUnknown, true
	case a.Uncertain:
		return review.TypeUncertain, true
	}
	return "", false
}

// UncertainOnly is true when the clarifying suffix applies.
func (a ResponseAnalysis) UncertainOnly() bool {
	return a.Uncertain && !a.Unknown && !a.OffTopic
}

// ClassifyResponse is a pure function of the completion text and the user's message.
func ClassifyResponse(response, userMessage string) ResponseAnalysis {
	lower := strings.ToLower(response)

	a := ResponseAnalysis{
		Unknown:        containsAny(lower, unknownIndicators),
		FamilyScores:   make(map[string]int),
		Categories:     []string{},
		ResponseLength: utf8.RuneCountInString(response),
	}

	for _, fam := range uncertaintyFamilies {
		matches := 0
		for _, phrase := range fam.phrases {
			if strings.Contains(lower, phrase) {
				matches++
			}
		}
		if matches > 0 {
			a.FamilyScores[fam.name] = matches
			a.Categories = append(a.Categories, fam.name)
			a.UncertaintyScore += matches
		}
	}

	a.VeryShort = a.ResponseLength < veryShortLimit
	a.VeryLong = a.ResponseLength > veryLongLimit
	a.HasRepetition = hasRepetition(lower)
	a.HasDomainAnchor = containsAny(lower, domainAnchors)

	// Kept as four clauses even where they overlap.
	a.Uncertain = a.UncertaintyScore > uncertaintyLimit ||
		(a.UncertaintyScore > 0 && (a.VeryShort || !a.HasDomainAnchor)) ||
		(a.VeryShort && !a.HasDomainAnchor) ||
		a.HasRepetition

	a.OffTopic = containsAny(strings.ToLower(userMessage), offTopicKeywords)
	return a
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func hasRepetition(lower string) bool {
	freq := make(map[string]int)
	for _, w := range strings.Fields(lower) {
		freq[w]++
		if freq[w] > repetitionLimit {
			return true
		}
	}
	return false
}

// AppendClarifier adds a clarifying suffix to uncertain-only responses that do
// not already end in a question.
func AppendClarifier(response string, a ResponseAnalysis, s Sampler) string {
	if !a.UncertainOnly() {
		return response
	}
	if strings.HasSuffix(strings.TrimSpace(response), "?") {
		return response
	}
	return response + Pick(s, clarifierSuffixes)
}

// ReviewRecorder persists flagged exchanges to the operator review queue.
type ReviewRecorder struct {
	store  *review.Store
	logger *logging.Logger
	now    func() time.Time
}

func NewReviewRecorder(store *review.Store, logger *logging.Logger) *ReviewRecorder {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReviewRecorder{store: store, logger: logger, now: time.Now}
}

// Record stores one UnknownQuestion when a is flagged. Storage errors are logged only.
func (r *ReviewRecorder) Record(ctx context.Context, persona, userMessage, response string, a ResponseAnalysis) bool {
	label, ok := a.Label()
	if !ok {
		return false
	}
	r.logger.Info("problematic response detected",
		"type", label,
		"persona", persona,
		"uncertainty_score", a.UncertaintyScore,
		"response_length", a.ResponseLength,
	)
	if r.store == nil || !r.store.Available() {
		return false
	}

	confidence := review.ConfidenceVeryLow
	if label == review.TypeUncertain {
		confidence = review.ConfidenceLow
	}
	priority := review.PriorityMedium
	if label == review.TypeUnknown {
		priority = review.PriorityHigh
	}

	err := r.store.AppendQuestion(ctx, review.UnknownQuestion{
		ID:           uuid.NewString(),
		UserQuestion: userMessage,
		BotResponse:  response,
		Type:         label,
		Confidence:   confidence,
		Analysis: review.Analysis{
			UncertaintyScore:   a.UncertaintyScore,
			Categories:         a.Categories,
			FamilyScores:       a.FamilyScores,
			ResponseLength:     a.ResponseLength,
			HasWorkshopContext: a.HasDomainAnchor,
			HasRepetition:      a.HasRepetition,
			IsVeryShort:        a.VeryShort,
			IsVeryLong:         a.VeryLong,
			IsUnknown:          a.Unknown,
			IsUncertain:        a.Uncertain,
			IsOffTopic:         a.OffTopic,
		},
		Timestamp: r.now().UTC(),
		Priority:  priority,
		Persona:   persona,
	})
	if err != nil {
		r.logger.Warn("failed to save response analysis", "error", err)
		return false
	}
	return true
}
