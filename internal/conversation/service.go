package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/workshop-concierge/internal/activity"
	"github.com/wolfman30/workshop-concierge/internal/extensions"
	"github.com/wolfman30/workshop-concierge/internal/observability/metrics"
	"github.com/wolfman30/workshop-concierge/internal/workshop"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

const defaultHistoryLimit = 20

var chatTracer = otel.Tracer("workshop.internal.conversation")

// ChatRequest is one inbound turn with its logging correlation.
type ChatRequest struct {
	Persona  string
	Messages []ChatMessage

	SessionID          string
	RequestID          string
	UserColor          string
	MessageLength      int
	ConversationTurn   int
	ConversationLength int
}

// ChatResult is the reply returned to the caller.
type ChatResult struct {
	Message   string
	RequestID string
	Blocked   bool
	Category  OffPurposeCategory
	Analysis  *ResponseAnalysis
}

// ServiceConfig carries completion parameters.
type ServiceConfig struct {
	Model        string
	MaxTokens    int32
	Temperature  float32
	Timeout      time.Duration
	HistoryLimit int
}

// Service runs the chat pipeline: temporal context and extensions, prompt
// assembly, pre-call guard, completion, post-call classification.
type Service struct {
	llm        LLMClient
	personas   *Registry
	dataset    *workshop.Dataset
	location   *time.Location
	extensions *extensions.Loader
	guard      *OffPurposeGuard
	recorder   *ReviewRecorder
	activity   *activity.Logger
	metrics    *metrics.ChatMetrics
	sampler    Sampler
	cfg        ServiceConfig
	logger     *logging.Logger
	now        func() time.Time
}

type ServiceOption func(*Service)

func WithGuard(g *OffPurposeGuard) ServiceOption {
	return func(s *Service) { s.guard = g }
}

func WithReviewRecorder(r *ReviewRecorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

func WithActivityLogger(a *activity.Logger) ServiceOption {
	return func(s *Service) { s.activity = a }
}

func WithMetrics(m *metrics.ChatMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithSampler(sm Sampler) ServiceOption {
	return func(s *Service) {
		if sm != nil {
			s.sampler = sm
		}
	}
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(llm LLMClient, personas *Registry, dataset *workshop.Dataset, loc *time.Location, loader *extensions.Loader, cfg ServiceConfig, logger *logging.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if loader == nil {
		loader = extensions.NewLoader(nil, logger)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	s := &Service{
		llm:        llm,
		personas:   personas,
		dataset:    dataset,
		location:   loc,
		extensions: loader,
		sampler:    DefaultSampler,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.activity == nil {
		s.activity = activity.NewLogger(nil, logger)
	}
	return s
}

// Personas exposes the registry for handlers.
func (s *Service) Personas() *Registry { return s.personas }

// SystemPrompt assembles the prompt persona would receive right now.
func (s *Service) SystemPrompt(ctx context.Context, personaID string) (string, error) {
	p, err := s.personas.Get(personaID)
	if err != nil {
		return "", err
	}
	tc := workshop.Resolve(s.now(), s.location, s.dataset)
	exts := s.extensions.Load(ctx, p.ExtensionsKey)
	return BuildSystemPrompt(p, tc, exts.Extensions, s.dataset), nil
}

// Reply answers the latest user message of req.
func (s *Service) Reply(ctx context.Context, req ChatRequest) (ChatResult, error) {
	ctx, span := chatTracer.Start(ctx, "conversation.reply")
	defer span.End()

	p, err := s.personas.Get(req.Persona)
	if err != nil {
		return ChatResult{}, err
	}
	history := TrimHistory(req.Messages, s.cfg.HistoryLimit)
	userMessage, ok := lastUserMessage(history)

	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	corr := activity.Correlation{
		Persona:            p.ID,
		SessionID:          req.SessionID,
		RequestID:          req.RequestID,
		UserColor:          req.UserColor,
		MessageLength:      req.MessageLength,
		ConversationTurn:   req.ConversationTurn,
		ConversationLength: req.ConversationLength,
	}
	start := s.now()
	// request_start is recorded even for requests rejected as invalid.
	s.activity.RequestStarted(ctx, corr, userMessage)
	if !ok {
		s.metrics.ObserveRequest(p.ID, "invalid")
		return ChatResult{}, ErrInvalidMessages
	}
	span.SetAttributes(
		attribute.String("workshop.persona", p.ID),
		attribute.Int("workshop.history_len", len(history)),
	)

	tc := workshop.Resolve(start, s.location, s.dataset)
	exts := s.extensions.Load(ctx, p.ExtensionsKey)
	prompt := BuildSystemPrompt(p, tc, exts.Extensions, s.dataset)

	if p.IncludeWorkshopData && s.guard != nil {
		if verdict := s.guard.Check(ctx, p.ID, userMessage); verdict.Blocked {
			s.metrics.ObserveOffPurpose(string(verdict.Category))
			s.metrics.ObserveRequest(p.ID, "blocked")
			s.activity.RequestEnded(ctx, corr, userMessage, verdict.Response, s.now().Sub(start))
			span.SetAttributes(attribute.String("workshop.off_purpose", string(verdict.Category)))
			return ChatResult{Message: verdict.Response, RequestID: req.RequestID, Blocked: true, Category: verdict.Category}, nil
		}
	}

	resp, err := s.complete(ctx, prompt, history)
	if err != nil {
		s.metrics.ObserveRequest(p.ID, "error")
		s.activity.RequestFailed(ctx, corr, userMessage, err, s.now().Sub(start))
		s.logger.Error("completion failed", "persona", p.ID, "request_id", req.RequestID, "error", err)
		return ChatResult{}, err
	}

	message := resp.Text
	var analysis *ResponseAnalysis
	if p.IncludeWorkshopData {
		a := ClassifyResponse(message, userMessage)
		analysis = &a
		if s.recorder != nil && s.recorder.Record(ctx, p.ID, userMessage, message, a) {
			label, _ := a.Label()
			s.metrics.ObserveFlagged(string(label))
		}
		message = AppendClarifier(message, a, s.sampler)
	}

	s.metrics.ObserveRequest(p.ID, "ok")
	s.activity.RequestEnded(ctx, corr, userMessage, message, s.now().Sub(start))
	return ChatResult{Message: message, RequestID: req.RequestID, Analysis: analysis}, nil
}

func (s *Service) complete(ctx context.Context, prompt string, history []ChatMessage) (LLMResponse, error) {
	if s.llm == nil {
		return LLMResponse{}, ErrMissingCredential
	}
	ctx, span := chatTracer.Start(ctx, "conversation.llm")
	defer span.End()

	req := LLMRequest{
		Model:       s.cfg.Model,
		System:      []string{prompt},
		Messages:    history,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := s.llm.Complete(ctx, req)
	latency := time.Since(started)
	s.metrics.ObserveCompletion(s.cfg.Model, err == nil, latency.Seconds(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Float64("workshop.llm.latency_ms", float64(latency.Milliseconds())),
			attribute.String("workshop.llm.model", s.cfg.Model),
			attribute.Int("workshop.llm.input_tokens", int(resp.Usage.InputTokens)),
			attribute.Int("workshop.llm.output_tokens", int(resp.Usage.OutputTokens)),
			attribute.String("workshop.llm.stop_reason", resp.StopReason),
		)
	}
	return resp, err
}

// Brain is the debug view of a persona's assembled knowledge.
type Brain struct {
	Persona            string                 `json:"persona"`
	Timestamp          time.Time              `json:"timestamp"`
	BasePersonality    string                 `json:"basePersonality"`
	ExtensionsText     string                 `json:"extensionsText"`
	ExtensionsCount    int                    `json:"extensionsCount"`
	Extensions         []extensions.Extension `json:"extensions"`
	SystemPromptLength int                    `json:"systemPromptLength"`
	Status             string                 `json:"status"`
}

// Brain reports the persona description and its current extensions.
func (s *Service) Brain(ctx context.Context, personaID string) (Brain, error) {
	p, err := s.personas.Get(personaID)
	if err != nil {
		return Brain{}, err
	}
	exts := s.extensions.Load(ctx, p.ExtensionsKey).Extensions
	base := p.Description
	if p.IncludeWorkshopData && s.dataset != nil && len(s.dataset.Days) > 0 {
		base = strings.ReplaceAll(base, workshopRangeMarker, dateRange(s.dataset))
	}
	text := ExtensionsText(p, exts)
	return Brain{
		Persona:            p.ID,
		Timestamp:          s.now().In(s.location),
		BasePersonality:    base,
		ExtensionsText:     text,
		ExtensionsCount:    len(exts),
		Extensions:         exts,
		SystemPromptLength: len([]rune(base + text)),
		Status:             "active",
	}, nil
}
