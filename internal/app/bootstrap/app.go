package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/workshop-concierge/internal/activity"
	"github.com/wolfman30/workshop-concierge/internal/api/router"
	appconfig "github.com/wolfman30/workshop-concierge/internal/config"
	"github.com/wolfman30/workshop-concierge/internal/conversation"
	"github.com/wolfman30/workshop-concierge/internal/extensions"
	"github.com/wolfman30/workshop-concierge/internal/kvstore"
	"github.com/wolfman30/workshop-concierge/internal/observability/metrics"
	"github.com/wolfman30/workshop-concierge/internal/review"
	"github.com/wolfman30/workshop-concierge/internal/workshop"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

// App is the fully wired process shared by the HTTP server, the Lambda
// adapter and the operator CLI.
type App struct {
	Config   *appconfig.Config
	Logger   *logging.Logger
	Dataset  *workshop.Dataset
	Location *time.Location
	Personas *conversation.Registry
	Store    kvstore.Store
	Backend  string
	Chat     *conversation.Service
	Tokens   *extensions.Service
	Review   *review.Store
	Activity *activity.Logger
	Handler  http.Handler

	store StoreHandle
	llm   LLMHandle
}

// Close releases store and provider connections.
func (a *App) Close() {
	if a == nil {
		return
	}
	a.llm.Close()
	a.store.Close()
}

// BuildApp wires every component from cfg.
func BuildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ds, err := workshop.LoadDataset(cfg.WorkshopDataFile)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	personas, err := conversation.DefaultRegistry(cfg.DefaultPersona)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	loc := workshop.LocationOrUTC(cfg.WorkshopTimezone)

	store, err := BuildStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	llm, err := BuildLLMClient(ctx, cfg, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	chatMetrics := metrics.NewChatMetrics(registry)

	reviewStore := review.NewStore(store.Store, logger)
	activityLog := activity.NewLogger(store.Store, logger)
	model := llm.Model
	if model == "" {
		model = cfg.OpenAIModel
	}

	chat := conversation.NewService(
		llm.Client,
		personas,
		ds,
		loc,
		extensions.NewLoader(store.Store, logger),
		conversation.ServiceConfig{
			Model:        model,
			MaxTokens:    int32(cfg.LLMMaxTokens),
			Temperature:  float32(cfg.LLMTemperature),
			Timeout:      cfg.LLMTimeout,
			HistoryLimit: cfg.HistoryLimit,
		},
		logger,
		conversation.WithGuard(conversation.NewOffPurposeGuard(reviewStore, conversation.DefaultSampler, logger)),
		conversation.WithReviewRecorder(conversation.NewReviewRecorder(reviewStore, logger)),
		conversation.WithActivityLogger(activityLog),
		conversation.WithMetrics(chatMetrics),
	)
	tokens := extensions.NewService(store.Store, extensions.ServiceConfig{
		Namespaces:     personas.TokenNamespaces(),
		DefaultPersona: personas.DefaultID(),
		BaseURL:        cfg.PublicBaseURL,
	}, logger)

	handler := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        conversation.NewHandler(chat, cfg.WorkshopPassword, logger),
		TokenHandler:       extensions.NewHandler(tokens, logger),
		ReviewHandler:      review.NewHandler(reviewStore, logger),
		ActivityHandler:    activity.NewHandler(activityLog, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminKey:           cfg.AdminKey,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StorageBackend:     store.Backend,
		ChatRateLimit:      cfg.ChatRateLimitRPS,
		ChatRateBurst:      cfg.ChatRateLimitBurst,
	})

	return &App{
		Config:   cfg,
		Logger:   logger,
		Dataset:  ds,
		Location: loc,
		Personas: personas,
		Store:    store.Store,
		Backend:  store.Backend,
		Chat:     chat,
		Tokens:   tokens,
		Review:   reviewStore,
		Activity: activityLog,
		Handler:  handler,
		store:    store,
		llm:      llm,
	}, nil
}
