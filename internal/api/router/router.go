package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/workshop-concierge/internal/activity"
	"github.com/wolfman30/workshop-concierge/internal/conversation"
	"github.com/wolfman30/workshop-concierge/internal/extensions"
	httpmiddleware "github.com/wolfman30/workshop-concierge/internal/http/middleware"
	"github.com/wolfman30/workshop-concierge/internal/review"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *conversation.Handler
	TokenHandler       *extensions.Handler
	ReviewHandler      *review.Handler
	ActivityHandler    *activity.Handler
	MetricsHandler     http.Handler
	AdminKey           string
	CORSAllowedOrigins []string
	// StorageBackend is reported by /health.
	StorageBackend string

	// ChatRateLimit is requests per second per client IP on the chat routes; zero disables it.
	ChatRateLimit float64
	ChatRateBurst int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed"})
	})

	r.Get("/health", healthHandler(cfg.StorageBackend))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.ChatHandler != nil {
			api.Group(func(chat chi.Router) {
				if cfg.ChatRateLimit > 0 {
					chat.Use(httpmiddleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst))
				}
				chat.Post("/chat", cfg.ChatHandler.Chat)
				chat.Post("/{persona}/chat", cfg.ChatHandler.Chat)
			})
			api.Get("/{persona}/brain", cfg.ChatHandler.Brain)
		}

		if cfg.TokenHandler != nil {
			api.Get("/tokens", cfg.TokenHandler.CheckToken)
			api.Post("/tokens", cfg.TokenHandler.RedeemToken)
		}

		if cfg.ActivityHandler != nil {
			api.Get("/activity", cfg.ActivityHandler.HandleSnapshot)
			api.Get("/activity/stream", cfg.ActivityHandler.HandleStream)
		}

		api.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminAuth(cfg.AdminKey))
			if cfg.TokenHandler != nil {
				admin.Get("/admin/tokens", cfg.TokenHandler.ListTokens)
				admin.Post("/admin/tokens/generate", cfg.TokenHandler.GenerateTokens)
			}
			if cfg.ReviewHandler != nil {
				admin.Get("/unknown-questions", cfg.ReviewHandler.ListQuestions)
				admin.Post("/unknown-questions", cfg.ReviewHandler.UpdateQuestion)
				admin.Get("/off-purpose-requests", cfg.ReviewHandler.ListOffPurpose)
			}
		})
	})

	return r
}

func healthHandler(backend string) http.HandlerFunc {
	if backend == "" {
		backend = "none"
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "storage": backend})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
