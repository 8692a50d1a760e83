package extensions

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/wolfman30/workshop-concierge/internal/kvstore"
	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

// Handler serves token check/redeem and the admin token endpoints.
type Handler struct {
	svc    *Service
	logger *logging.Logger
}

func NewHandler(svc *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

// CheckToken handles GET /api/tokens?token=<id>.
func (h *Handler) CheckToken(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("token")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Token erforderlich")
		return
	}
	tok, err := h.svc.Check(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":   true,
		"type":    tok.Type,
		"message": "Token ist gültig!",
	})
}

// RedeemToken handles POST /api/tokens.
func (h *Handler) RedeemToken(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Token, Content und Name erforderlich")
		return
	}
	res, err := h.svc.Redeem(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("%s wurde erfolgreich um %s erweitert!", res.DisplayName, res.Type),
		"winner":  res.Winner,
	})
}

// ListTokens handles GET /api/admin/tokens.
func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.svc.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	used := 0
	for _, t := range tokens {
		if t.Used {
			used++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tokens": tokens,
		"total":  len(tokens),
		"used":   used,
	})
}

type generateRequest struct {
	Count   int    `json:"count"`
	Persona string `json:"persona"`
}

// GenerateTokens handles POST /api/admin/tokens/generate.
func (h *Handler) GenerateTokens(w http.ResponseWriter, r *http.Request) {
	req := generateRequest{Count: 10}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	tokens, err := h.svc.Generate(r.Context(), req.Count, req.Persona)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(tokens),
		"tokens":  tokens,
		"message": fmt.Sprintf("%d Tokens erfolgreich generiert!", len(tokens)),
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "Token nicht gefunden")
	case errors.Is(err, ErrTokenUsed):
		writeError(w, http.StatusGone, "Token bereits verwendet")
	case errors.Is(err, kvstore.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Speicher nicht verfügbar")
	default:
		h.logger.Error("token request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Server Fehler")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
