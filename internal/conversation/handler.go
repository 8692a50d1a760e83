package conversation

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

const (
	missingCredentialMessage = "Mit Verlaub, da fehlt der Schlüssel zur OpenAI Schatzkammer! 🗝️"
	wrongPasswordMessage     = "Falsches Passwort. Nur für Workshop-Teilnehmer!"
	unknownPersonaMessage    = "Unbekannte Persönlichkeit"

	// maxChatBodyBytes bounds the JSON body of a chat request.
	maxChatBodyBytes = 256 << 10
)

// Handler wires HTTP requests to the chat service.
type Handler struct {
	service  *Service
	password string
	logger   *logging.Logger
}

// NewHandler creates a chat handler. A non-empty password gates every chat call.
func NewHandler(service *Service, password string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, password: password, logger: logger}
}

type chatRequestBody struct {
	Messages         []ChatMessage `json:"messages"`
	Message          string        `json:"message"`
	WorkshopPassword string        `json:"workshopPassword"`
}

// Chat handles POST /api/chat and POST /api/{persona}/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var body chatRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes)).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request too large")
			return
		}
		h.logger.Debug("failed to decode chat request", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid messages")
		return
	}
	if !h.passwordOK(r, body.WorkshopPassword) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":         wrongPasswordMessage,
			"needsPassword": true,
		})
		return
	}

	messages := body.Messages
	if len(messages) == 0 && strings.TrimSpace(body.Message) != "" {
		messages = []ChatMessage{{Role: ChatRoleUser, Content: body.Message}}
	}
	req := ChatRequest{
		Persona:            chi.URLParam(r, "persona"),
		Messages:           messages,
		SessionID:          r.Header.Get("X-Session-ID"),
		UserColor:          r.Header.Get("X-User-Color"),
		MessageLength:      headerInt(r, "X-Message-Length"),
		ConversationTurn:   headerInt(r, "X-Conversation-Turn"),
		ConversationLength: headerInt(r, "X-Conversation-Length"),
	}

	result, err := h.service.Reply(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": result.Message})
	case errors.Is(err, ErrInvalidMessages):
		writeError(w, http.StatusBadRequest, "Invalid messages")
	case errors.Is(err, ErrUnknownPersona):
		writeError(w, http.StatusNotFound, unknownPersonaMessage)
	case errors.Is(err, ErrMissingCredential):
		writeError(w, http.StatusInternalServerError, missingCredentialMessage)
	default:
		writeError(w, http.StatusInternalServerError, "Na servas! Fehler: "+userFacingCause(err))
	}
}

// Brain handles GET /api/{persona}/brain.
func (h *Handler) Brain(w http.ResponseWriter, r *http.Request) {
	brain, err := h.service.Brain(r.Context(), chi.URLParam(r, "persona"))
	if err != nil {
		status := http.StatusInternalServerError
		msg := err.Error()
		if errors.Is(err, ErrUnknownPersona) {
			status = http.StatusNotFound
			msg = unknownPersonaMessage
		}
		writeJSON(w, status, map[string]any{"error": msg, "timestamp": time.Now().UTC()})
		return
	}
	writeJSON(w, http.StatusOK, brain)
}

func (h *Handler) passwordOK(r *http.Request, supplied string) bool {
	if h.password == "" {
		return true
	}
	if supplied == "" {
		supplied = r.Header.Get("X-Workshop-Password")
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(supplied)), []byte(h.password)) == 1
}

func headerInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.Header.Get(name)))
	if err != nil {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
