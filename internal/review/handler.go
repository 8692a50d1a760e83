package review

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/workshop-concierge/pkg/logging"
)

const storageUnavailableMessage = "storage not available"

// Handler serves the operator review endpoints. Admin authentication happens in middleware.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

type questionsResponse struct {
	Questions []UnknownQuestion `json:"questions"`
	Summary
	Message string `json:"message,omitempty"`
}

// ListQuestions handles GET /api/unknown-questions.
func (h *Handler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	if !h.store.Available() {
		writeJSON(w, http.StatusOK, questionsResponse{
			Questions: []UnknownQuestion{},
			Summary:   Summarize(nil),
			Message:   storageUnavailableMessage,
		})
		return
	}
	questions, err := h.store.Questions(r.Context())
	if err != nil {
		h.logger.Error("failed to load unknown questions", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if questions == nil {
		questions = []UnknownQuestion{}
	}
	writeJSON(w, http.StatusOK, questionsResponse{Questions: questions, Summary: Summarize(questions)})
}

type questionActionRequest struct {
	QuestionID string `json:"questionId"`
	Action     string `json:"action"`
}

// UpdateQuestion handles POST /api/unknown-questions.
func (h *Handler) UpdateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.store.Available() {
		writeError(w, http.StatusInternalServerError, storageUnavailableMessage)
		return
	}

	ctx := r.Context()
	var err error
	switch req.Action {
	case "resolve":
		if req.QuestionID == "" {
			writeError(w, http.StatusBadRequest, "questionId required")
			return
		}
		err = h.store.Resolve(ctx, req.QuestionID)
	case "delete":
		if req.QuestionID == "" {
			writeError(w, http.StatusBadRequest, "questionId required")
			return
		}
		err = h.store.Delete(ctx, req.QuestionID)
	case "clear_resolved":
		var removed int
		removed, err = h.store.ClearResolved(ctx)
		if err == nil {
			h.logger.Info("cleared resolved questions", "removed", removed)
		}
	default:
		writeError(w, http.StatusBadRequest, "invalid action")
		return
	}

	switch {
	case errors.Is(err, ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, "question not found")
		return
	case err != nil:
		h.logger.Error("review action failed", "action", req.Action, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Question " + req.Action + "d successfully",
	})
}

type offPurposeResponse struct {
	Requests   []OffPurposeRecord `json:"requests"`
	Total      int                `json:"total"`
	ByCategory map[string]int     `json:"byCategory"`
	Message    string             `json:"message,omitempty"`
}

// ListOffPurpose handles GET /api/off-purpose-requests.
func (h *Handler) ListOffPurpose(w http.ResponseWriter, r *http.Request) {
	if !h.store.Available() {
		writeJSON(w, http.StatusOK, offPurposeResponse{
			Requests:   []OffPurposeRecord{},
			ByCategory: map[string]int{},
			Message:    storageUnavailableMessage,
		})
		return
	}
	records, err := h.store.OffPurposeRequests(r.Context())
	if err != nil {
		h.logger.Error("failed to load off-purpose log", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []OffPurposeRecord{}
	}
	writeJSON(w, http.StatusOK, offPurposeResponse{
		Requests:   records,
		Total:      len(records),
		ByCategory: CountByCategory(records),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
