package journal

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the read side of the decision journal. Write access does
// not exist over HTTP; decisions only enter through the Notifier.
type Handler struct {
	repo *Repository
}

// NewHandler creates a journal read handler backed by PostgreSQL.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes registers the journal routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListDecisions)
	return r
}

// ListDecisions lists recent journaled decisions, newest first.
func (h *Handler) ListDecisions(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{
		SubjectID: r.URL.Query().Get("subject_id"),
	}
	if outcome := r.URL.Query().Get("outcome"); outcome != "" {
		filter.Outcome = Outcome(outcome)
	}
	if since := r.URL.Query().Get("since"); since != "" {
		if ts, err := time.Parse(time.RFC3339, since); err == nil {
			filter.Since = ts
		}
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			filter.Limit = n
		}
	}

	decisions, err := h.repo.List(r.Context(), filter)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "failed to list journal decisions"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"decisions": decisions,
		"count":     len(decisions),
	})
}
