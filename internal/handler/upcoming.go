package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GET /users/{owner}/upcoming
func (h *Handler) GetUpcoming(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	matches, err := h.service.Upcoming(r.Context(), owner)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UpcomingResponse{Owner: owner, Upcoming: matches})
}

// GET /users/{owner}/preferences
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Preferences(r.Context(), chi.URLParam(r, "owner"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /users/{owner}/dashboard?limit=
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	dash, err := h.service.Dashboard(r.Context(), chi.URLParam(r, "owner"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
