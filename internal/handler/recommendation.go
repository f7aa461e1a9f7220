package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/service"
)

// POST /users/{owner}/recommendations
func (h *Handler) CreateRecommendations(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")

	var body GenerateRequestBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "Request body must be a JSON object")
		return
	}

	recs, err := h.service.Generate(r.Context(), service.GenerateRequest{
		Owner:    owner,
		Titles:   body.Titles,
		Genres:   body.Genres,
		Feedback: body.Feedback,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, recommendationResponse(owner, recs, false))
}

// GET /users/{owner}/recommendations?limit=&genre=
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	result, err := h.service.Recent(r.Context(), owner, limit, r.URL.Query().Get("genre"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendationResponse(owner, result.Recommendations, result.CacheHit))
}

func recommendationResponse(owner string, recs []domain.Recommendation, cacheHit bool) RecommendationResponse {
	return RecommendationResponse{
		Owner:           owner,
		Recommendations: recs,
		Metadata: domain.RecommendationMeta{
			CacheHit:    cacheHit,
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			TotalCount:  len(recs),
		},
	}
}

// parseLimit reads ?limit. Absent means the service default; out-of-range values are clamped by the service.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return 0, true
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed < 1 {
		writeError(w, http.StatusBadRequest, "invalid_parameter", "Invalid limit parameter")
		return 0, false
	}
	return parsed, true
}
