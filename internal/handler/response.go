package handler

import "github.com/actuallystonmai/flick-found/internal/domain"

type GenerateRequestBody struct {
	Titles   []string `json:"titles"`
	Genres   []string `json:"genres"`
	Feedback string   `json:"feedback"`
}

type RecommendationResponse struct {
	Owner           string                    `json:"owner"`
	Recommendations []domain.Recommendation   `json:"recommendations"`
	Metadata        domain.RecommendationMeta `json:"metadata"`
}

type UpcomingResponse struct {
	Owner    string                 `json:"owner"`
	Upcoming []domain.UpcomingMatch `json:"upcoming"`
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
