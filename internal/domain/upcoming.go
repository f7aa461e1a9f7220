package domain

// UpcomingMatch is an upcoming catalog title that shares a genre with the owner's preferences.
type UpcomingMatch struct {
	Title       string   `json:"title"`
	ReleaseDate string   `json:"release_date"`
	Rating      float64  `json:"rating"`
	Genres      []string `json:"genres"`
	PosterURL   string   `json:"poster_url,omitempty"`
}

type Dashboard struct {
	Owner           string           `json:"owner"`
	Recommendations []Recommendation `json:"recommendations"`
	Upcoming        []UpcomingMatch  `json:"upcoming"`
}
