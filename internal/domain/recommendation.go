package domain

import "time"

// Recommendation is one normalized title produced by the generation service.
// PosterURL is never stored; it is attached when the record is read.
type Recommendation struct {
	ID          int64     `json:"id,omitempty"`
	Owner       string    `json:"owner"`
	BatchID     string    `json:"batch_id,omitempty"`
	Title       string    `json:"title"`
	Genre       string    `json:"genre"`
	Rating      float64   `json:"rating"`
	ReleaseDate string    `json:"release_date"`
	PosterURL   string    `json:"poster_url,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Policy decides what happens to an owner's earlier recommendations when a new batch is stored.
type Policy string

const (
	PolicyAppend  Policy = "append"
	PolicyReplace Policy = "replace"
)

func (p Policy) Valid() bool {
	return p == PolicyAppend || p == PolicyReplace
}

// Batch is one generated set of recommendations together with the
// submission that produced it. Stores write it in a single transaction.
type Batch struct {
	Recommendations []Recommendation
	Titles          []string
	Genres          []string
	Policy          Policy
}

type RecommendationMeta struct {
	CacheHit    bool   `json:"cache_hit"`
	GeneratedAt string `json:"generated_at"`
	TotalCount  int    `json:"total_count"`
}

type RecommendationResult struct {
	Recommendations []Recommendation
	CacheHit        bool
}
