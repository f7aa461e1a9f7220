package domain

type GenrePreference struct {
	Owner string `json:"owner"`
	Genre string `json:"genre"`
}

type MoviePreference struct {
	Owner string `json:"owner"`
	Title string `json:"title"`
}

// PreferenceSummary reports how much preference history an owner has.
type PreferenceSummary struct {
	Owner      string   `json:"owner"`
	GenreCount int      `json:"genre_count"`
	TitleCount int      `json:"title_count"`
	Genres     []string `json:"genres"`
	FirstTime  bool     `json:"first_time"`
}
