// Package seeds loads demo owners with preference history and a first
// batch of recommendations so the upcoming and dashboard views have data.
package seeds

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/logging"
)

// Store is the write surface seeding needs.
type Store interface {
	AppendRecommendations(ctx context.Context, owner string, recs []domain.Recommendation) error
	AddGenres(ctx context.Context, owner string, genres []string) error
	AddTitles(ctx context.Context, owner string, titles []string) error
	CountTitles(ctx context.Context, owner string) (int, error)
}

const (
	demoOwners      = 5
	titlesPerOwner  = 3
	recsPerOwner    = 10
	maxGenresPerOne = 2
)

var genres = []string{"action", "drama", "comedy", "thriller", "science fiction"}

var genreWeights = []float64{0.3, 0.2, 0.2, 0.15, 0.15}

var titles = map[string][]string{
	"action": {
		"Die Hard", "Mad Max: Fury Road", "John Wick", "The Dark Knight",
		"Gladiator", "Top Gun: Maverick", "The Raid", "Mission: Impossible",
		"Casino Royale", "The Avengers",
	},
	"drama": {
		"The Shawshank Redemption", "Forrest Gump", "The Godfather",
		"Schindler's List", "A Beautiful Mind", "12 Angry Men",
		"Parasite", "Moonlight", "Whiplash", "The Green Mile",
	},
	"comedy": {
		"Superbad", "The Hangover", "Bridesmaids", "Step Brothers",
		"Anchorman", "Mean Girls", "Borat", "Hot Fuzz",
		"Groundhog Day", "The Grand Budapest Hotel",
	},
	"thriller": {
		"Se7en", "Gone Girl", "Zodiac", "Prisoners",
		"Sicario", "No Country for Old Men", "Nightcrawler",
		"Shutter Island", "The Silence of the Lambs", "Oldboy",
	},
	"science fiction": {
		"Blade Runner 2049", "Interstellar", "The Matrix", "Arrival",
		"Dune", "Ex Machina", "Alien", "Inception",
		"Edge of Tomorrow", "2001: A Space Odyssey",
	},
}

// DemoOwner names the i-th seeded owner, starting at 1.
func DemoOwner(i int) string {
	return fmt.Sprintf("demo-%d", i)
}

// Setup seeds every demo owner that has no preference history yet, so it
// is safe to run on each start.
func Setup(ctx context.Context, store Store) error {
	log := logging.Component("seed")
	rng := rand.New(rand.NewSource(42))

	for i := 1; i <= demoOwners; i++ {
		owner := DemoOwner(i)
		existing, err := store.CountTitles(ctx, owner)
		if err != nil {
			return fmt.Errorf("check %s: %w", owner, err)
		}
		if existing > 0 {
			log.Debug().Str("owner", owner).Int("titles", existing).Msg("already seeded, skipping")
			continue
		}
		if err := seedOwner(ctx, store, rng, owner); err != nil {
			return fmt.Errorf("seed %s: %w", owner, err)
		}
		log.Info().Str("owner", owner).Msg("seeded demo owner")
	}
	return nil
}

func seedOwner(ctx context.Context, store Store, rng *rand.Rand, owner string) error {
	picked := map[string]bool{}
	var liked []string
	want := 1 + rng.Intn(maxGenresPerOne)
	for len(liked) < want {
		g := weightedChoice(rng, genres, genreWeights)
		if picked[g] {
			continue
		}
		picked[g] = true
		liked = append(liked, g)
	}

	var favourites []string
	for range titlesPerOwner {
		list := titles[liked[rng.Intn(len(liked))]]
		favourites = append(favourites, list[rng.Intn(len(list))])
	}

	if err := store.AddGenres(ctx, owner, liked); err != nil {
		return fmt.Errorf("genres: %w", err)
	}
	if err := store.AddTitles(ctx, owner, favourites); err != nil {
		return fmt.Errorf("titles: %w", err)
	}

	batchID := uuid.NewString()
	generatedAt := time.Now().UTC().AddDate(0, 0, -rng.Intn(30))
	recs := make([]domain.Recommendation, 0, recsPerOwner)
	for range recsPerOwner {
		g := liked[rng.Intn(len(liked))]
		list := titles[g]
		recs = append(recs, domain.Recommendation{
			Owner:       owner,
			BatchID:     batchID,
			Title:       list[rng.Intn(len(list))],
			Genre:       g,
			Rating:      rating(rng),
			ReleaseDate: time.Date(1970+rng.Intn(55), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC).Format(time.DateOnly),
			GeneratedAt: generatedAt,
		})
	}
	if err := store.AppendRecommendations(ctx, owner, recs); err != nil {
		return fmt.Errorf("recommendations: %w", err)
	}
	return nil
}

// rating skews towards well-rated titles: 5.0 to 9.5, rounded to one decimal.
func rating(rng *rand.Rand) float64 {
	return math.Round((9.5-powerLawScore(rng)*4.5)*10) / 10
}

func powerLawScore(rng *rand.Rand) float64 {
	u := rng.Float64()
	if u == 0 {
		u = 0.001
	}
	raw := math.Pow(u, 2.0)
	if raw < 0.01 {
		raw = 0.01
	}
	return math.Round(raw*100) / 100
}

func weightedChoice(rng *rand.Rand, choices []string, weights []float64) string {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return choices[i]
		}
	}
	return choices[len(choices)-1]
}
