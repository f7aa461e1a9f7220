package seeds

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/flick-found/internal/repository/sqlite"
)

func TestSetupSeedsOnce(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, Setup(ctx, store))
	for i := 1; i <= demoOwners; i++ {
		owner := DemoOwner(i)
		n, err := store.CountTitles(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, titlesPerOwner, n, owner)

		genres, err := store.ListGenres(ctx, owner)
		require.NoError(t, err)
		assert.NotEmpty(t, genres)

		recs, err := store.RecentRecommendations(ctx, owner, 50)
		require.NoError(t, err)
		assert.Len(t, recs, recsPerOwner)
		for _, r := range recs {
			assert.GreaterOrEqual(t, r.Rating, 5.0)
			assert.LessOrEqual(t, r.Rating, 9.5)
			assert.Len(t, r.ReleaseDate, len("2006-01-02"))
		}
	}

	require.NoError(t, Setup(ctx, store))
	n, err := store.CountTitles(ctx, DemoOwner(1))
	require.NoError(t, err)
	assert.Equal(t, titlesPerOwner, n, "second run must not duplicate")
}

func TestWeightedChoice(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	counts := map[string]int{}
	for range 1000 {
		counts[weightedChoice(rng, []string{"a", "b"}, []float64{0.9, 0.1})]++
	}
	assert.Greater(t, counts["a"], counts["b"])
}
