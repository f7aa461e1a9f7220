// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/flick-found/internal/domain"
)

// Store is the full persistence surface a backend must provide.
type Store interface {
	AppendRecommendations(ctx context.Context, owner string, recs []domain.Recommendation) error
	ReplaceRecommendations(ctx context.Context, owner string, recs []domain.Recommendation) error
	RecentRecommendations(ctx context.Context, owner string, limit int) ([]domain.Recommendation, error)
	AddGenres(ctx context.Context, owner string, genres []string) error
	AddTitles(ctx context.Context, owner string, titles []string) error
	CountGenres(ctx context.Context, owner string) (int, error)
	CountTitles(ctx context.Context, owner string) (int, error)
	ListGenres(ctx context.Context, owner string) ([]string, error)
	SaveBatch(ctx context.Context, owner string, b domain.Batch) error
}

// Run exercises a backend. newStore must return an empty store each call.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("EmptyReadReturnsEmptySlice", func(t *testing.T) { testEmptyRead(t, newStore(t)) })
	t.Run("AppendKeepsHistoryNewestFirst", func(t *testing.T) { testAppend(t, newStore(t)) })
	t.Run("BatchRowsComeBackReversed", func(t *testing.T) { testBatchOrder(t, newStore(t)) })
	t.Run("ReplaceDropsEarlierRows", func(t *testing.T) { testReplace(t, newStore(t)) })
	t.Run("LimitCapsRows", func(t *testing.T) { testLimit(t, newStore(t)) })
	t.Run("OwnersAreIsolated", func(t *testing.T) { testOwners(t, newStore(t)) })
	t.Run("FieldsRoundTrip", func(t *testing.T) { testFields(t, newStore(t)) })
	t.Run("GenresAreLowercasedAndCounted", func(t *testing.T) { testGenres(t, newStore(t)) })
	t.Run("TitlesAreCounted", func(t *testing.T) { testTitles(t, newStore(t)) })
	t.Run("SaveBatchWritesEverything", func(t *testing.T) { testSaveBatch(t, newStore(t)) })
	t.Run("SaveBatchReplacePolicy", func(t *testing.T) { testSaveBatchReplace(t, newStore(t)) })
}

func rec(title string, at time.Time) domain.Recommendation {
	return domain.Recommendation{
		BatchID:     "batch-" + title,
		Title:       title,
		Genre:       "Drama",
		Rating:      7.5,
		ReleaseDate: "2001-01-01",
		GeneratedAt: at,
	}
}

func titles(recs []domain.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

func base() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func testEmptyRead(t *testing.T, s Store) {
	got, err := s.RecentRecommendations(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func testAppend(t *testing.T, s Store) {
	ctx := context.Background()
	t0 := base()
	require.NoError(t, s.AppendRecommendations(ctx, "alice", []domain.Recommendation{rec("r1", t0)}))
	require.NoError(t, s.AppendRecommendations(ctx, "alice", []domain.Recommendation{rec("r2", t0.Add(time.Second))}))

	got, err := s.RecentRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, titles(got))
}

func testBatchOrder(t *testing.T, s Store) {
	ctx := context.Background()
	t0 := base()
	require.NoError(t, s.AppendRecommendations(ctx, "alice", []domain.Recommendation{
		rec("r1", t0), rec("r2", t0), rec("r3", t0),
	}))

	got, err := s.RecentRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2", "r1"}, titles(got))
}

func testReplace(t *testing.T, s Store) {
	ctx := context.Background()
	t0 := base()
	require.NoError(t, s.AppendRecommendations(ctx, "alice", []domain.Recommendation{rec("old", t0)}))
	require.NoError(t, s.ReplaceRecommendations(ctx, "alice", []domain.Recommendation{rec("new", t0.Add(time.Second))}))

	got, err := s.RecentRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, titles(got))
}

func testLimit(t *testing.T, s Store) {
	ctx := context.Background()
	t0 := base()
	var batch []domain.Recommendation
	for i, title := range []string{"a", "b", "c", "d", "e"} {
		batch = append(batch, rec(title, t0.Add(time.Duration(i)*time.Second)))
	}
	require.NoError(t, s.AppendRecommendations(ctx, "alice", batch))

	got, err := s.RecentRecommendations(ctx, "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "d"}, titles(got))
}

func testOwners(t *testing.T, s Store) {
	ctx := context.Background()
	t0 := base()
	require.NoError(t, s.AppendRecommendations(ctx, "alice", []domain.Recommendation{rec("mine", t0)}))
	require.NoError(t, s.AddGenres(ctx, "alice", []string{"action"}))

	got, err := s.RecentRecommendations(ctx, "bob", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := s.CountGenres(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testFields(t *testing.T, s Store) {
	ctx := context.Background()
	at := base()
	in := domain.Recommendation{
		BatchID:     "b-1",
		Title:       `The "Quoted" Movie`,
		Genre:       "Action, Comedy",
		Rating:      8.3,
		ReleaseDate: "1999-03-31",
		GeneratedAt: at,
	}
	require.NoError(t, s.AppendRecommendations(ctx, "alice", []domain.Recommendation{in}))

	got, err := s.RecentRecommendations(ctx, "alice", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	out := got[0]
	assert.NotZero(t, out.ID)
	assert.Equal(t, "alice", out.Owner)
	assert.Equal(t, in.BatchID, out.BatchID)
	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.Genre, out.Genre)
	assert.InDelta(t, in.Rating, out.Rating, 1e-9)
	assert.Equal(t, in.ReleaseDate, out.ReleaseDate)
	assert.WithinDuration(t, at, out.GeneratedAt, time.Millisecond)
	assert.Empty(t, out.PosterURL)
}

func testGenres(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.AddGenres(ctx, "alice", []string{"  Action ", "HORROR", ""}))
	require.NoError(t, s.AddGenres(ctx, "alice", []string{"action"}))

	n, err := s.CountGenres(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	genres, err := s.ListGenres(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"action", "horror", "action"}, genres)
}

func testTitles(t *testing.T, s Store) {
	ctx := context.Background()
	require.NoError(t, s.AddTitles(ctx, "alice", []string{"Inception", " Heat ", " "}))

	n, err := s.CountTitles(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountTitles(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testSaveBatch(t *testing.T, s Store) {
	ctx := context.Background()
	t0 := base()
	require.NoError(t, s.SaveBatch(ctx, "alice", domain.Batch{
		Recommendations: []domain.Recommendation{rec("r1", t0)},
		Titles:          []string{"Heat"},
		Genres:          []string{"Crime"},
		Policy:          domain.PolicyAppend,
	}))
	require.NoError(t, s.SaveBatch(ctx, "alice", domain.Batch{
		Recommendations: []domain.Recommendation{rec("r2", t0.Add(time.Second))},
		Titles:          []string{"Alien"},
		Genres:          []string{"Horror"},
		Policy:          domain.PolicyAppend,
	}))

	got, err := s.RecentRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, titles(got))

	n, err := s.CountTitles(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	genres, err := s.ListGenres(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"crime", "horror"}, genres)
}

func testSaveBatchReplace(t *testing.T, s Store) {
	ctx := context.Background()
	t0 := base()
	require.NoError(t, s.AppendRecommendations(ctx, "alice", []domain.Recommendation{rec("old", t0)}))
	require.NoError(t, s.AddTitles(ctx, "alice", []string{"Heat"}))

	require.NoError(t, s.SaveBatch(ctx, "alice", domain.Batch{
		Recommendations: []domain.Recommendation{rec("new", t0.Add(time.Second))},
		Titles:          []string{"Alien"},
		Policy:          domain.PolicyReplace,
	}))

	got, err := s.RecentRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, titles(got))

	n, err := s.CountTitles(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "preferences accumulate under either policy")
}
