package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/flick-found/internal/cache"
	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/model"
	"github.com/actuallystonmai/flick-found/internal/prompt"
	"github.com/actuallystonmai/flick-found/internal/repository/sqlite"
)

type fakeGenerator struct {
	mu    sync.Mutex
	recs  []domain.Recommendation
	err   error
	calls int
	last  prompt.Prompt
}

func (f *fakeGenerator) Generate(_ context.Context, p prompt.Prompt) ([]domain.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = p
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Recommendation(nil), f.recs...), nil
}

type fakeMatcher struct {
	matches []domain.UpcomingMatch
	err     error
}

func (f *fakeMatcher) Match(context.Context, string) ([]domain.UpcomingMatch, error) {
	return f.matches, f.err
}

type fakePosters struct{}

func (fakePosters) PosterURL(_ context.Context, title string) (string, error) {
	if strings.HasPrefix(title, "Missing") {
		return "", errors.New("catalog down")
	}
	return "https://img.test/" + title + ".jpg", nil
}

func makeRecs(n int, prefix, genre string) []domain.Recommendation {
	recs := make([]domain.Recommendation, n)
	for i := range recs {
		recs[i] = domain.Recommendation{
			Title:       fmt.Sprintf("%s %d", prefix, i+1),
			Genre:       genre,
			Rating:      7,
			ReleaseDate: "2010-01-01",
		}
	}
	return recs
}

func titlesOf(recs []domain.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Title
	}
	return out
}

type fixture struct {
	svc   *Service
	store *sqlite.Store
	gen   *fakeGenerator
	clock time.Time
}

func newFixture(t *testing.T, cfg Config, opts ...Option) *fixture {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store: store,
		gen:   &fakeGenerator{recs: makeRecs(10, "Movie", "Drama")},
		clock: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	opts = append([]Option{WithClock(func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	})}, opts...)
	f.svc = NewService(store, cache.NewMemory(64, time.Minute), prompt.NewBuilder(10), f.gen,
		&fakeMatcher{matches: []domain.UpcomingMatch{}}, cfg, opts...)
	return f
}

func validRequest() GenerateRequest {
	return GenerateRequest{
		Owner:  "alice",
		Titles: []string{"Inception", "Heat"},
		Genres: []string{"Action", "Sci-Fi"},
	}
}

func TestGenerateStoresBatch(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	recs, err := f.svc.Generate(ctx, validRequest())
	require.NoError(t, err)
	require.Len(t, recs, 10)

	batchID := recs[0].BatchID
	assert.NotEmpty(t, batchID)
	for _, r := range recs {
		assert.Equal(t, "alice", r.Owner)
		assert.Equal(t, batchID, r.BatchID)
		assert.Equal(t, recs[0].GeneratedAt, r.GeneratedAt)
	}

	res, err := f.svc.Recent(ctx, "alice", 10, "")
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 10)
	assert.Equal(t, "Movie 10", res.Recommendations[0].Title)
	assert.Equal(t, "Movie 1", res.Recommendations[9].Title)
}

func TestGenerateFullPipelineRetriesMalformedReply(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	items := make([]string, 10)
	for i := range items {
		items[i] = fmt.Sprintf(`{"title":"Pick %d","genres":["Action","Thriller"],"rating":"8.%d/10","release date":"199%d-02-03"}`, i+1, i, i)
	}
	backend := &scriptedBackend{replies: []string{
		`{"recommendations": [{"title": "Broken"`,
		"```json\n{\"recommendations\": [" + strings.Join(items, ",") + "]}\n```",
	}}
	client := model.NewClient(backend, model.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})
	svc := NewService(store, nil, prompt.NewBuilder(10), client, nil, Config{})

	recs, err := svc.Generate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls)
	require.Len(t, recs, 10)
	assert.Equal(t, "Pick 1", recs[0].Title)
	assert.Equal(t, "Action, Thriller", recs[0].Genre)
	assert.InDelta(t, 8.0, recs[0].Rating, 1e-9)
	assert.Equal(t, "1990-02-03", recs[0].ReleaseDate)

	stored, err := store.RecentRecommendations(context.Background(), "alice", 50)
	require.NoError(t, err)
	assert.Len(t, stored, 10)
}

type scriptedBackend struct {
	replies []string
	calls   int
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Complete(context.Context, string, string) (string, error) {
	reply := b.replies[min(b.calls, len(b.replies)-1)]
	b.calls++
	return reply, nil
}

func TestGenerateRecordsDistinctPreferences(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	req := GenerateRequest{
		Owner:  " alice ",
		Titles: []string{"Heat", " heat", "Alien"},
		Genres: []string{"Sci-Fi", "scifi", " Action ", "action"},
	}
	_, err := f.svc.Generate(ctx, req)
	require.NoError(t, err)

	summary, err := f.svc.Preferences(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TitleCount)
	assert.Equal(t, 2, summary.GenreCount)
	assert.Equal(t, []string{"sci-fi", "action"}, summary.Genres)
	assert.False(t, summary.FirstTime)

	_, err = f.svc.Generate(ctx, GenerateRequest{Owner: "alice", Titles: []string{"Heat"}, Genres: []string{"action"}})
	require.NoError(t, err)
	summary, err = f.svc.Preferences(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.GenreCount, "rows accumulate across requests")
	assert.Equal(t, []string{"sci-fi", "action"}, summary.Genres, "reads de-duplicate")
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		req   GenerateRequest
		field string
	}{
		{"missing owner", GenerateRequest{Owner: "  ", Titles: []string{"Heat"}}, "owner"},
		{"no titles", GenerateRequest{Owner: "alice"}, "titles"},
		{"too many titles", GenerateRequest{Owner: "alice", Titles: []string{"a", "b", "c", "d", "e", "f"}}, "titles"},
		{"blank title", GenerateRequest{Owner: "alice", Titles: []string{"Heat", "  "}}, "titles[1]"},
		{"blank genre", GenerateRequest{Owner: "alice", Titles: []string{"Heat"}, Genres: []string{""}}, "genres[0]"},
		{"long feedback", GenerateRequest{Owner: "alice", Titles: []string{"Heat"}, Feedback: strings.Repeat("x", 2001)}, "feedback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			_, err := f.svc.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))

			var inputErr *domain.InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Contains(t, inputErr.Fields, tt.field)
			assert.Zero(t, f.gen.calls, "generation must not run for invalid input")
		})
	}
}

func TestGeneratePassesFeedbackToPrompt(t *testing.T) {
	f := newFixture(t, Config{})
	req := validRequest()
	req.Feedback = "  fewer sequels  "
	_, err := f.svc.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, f.gen.last.System, "Use this feedback in your response: fewer sequels.")
	assert.Contains(t, f.gen.last.System, `"Inception"`)
}

func TestGenerateFailureStoresNothing(t *testing.T) {
	f := newFixture(t, Config{})
	f.gen.err = &model.ExhaustedError{Attempts: 5, Last: errors.New("bad json")}
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, validRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrGenerationExhausted))

	res, err := f.svc.Recent(ctx, "alice", 10, "")
	require.NoError(t, err)
	assert.Empty(t, res.Recommendations)

	summary, err := f.svc.Preferences(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, summary.FirstTime)
}

func TestGeneratePersistenceFailure(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.store.Close())

	_, err := f.svc.Generate(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersistenceFailed))
}

// flakyStore fails the first SaveBatch and delegates afterwards.
type flakyStore struct {
	*sqlite.Store
	failed bool
}

func (s *flakyStore) SaveBatch(ctx context.Context, owner string, b domain.Batch) error {
	if !s.failed {
		s.failed = true
		return fmt.Errorf("save batch: %w", domain.ErrPersistenceFailed)
	}
	return s.Store.SaveBatch(ctx, owner, b)
}

func TestGenerateRetryAfterPersistenceFailureStoresOneBatch(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	flaky := &flakyStore{Store: store}
	gen := &fakeGenerator{recs: makeRecs(10, "Movie", "Drama")}
	svc := NewService(flaky, nil, prompt.NewBuilder(10), gen, nil, Config{Policy: domain.PolicyAppend})
	ctx := context.Background()

	_, err = svc.Generate(ctx, validRequest())
	require.ErrorIs(t, err, domain.ErrPersistenceFailed)

	summary, err := svc.Preferences(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, summary.FirstTime, "a failed write leaves no preferences")

	_, err = svc.Generate(ctx, validRequest())
	require.NoError(t, err)

	stored, err := store.RecentRecommendations(ctx, "alice", 50)
	require.NoError(t, err)
	assert.Len(t, stored, 10)

	summary, err = svc.Preferences(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TitleCount)
	assert.Equal(t, 2, summary.GenreCount)
}

func TestAppendPolicyKeepsHistory(t *testing.T) {
	f := newFixture(t, Config{Policy: domain.PolicyAppend})
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, validRequest())
	require.NoError(t, err)
	f.gen.recs = makeRecs(10, "Second", "Drama")
	req := validRequest()
	req.Feedback = "more like Second"
	_, err = f.svc.Generate(ctx, req)
	require.NoError(t, err)

	res, err := f.svc.Recent(ctx, "alice", 50, "")
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 20)
	assert.Equal(t, "Second 10", res.Recommendations[0].Title)
	assert.Equal(t, "Movie 1", res.Recommendations[19].Title)
}

func TestReplacePolicyKeepsLatestBatch(t *testing.T) {
	f := newFixture(t, Config{Policy: domain.PolicyReplace})
	ctx := context.Background()
	assert.Equal(t, domain.PolicyReplace, f.svc.Policy())

	_, err := f.svc.Generate(ctx, validRequest())
	require.NoError(t, err)
	f.gen.recs = makeRecs(3, "Second", "Drama")
	_, err = f.svc.Generate(ctx, validRequest())
	require.NoError(t, err)

	res, err := f.svc.Recent(ctx, "alice", 50, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Second 3", "Second 2", "Second 1"}, titlesOf(res.Recommendations))
}

func TestInvalidPolicyFallsBackToAppend(t *testing.T) {
	f := newFixture(t, Config{Policy: "sometimes"})
	assert.Equal(t, domain.PolicyAppend, f.svc.Policy())
}

func TestRecentCacheInvalidatedOnWrite(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	res, err := f.svc.Recent(ctx, "alice", 5, "")
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Empty(t, res.Recommendations)

	res, err = f.svc.Recent(ctx, "alice", 5, "")
	require.NoError(t, err)
	assert.True(t, res.CacheHit)

	_, err = f.svc.Generate(ctx, validRequest())
	require.NoError(t, err)

	res, err = f.svc.Recent(ctx, "alice", 5, "")
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Len(t, res.Recommendations, 5)
}

func TestRecentClampsLimit(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.gen.recs = makeRecs(30, "Movie", "Drama")
	for range 2 {
		_, err := f.svc.Generate(ctx, validRequest())
		require.NoError(t, err)
	}

	res, err := f.svc.Recent(ctx, "alice", 0, "")
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, 10)

	res, err = f.svc.Recent(ctx, "alice", 500, "")
	require.NoError(t, err)
	assert.Len(t, res.Recommendations, 50)
}

func TestRecentGenreFilter(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.gen.recs = []domain.Recommendation{
		{Title: "Alien", Genre: "Horror, Science Fiction", Rating: 8.5, ReleaseDate: "1979-05-25"},
		{Title: "Heat", Genre: "Crime, Thriller", Rating: 8.3, ReleaseDate: "1995-12-15"},
		{Title: "Arrival", Genre: "Sci-Fi", Rating: 7.9, ReleaseDate: "2016-11-11"},
	}
	_, err := f.svc.Generate(ctx, validRequest())
	require.NoError(t, err)

	res, err := f.svc.Recent(ctx, "alice", 10, "scifi")
	require.NoError(t, err)
	assert.Equal(t, []string{"Arrival", "Alien"}, titlesOf(res.Recommendations))

	res, err = f.svc.Recent(ctx, "alice", 10, "western")
	require.NoError(t, err)
	assert.Empty(t, res.Recommendations)
}

func TestRecentAttachesPosters(t *testing.T) {
	f := newFixture(t, Config{}, WithPosters(fakePosters{}))
	ctx := context.Background()
	f.gen.recs = []domain.Recommendation{
		{Title: "Missing One", Genre: "Drama", Rating: 6, ReleaseDate: "2000-01-01"},
		{Title: "Heat", Genre: "Crime", Rating: 8.3, ReleaseDate: "1995-12-15"},
	}
	recs, err := f.svc.Generate(ctx, validRequest())
	require.NoError(t, err)
	for _, r := range recs {
		assert.Empty(t, r.PosterURL, "posters are not stored")
	}

	res, err := f.svc.Recent(ctx, "alice", 10, "")
	require.NoError(t, err)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, "https://img.test/Heat.jpg", res.Recommendations[0].PosterURL)
	assert.Empty(t, res.Recommendations[1].PosterURL)

	stored, err := f.store.RecentRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Empty(t, stored[0].PosterURL)
}

func TestRecentRequiresOwner(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.svc.Recent(context.Background(), " ", 10, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestPreferencesFirstTime(t *testing.T) {
	f := newFixture(t, Config{})
	summary, err := f.svc.Preferences(context.Background(), "newcomer")
	require.NoError(t, err)
	assert.True(t, summary.FirstTime)
	assert.Zero(t, summary.GenreCount)
	assert.Empty(t, summary.Genres)
}

func TestUpcomingWithoutMatcher(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()
	svc := NewService(store, nil, nil, &fakeGenerator{}, nil, Config{})

	got, err := svc.Upcoming(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	f.svc.matcher = &fakeMatcher{matches: []domain.UpcomingMatch{{Title: "Rocket", Genres: []string{"Action"}}}}
	_, err := f.svc.Generate(ctx, validRequest())
	require.NoError(t, err)

	dash, err := f.svc.Dashboard(ctx, "alice", 3)
	require.NoError(t, err)
	assert.Equal(t, "alice", dash.Owner)
	assert.Len(t, dash.Recommendations, 3)
	require.Len(t, dash.Upcoming, 1)
	assert.Equal(t, "Rocket", dash.Upcoming[0].Title)
}

func TestDashboardPropagatesErrors(t *testing.T) {
	f := newFixture(t, Config{})
	f.svc.matcher = &fakeMatcher{err: errors.New("preferences unreadable")}

	_, err := f.svc.Dashboard(context.Background(), "alice", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preferences unreadable")
}
