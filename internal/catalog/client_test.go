package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/flick-found/internal/domain"
)

const upcomingBody = `{"page":1,"results":[
	{"title":"Rocket Heist","release_date":"2026-11-01","vote_average":7.1,"genre_ids":[28,12],"poster_path":"/rocket.jpg"},
	{"title":"Quiet House","release_date":"2026-11-08","vote_average":6.4,"genre_ids":[27],"poster_path":null}
]}`

func testClient(url string) *Client {
	return NewClient(Config{
		APIKey:     "tmdb-key",
		BaseURL:    url,
		RetryDelay: time.Millisecond,
	})
}

func TestUpcomingDecodesInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/upcoming", r.URL.Path)
		assert.Equal(t, "tmdb-key", r.URL.Query().Get("api_key"))
		assert.Equal(t, "en-US", r.URL.Query().Get("language"))
		_, _ = w.Write([]byte(upcomingBody))
	}))
	defer srv.Close()

	items, err := testClient(srv.URL).Upcoming(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Rocket Heist", items[0].Title)
	assert.Equal(t, []int{28, 12}, items[0].GenreIDs)
	assert.InDelta(t, 7.1, items[0].Rating, 1e-9)
	assert.Equal(t, "/rocket.jpg", items[0].PosterPath)
	assert.Equal(t, "Quiet House", items[1].Title)
	assert.Empty(t, items[1].PosterPath)
}

func TestUpcomingServerErrorRetriedThenUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Upcoming(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestUpcomingClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status_message":"Invalid API key"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Upcoming(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestUpcomingRecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(upcomingBody))
	}))
	defer srv.Close()

	items, err := testClient(srv.URL).Upcoming(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for range 5 {
		_, err := c.Upcoming(context.Background())
		require.Error(t, err)
	}
	before := calls.Load()

	_, err := c.Upcoming(context.Background())
	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	assert.Equal(t, before, calls.Load(), "open breaker must not reach the server")
}

func TestPosterURLCachesResults(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/search/movie", r.URL.Path)
		switch r.URL.Query().Get("query") {
		case "Inception":
			_, _ = w.Write([]byte(`{"results":[{"title":"Inception","poster_path":"/inc.jpg"}]}`))
		default:
			_, _ = w.Write([]byte(`{"results":[]}`))
		}
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	u, err := c.PosterURL(context.Background(), "Inception")
	require.NoError(t, err)
	assert.Equal(t, DefaultImageBaseURL+"/inc.jpg", u)

	u, err = c.PosterURL(context.Background(), "inception ")
	require.NoError(t, err)
	assert.Equal(t, DefaultImageBaseURL+"/inc.jpg", u)

	u, err = c.PosterURL(context.Background(), "Nothing Like It")
	require.NoError(t, err)
	assert.Empty(t, u)
	_, _ = c.PosterURL(context.Background(), "Nothing Like It")

	assert.Equal(t, int32(2), calls.Load())
}

func TestImageURL(t *testing.T) {
	assert.Equal(t, "https://img/w500/a.jpg", ImageURL("https://img/w500/", "/a.jpg"))
	assert.Equal(t, "https://img/w500/a.jpg", ImageURL("https://img/w500", "a.jpg"))
	assert.Empty(t, ImageURL("https://img/w500", ""))
}

func TestTransportErrorDoesNotExposeKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closedURL := srv.URL
	srv.Close()

	c := NewClient(Config{
		APIKey:      "SECRET-TMDB-KEY",
		BaseURL:     closedURL,
		MaxAttempts: 1,
		RetryDelay:  time.Millisecond,
	})

	_, err := c.Upcoming(context.Background())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-TMDB-KEY")
	assert.Contains(t, err.Error(), "/movie/upcoming")

	_, err = c.PosterURL(context.Background(), "Heat")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-TMDB-KEY")
}

func TestRedactURLKeepsPathDropsQuery(t *testing.T) {
	err := redactURL(&url.Error{Op: "Get", URL: "http://example.test/search/movie?api_key=k&query=Heat", Err: errors.New("refused")})
	assert.Equal(t, `Get "http://example.test/search/movie": refused`, err.Error())

	plain := errors.New("other")
	assert.Same(t, plain, redactURL(plain))
}
