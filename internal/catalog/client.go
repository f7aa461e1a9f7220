// Package catalog reads the external movie catalog: the upcoming-release
// feed used for reconciliation and poster search by title.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/logging"
	"github.com/actuallystonmai/flick-found/internal/metrics"
)

const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"
	breakerName         = "catalog-api"
)

// Item is one entry of the upcoming feed. Items are never cached.
type Item struct {
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	Rating      float64 `json:"vote_average"`
	GenreIDs    []int   `json:"genre_ids"`
	PosterPath  string  `json:"poster_path"`
}

type listResponse struct {
	Results []Item `json:"results"`
}

type Config struct {
	APIKey         string
	BaseURL        string
	ImageBaseURL   string
	Language       string
	Region         string
	RequestTimeout time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
	RPS            float64
	Burst          int
	PosterCacheTTL time.Duration
	PosterCacheMax int
	HTTPClient     *http.Client
}

// StatusError is a non-200 reply from the catalog.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return domain.ErrCatalogUnavailable }

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]Item]
	posters *expirable.LRU[string, string]
	log     zerolog.Logger
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.ImageBaseURL == "" {
		cfg.ImageBaseURL = DefaultImageBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.PosterCacheTTL <= 0 {
		cfg.PosterCacheTTL = 24 * time.Hour
	}
	if cfg.PosterCacheMax <= 0 {
		cfg.PosterCacheMax = 1024
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		posters: expirable.NewLRU[string, string](cfg.PosterCacheMax, nil, cfg.PosterCacheTTL),
		log:     logging.Component("catalog"),
	}
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	c.cb = gobreaker.NewCircuitBreaker[[]Item](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Context cancellation is the caller giving up, not the catalog failing.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Info().Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return c
}

// ImageBaseURL is the CDN prefix poster paths are appended to.
func (c *Client) ImageBaseURL() string { return c.cfg.ImageBaseURL }

// Upcoming fetches the current upcoming feed in the order the catalog returns it.
func (c *Client) Upcoming(ctx context.Context) ([]Item, error) {
	items, err := c.cb.Execute(func() ([]Item, error) {
		return c.fetchUpcoming(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordCatalogFetch("breaker_open")
			return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
		}
		return nil, err
	}
	metrics.RecordCatalogFetch("success")
	return items, nil
}

func (c *Client) fetchUpcoming(ctx context.Context) ([]Item, error) {
	q := url.Values{}
	q.Set("language", c.cfg.Language)
	q.Set("page", "1")
	if c.cfg.Region != "" {
		q.Set("region", c.cfg.Region)
	}

	var last error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		var resp listResponse
		err := c.get(ctx, "/movie/upcoming", q, &resp)
		if err == nil {
			return resp.Results, nil
		}
		last = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var se *StatusError
		if errors.As(err, &se) {
			metrics.RecordCatalogFetch("status")
			if !se.retryable() {
				break
			}
		} else {
			metrics.RecordCatalogFetch("transport")
		}
		c.log.Warn().Err(err).Int("attempt", attempt).Msg("upcoming fetch failed")

		if attempt < c.cfg.MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.RetryDelay * time.Duration(1<<(attempt-1))):
			}
		}
	}
	if errors.Is(last, domain.ErrCatalogUnavailable) {
		return nil, last
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, last)
}

// PosterURL searches the catalog by title and returns the first hit's poster
// URL, or "" when there is none. Results, including misses, are cached.
func (c *Client) PosterURL(ctx context.Context, title string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(title))
	if key == "" {
		return "", nil
	}
	if u, ok := c.posters.Get(key); ok {
		return u, nil
	}

	q := url.Values{}
	q.Set("query", title)
	q.Set("language", c.cfg.Language)
	var resp listResponse
	if err := c.get(ctx, "/search/movie", q, &resp); err != nil {
		return "", fmt.Errorf("search poster %q: %w", title, err)
	}

	u := ""
	if len(resp.Results) > 0 {
		u = ImageURL(c.cfg.ImageBaseURL, resp.Results[0].PosterPath)
	}
	c.posters.Add(key, u)
	return u, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	q.Set("api_key", c.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", redactURL(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, redactURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// redactURL drops the query string, which carries the api key, from a
// *url.Error so the key never reaches logs or callers.
func redactURL(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	if u, perr := url.Parse(ue.URL); perr == nil {
		u.RawQuery = ""
		ue.URL = u.String()
	} else {
		ue.URL = "[redacted]"
	}
	return err
}

// ImageURL joins the CDN prefix and a poster path. Empty path gives "".
func ImageURL(base, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
