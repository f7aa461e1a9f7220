// Package service composes the generation pipeline, the stores and the
// upcoming-release matcher behind the operations the HTTP adapter calls.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/logging"
	"github.com/actuallystonmai/flick-found/internal/prompt"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

type RecommendationStore interface {
	AppendRecommendations(ctx context.Context, owner string, recs []domain.Recommendation) error
	ReplaceRecommendations(ctx context.Context, owner string, recs []domain.Recommendation) error
	RecentRecommendations(ctx context.Context, owner string, limit int) ([]domain.Recommendation, error)
}

type PreferenceStore interface {
	AddGenres(ctx context.Context, owner string, genres []string) error
	AddTitles(ctx context.Context, owner string, titles []string) error
	CountGenres(ctx context.Context, owner string) (int, error)
	CountTitles(ctx context.Context, owner string) (int, error)
	ListGenres(ctx context.Context, owner string) ([]string, error)
}

// Store adds SaveBatch, which writes a generated batch and its preferences
// atomically, to the two read/write surfaces.
type Store interface {
	RecommendationStore
	PreferenceStore
	SaveBatch(ctx context.Context, owner string, b domain.Batch) error
}

type Cache interface {
	Get(ctx context.Context, owner string, limit int) ([]domain.Recommendation, bool, error)
	Set(ctx context.Context, owner string, limit int, recs []domain.Recommendation) error
	ClearUserCache(ctx context.Context, owner string) error
}

// Generator runs the full model round trip, retries included.
type Generator interface {
	Generate(ctx context.Context, p prompt.Prompt) ([]domain.Recommendation, error)
}

type UpcomingMatcher interface {
	Match(ctx context.Context, owner string) ([]domain.UpcomingMatch, error)
}

// PosterResolver looks up a display poster by title. An empty URL means none was found.
type PosterResolver interface {
	PosterURL(ctx context.Context, title string) (string, error)
}

type Config struct {
	// Policy is fixed for the lifetime of the service. Default append.
	Policy       domain.Policy
	DefaultLimit int
	MaxLimit     int
}

type Option func(*Service)

// WithPosters attaches poster URLs to recommendations on read.
func WithPosters(p PosterResolver) Option {
	return func(s *Service) { s.posters = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	store     Store
	cache     Cache
	prompts   *prompt.Builder
	generator Generator
	matcher   UpcomingMatcher
	posters   PosterResolver
	validator *validator
	cfg       Config
	now       func() time.Time
	log       zerolog.Logger
}

func NewService(store Store, cache Cache, prompts *prompt.Builder, generator Generator, matcher UpcomingMatcher, cfg Config, opts ...Option) *Service {
	if !cfg.Policy.Valid() {
		cfg.Policy = domain.PolicyAppend
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = maxLimit
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = defaultLimit
	}
	cfg.DefaultLimit = min(cfg.DefaultLimit, cfg.MaxLimit)
	if cache == nil {
		cache = noopCache{}
	}
	if prompts == nil {
		prompts = prompt.NewBuilder(prompt.DefaultCount)
	}

	s := &Service{
		store:     store,
		cache:     cache,
		prompts:   prompts,
		generator: generator,
		matcher:   matcher,
		validator: newValidator(),
		cfg:       cfg,
		now:       time.Now,
		log:       logging.Component("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Policy() domain.Policy { return s.cfg.Policy }

func (s *Service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.cfg.DefaultLimit
	}
	return min(limit, s.cfg.MaxLimit)
}

type noopCache struct{}

func (noopCache) Get(context.Context, string, int) ([]domain.Recommendation, bool, error) {
	return nil, false, nil
}
func (noopCache) Set(context.Context, string, int, []domain.Recommendation) error { return nil }
func (noopCache) ClearUserCache(context.Context, string) error { return nil }
