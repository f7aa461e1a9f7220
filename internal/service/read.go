package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/genre"
	"github.com/actuallystonmai/flick-found/internal/metrics"
)

const posterConcurrency = 5

// Recent returns the owner's newest recommendations. genreFilter, when set,
// keeps only records whose genre shares a canonical token with it.
func (s *Service) Recent(ctx context.Context, owner string, limit int, genreFilter string) (*domain.RecommendationResult, error) {
	owner, err := checkOwner(owner)
	if err != nil {
		return nil, err
	}
	limit = s.clampLimit(limit)

	recs, hit, err := s.recent(ctx, owner, limit)
	if err != nil {
		return nil, err
	}
	if f := strings.TrimSpace(genreFilter); f != "" {
		recs = filterByGenre(recs, f)
	}
	s.attachPosters(ctx, recs)

	return &domain.RecommendationResult{
		Recommendations: recs,
		CacheHit:        hit,
	}, nil
}

// recent is the cache-aside read. Cache errors fall through to the store.
func (s *Service) recent(ctx context.Context, owner string, limit int) ([]domain.Recommendation, bool, error) {
	cached, found, err := s.cache.Get(ctx, owner, limit)
	if err != nil {
		metrics.RecordCacheLookup("error")
		s.log.Warn().Err(err).Str("owner", owner).Msg("cache get failed")
	}
	if found {
		metrics.RecordCacheLookup("hit")
		return cached, true, nil
	}
	if err == nil {
		metrics.RecordCacheLookup("miss")
	}

	recs, err := s.store.RecentRecommendations(ctx, owner, limit)
	if err != nil {
		return nil, false, fmt.Errorf("read recommendations: %w", err)
	}
	if err := s.cache.Set(ctx, owner, limit, recs); err != nil {
		s.log.Warn().Err(err).Str("owner", owner).Msg("cache set failed")
	}
	return recs, false, nil
}

func filterByGenre(recs []domain.Recommendation, filter string) []domain.Recommendation {
	want := genre.TokenSet([]string{filter})
	out := make([]domain.Recommendation, 0, len(recs))
	if len(want) == 0 {
		return out
	}
	for _, rec := range recs {
		if genre.Intersects(genre.TokenSet(strings.Split(rec.Genre, ",")), want) {
			out = append(out, rec)
		}
	}
	return out
}

// attachPosters fills PosterURL in place with a bounded number of lookups in
// flight. Lookup failures leave the URL empty.
func (s *Service) attachPosters(ctx context.Context, recs []domain.Recommendation) {
	if s.posters == nil || len(recs) == 0 {
		return
	}
	var wg sync.WaitGroup
	sem := make(chan struct{}, posterConcurrency)
	for i := range recs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			url, err := s.posters.PosterURL(ctx, recs[idx].Title)
			if err != nil {
				s.log.Debug().Err(err).Str("title", recs[idx].Title).Msg("poster lookup failed")
				return
			}
			recs[idx].PosterURL = url
		}(i)
	}
	wg.Wait()
}

// Upcoming returns upcoming releases that match the owner's stored genres.
func (s *Service) Upcoming(ctx context.Context, owner string) ([]domain.UpcomingMatch, error) {
	owner, err := checkOwner(owner)
	if err != nil {
		return nil, err
	}
	if s.matcher == nil {
		return []domain.UpcomingMatch{}, nil
	}
	return s.matcher.Match(ctx, owner)
}

// Preferences reports stored preference counts and the distinct genres.
func (s *Service) Preferences(ctx context.Context, owner string) (*domain.PreferenceSummary, error) {
	owner, err := checkOwner(owner)
	if err != nil {
		return nil, err
	}
	genreCount, err := s.store.CountGenres(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("count genres: %w", err)
	}
	titleCount, err := s.store.CountTitles(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("count titles: %w", err)
	}
	genres, err := s.store.ListGenres(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}

	return &domain.PreferenceSummary{
		Owner:      owner,
		GenreCount: genreCount,
		TitleCount: titleCount,
		Genres:     distinctFold(genres),
		FirstTime:  genreCount == 0 && titleCount == 0,
	}, nil
}

// Dashboard reads recent recommendations and upcoming matches side by side.
func (s *Service) Dashboard(ctx context.Context, owner string, limit int) (*domain.Dashboard, error) {
	owner, err := checkOwner(owner)
	if err != nil {
		return nil, err
	}

	var (
		wg                     sync.WaitGroup
		recent                 *domain.RecommendationResult
		upcoming               []domain.UpcomingMatch
		recentErr, upcomingErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		recent, recentErr = s.Recent(ctx, owner, limit, "")
	}()
	go func() {
		defer wg.Done()
		upcoming, upcomingErr = s.Upcoming(ctx, owner)
	}()
	wg.Wait()

	if err := errors.Join(recentErr, upcomingErr); err != nil {
		return nil, err
	}
	return &domain.Dashboard{
		Owner:           owner,
		Recommendations: recent.Recommendations,
		Upcoming:        upcoming,
	}, nil
}

func checkOwner(owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", domain.NewInputError("owner is required")
	}
	return owner, nil
}
