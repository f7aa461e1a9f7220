package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/genre"
)

// Generate turns a submission into a stored batch of recommendations. The
// batch and the submitted titles and genres are written in one transaction
// under the configured policy, so a failed write leaves nothing behind.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) ([]domain.Recommendation, error) {
	req = req.trimmed()
	if err := s.validator.validate(req); err != nil {
		return nil, err
	}

	p, err := s.prompts.Build(req.Titles, req.Genres, req.Feedback)
	if err != nil {
		return nil, err
	}

	recs, err := s.generator.Generate(ctx, p)
	if err != nil {
		s.log.Warn().Err(err).Str("owner", req.Owner).Msg("generation failed")
		return nil, err
	}

	batchID := uuid.NewString()
	generatedAt := s.now().UTC()
	for i := range recs {
		recs[i].Owner = req.Owner
		recs[i].BatchID = batchID
		recs[i].GeneratedAt = generatedAt
		recs[i].PosterURL = ""
	}

	batch := domain.Batch{
		Recommendations: recs,
		Titles:          distinctFold(req.Titles),
		Genres:          distinctGenres(req.Genres),
		Policy:          s.cfg.Policy,
	}
	if err := s.store.SaveBatch(ctx, req.Owner, batch); err != nil {
		s.log.Error().Err(err).Str("owner", req.Owner).Msg("persist recommendations")
		return nil, fmt.Errorf("store recommendations: %w", err)
	}
	s.invalidate(ctx, req.Owner)

	s.log.Info().Str("owner", req.Owner).Str("batch_id", batchID).Int("count", len(recs)).
		Str("policy", string(s.cfg.Policy)).Msg("recommendations stored")
	return recs, nil
}

// invalidate drops cached reads after a write. Failures only log; entries expire on their own.
func (s *Service) invalidate(ctx context.Context, owner string) {
	if err := s.cache.ClearUserCache(ctx, owner); err != nil {
		s.log.Warn().Err(err).Str("owner", owner).Msg("cache invalidation failed")
	}
}

// distinctFold keeps the first spelling of each case-insensitively distinct value.
func distinctFold(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// distinctGenres collapses spellings that share a canonical token, so
// "Sci-Fi" and "scifi" in one request record a single row.
func distinctGenres(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := genre.Token(v)
		if key == "" {
			key = strings.ToLower(v)
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
