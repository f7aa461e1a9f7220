// Package upcoming reconciles an owner's stored genre preferences with the
// catalog's upcoming-release feed.
package upcoming

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/actuallystonmai/flick-found/internal/catalog"
	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/genre"
	"github.com/actuallystonmai/flick-found/internal/logging"
)

// GenreReader returns every stored genre row for an owner, duplicates included.
type GenreReader interface {
	ListGenres(ctx context.Context, owner string) ([]string, error)
}

// Feed returns a fresh snapshot of upcoming titles.
type Feed interface {
	Upcoming(ctx context.Context) ([]catalog.Item, error)
}

type Matcher struct {
	prefs     GenreReader
	feed      Feed
	taxonomy  *genre.Taxonomy
	imageBase string
	log       zerolog.Logger
}

func NewMatcher(prefs GenreReader, feed Feed, taxonomy *genre.Taxonomy, imageBase string) *Matcher {
	if taxonomy == nil {
		taxonomy = genre.Default()
	}
	if imageBase == "" {
		imageBase = catalog.DefaultImageBaseURL
	}
	return &Matcher{
		prefs:     prefs,
		feed:      feed,
		taxonomy:  taxonomy,
		imageBase: imageBase,
		log:       logging.Component("upcoming"),
	}
}

// Match returns upcoming titles sharing at least one genre with the owner's
// preferences, in catalog order. A catalog failure yields an empty result.
func (m *Matcher) Match(ctx context.Context, owner string) ([]domain.UpcomingMatch, error) {
	stored, err := m.prefs.ListGenres(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list genre preferences for %s: %w", owner, err)
	}
	wanted := genre.TokenSet(stored)
	if len(wanted) == 0 {
		return []domain.UpcomingMatch{}, nil
	}

	items, err := m.feed.Upcoming(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.log.Warn().Err(err).Str("owner", owner).Msg("upcoming catalog unavailable, returning no matches")
		return []domain.UpcomingMatch{}, nil
	}

	matches := make([]domain.UpcomingMatch, 0)
	for _, item := range items {
		names := m.taxonomy.Names(item.GenreIDs)
		if !genre.Intersects(genre.TokenSet(names), wanted) {
			continue
		}
		matches = append(matches, domain.UpcomingMatch{
			Title:       item.Title,
			ReleaseDate: item.ReleaseDate,
			Rating:      item.Rating,
			Genres:      names,
			PosterURL:   catalog.ImageURL(m.imageBase, item.PosterPath),
		})
	}
	m.log.Debug().Str("owner", owner).Int("catalog", len(items)).Int("matched", len(matches)).Msg("upcoming reconciled")
	return matches, nil
}
