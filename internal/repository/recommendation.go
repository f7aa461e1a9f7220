package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/actuallystonmai/flick-found/internal/domain"
)

const insertRecommendation = `INSERT INTO recommendations
	(owner, batch_id, title, genre, rating, release_date, generated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

// AppendRecommendations inserts the batch in one transaction. Nothing is
// kept if any row fails.
func (r *Repository) AppendRecommendations(ctx context.Context, owner string, recs []domain.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return insertRecommendations(ctx, tx, owner, recs)
	})
	if err != nil {
		return persistErr(fmt.Sprintf("append recommendations for %s", owner), err)
	}
	return nil
}

// ReplaceRecommendations drops the owner's previous rows and inserts the
// batch in one transaction.
func (r *Repository) ReplaceRecommendations(ctx context.Context, owner string, recs []domain.Recommendation) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM recommendations WHERE owner = $1`, owner); err != nil {
			return fmt.Errorf("delete previous: %w", err)
		}
		return insertRecommendations(ctx, tx, owner, recs)
	})
	if err != nil {
		return persistErr(fmt.Sprintf("replace recommendations for %s", owner), err)
	}
	return nil
}

// SaveBatch stores a generated batch and the titles and genres that produced
// it in one transaction. Under PolicyReplace the owner's earlier rows go too.
func (r *Repository) SaveBatch(ctx context.Context, owner string, b domain.Batch) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if b.Policy == domain.PolicyReplace {
			if _, err := tx.Exec(ctx, `DELETE FROM recommendations WHERE owner = $1`, owner); err != nil {
				return fmt.Errorf("delete previous: %w", err)
			}
		}
		if len(b.Recommendations) > 0 {
			if err := insertRecommendations(ctx, tx, owner, b.Recommendations); err != nil {
				return err
			}
		}
		if err := insertValues(ctx, tx, insertTitle, owner, CleanTitles(b.Titles)); err != nil {
			return fmt.Errorf("insert titles: %w", err)
		}
		if err := insertValues(ctx, tx, insertGenre, owner, CleanGenres(b.Genres)); err != nil {
			return fmt.Errorf("insert genres: %w", err)
		}
		return nil
	})
	if err != nil {
		return persistErr(fmt.Sprintf("save batch for %s", owner), err)
	}
	return nil
}

func insertRecommendations(ctx context.Context, tx pgx.Tx, owner string, recs []domain.Recommendation) error {
	batch := &pgx.Batch{}
	now := time.Now()
	for _, rec := range recs {
		generatedAt := rec.GeneratedAt
		if generatedAt.IsZero() {
			generatedAt = now
		}
		batch.Queue(insertRecommendation,
			owner, rec.BatchID, rec.Title, rec.Genre, rec.Rating, rec.ReleaseDate, generatedAt)
	}
	br := tx.SendBatch(ctx, batch)
	for i := range recs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert recommendation %d: %w", i, err)
		}
	}
	return br.Close()
}

// RecentRecommendations returns up to limit rows, newest first. Rows of one
// batch share generated_at, so later rows of a batch come first.
func (r *Repository) RecentRecommendations(ctx context.Context, owner string, limit int) ([]domain.Recommendation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner, batch_id, title, genre, rating, release_date, generated_at
		FROM recommendations
		WHERE owner = $1
		ORDER BY generated_at DESC, id DESC
		LIMIT $2`,
		owner, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recommendations for %s: %w", owner, err)
	}
	defer rows.Close()

	items := []domain.Recommendation{}
	for rows.Next() {
		var rec domain.Recommendation
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.BatchID, &rec.Title, &rec.Genre,
			&rec.Rating, &rec.ReleaseDate, &rec.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		items = append(items, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over recommendations: %w", err)
	}
	return items, nil
}
