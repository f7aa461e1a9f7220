package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const (
	insertGenre = `INSERT INTO genre_preferences (owner, genre) VALUES ($1, $2)`
	insertTitle = `INSERT INTO movie_preferences (owner, title) VALUES ($1, $2)`
)

// AddGenres appends one row per genre. Values are lower-cased on write.
func (r *Repository) AddGenres(ctx context.Context, owner string, genres []string) error {
	values := CleanGenres(genres)
	if err := r.appendValues(ctx, insertGenre, owner, values); err != nil {
		return persistErr(fmt.Sprintf("add genres for %s", owner), err)
	}
	return nil
}

// AddTitles appends one row per title, keeping the title as typed.
func (r *Repository) AddTitles(ctx context.Context, owner string, titles []string) error {
	values := CleanTitles(titles)
	if err := r.appendValues(ctx, insertTitle, owner, values); err != nil {
		return persistErr(fmt.Sprintf("add titles for %s", owner), err)
	}
	return nil
}

func (r *Repository) appendValues(ctx context.Context, query, owner string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return insertValues(ctx, tx, query, owner, values)
	})
}

func insertValues(ctx context.Context, tx pgx.Tx, query, owner string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, v := range values {
		batch.Queue(query, owner, v)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (r *Repository) CountGenres(ctx context.Context, owner string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM genre_preferences WHERE owner = $1`, owner)
}

func (r *Repository) CountTitles(ctx context.Context, owner string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM movie_preferences WHERE owner = $1`, owner)
}

func (r *Repository) count(ctx context.Context, query, owner string) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, query, owner).Scan(&total); err != nil {
		return 0, fmt.Errorf("count preferences for %s: %w", owner, err)
	}
	return total, nil
}

// ListGenres returns every stored genre row in insertion order, duplicates included.
func (r *Repository) ListGenres(ctx context.Context, owner string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT genre FROM genre_preferences WHERE owner = $1 ORDER BY id`, owner)
	if err != nil {
		return nil, fmt.Errorf("query genres for %s: %w", owner, err)
	}
	defer rows.Close()

	genres := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genres: %w", err)
	}
	return genres, nil
}
