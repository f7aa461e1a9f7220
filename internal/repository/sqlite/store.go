// Package sqlite is the single-file store used for local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/actuallystonmai/flick-found/internal/domain"
	"github.com/actuallystonmai/flick-found/internal/repository"
	"github.com/actuallystonmai/flick-found/migrations"
)

type Store struct {
	db *sql.DB
}

// Open opens the database at path (":memory:" works) and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: SQLite has a single writer and each :memory: connection is its own database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	schema, err := migrations.SQLite()
	if err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrPersistenceFailed, err)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) AppendRecommendations(ctx context.Context, owner string, recs []domain.Recommendation) error {
	if len(recs) == 0 {
		return nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertRecommendations(ctx, tx, owner, recs)
	})
	if err != nil {
		return persistErr(fmt.Sprintf("append recommendations for %s", owner), err)
	}
	return nil
}

func (s *Store) ReplaceRecommendations(ctx context.Context, owner string, recs []domain.Recommendation) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations WHERE owner = ?`, owner); err != nil {
			return fmt.Errorf("delete previous: %w", err)
		}
		return insertRecommendations(ctx, tx, owner, recs)
	})
	if err != nil {
		return persistErr(fmt.Sprintf("replace recommendations for %s", owner), err)
	}
	return nil
}

func insertRecommendations(ctx context.Context, tx *sql.Tx, owner string, recs []domain.Recommendation) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO recommendations
		(owner, batch_id, title, genre, rating, release_date, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range recs {
		generatedAt := rec.GeneratedAt
		if generatedAt.IsZero() {
			generatedAt = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, owner, rec.BatchID, rec.Title, rec.Genre,
			rec.Rating, rec.ReleaseDate, generatedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert recommendation %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) RecentRecommendations(ctx context.Context, owner string, limit int) ([]domain.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, batch_id, title, genre, rating, release_date, generated_at
		FROM recommendations
		WHERE owner = ?
		ORDER BY generated_at DESC, id DESC
		LIMIT ?`,
		owner, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recommendations for %s: %w", owner, err)
	}
	defer rows.Close()

	items := []domain.Recommendation{}
	for rows.Next() {
		var (
			rec   domain.Recommendation
			nanos int64
		)
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.BatchID, &rec.Title, &rec.Genre,
			&rec.Rating, &rec.ReleaseDate, &nanos); err != nil {
			return nil, fmt.Errorf("scan recommendation: %w", err)
		}
		rec.GeneratedAt = time.Unix(0, nanos).UTC()
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate over recommendations: %w", err)
	}
	return items, nil
}

const (
	insertGenre = `INSERT INTO genre_preferences (owner, genre) VALUES (?, ?)`
	insertTitle = `INSERT INTO movie_preferences (owner, title) VALUES (?, ?)`
)

// SaveBatch writes the batch and its preferences in one transaction.
func (s *Store) SaveBatch(ctx context.Context, owner string, b domain.Batch) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if b.Policy == domain.PolicyReplace {
			if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations WHERE owner = ?`, owner); err != nil {
				return fmt.Errorf("delete previous: %w", err)
			}
		}
		if len(b.Recommendations) > 0 {
			if err := insertRecommendations(ctx, tx, owner, b.Recommendations); err != nil {
				return err
			}
		}
		if err := insertValues(ctx, tx, insertTitle, owner, repository.CleanTitles(b.Titles)); err != nil {
			return fmt.Errorf("insert titles: %w", err)
		}
		if err := insertValues(ctx, tx, insertGenre, owner, repository.CleanGenres(b.Genres)); err != nil {
			return fmt.Errorf("insert genres: %w", err)
		}
		return nil
	})
	if err != nil {
		return persistErr(fmt.Sprintf("save batch for %s", owner), err)
	}
	return nil
}

func (s *Store) AddGenres(ctx context.Context, owner string, genres []string) error {
	err := s.appendValues(ctx, insertGenre, owner, repository.CleanGenres(genres))
	if err != nil {
		return persistErr(fmt.Sprintf("add genres for %s", owner), err)
	}
	return nil
}

func (s *Store) AddTitles(ctx context.Context, owner string, titles []string) error {
	err := s.appendValues(ctx, insertTitle, owner, repository.CleanTitles(titles))
	if err != nil {
		return persistErr(fmt.Sprintf("add titles for %s", owner), err)
	}
	return nil
}

func (s *Store) appendValues(ctx context.Context, query, owner string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertValues(ctx, tx, query, owner, values)
	})
}

func insertValues(ctx context.Context, tx *sql.Tx, query, owner string, values []string) error {
	for _, v := range values {
		if _, err := tx.ExecContext(ctx, query, owner, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CountGenres(ctx context.Context, owner string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM genre_preferences WHERE owner = ?`, owner)
}

func (s *Store) CountTitles(ctx context.Context, owner string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM movie_preferences WHERE owner = ?`, owner)
}

func (s *Store) count(ctx context.Context, query, owner string) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, query, owner).Scan(&total); err != nil {
		return 0, fmt.Errorf("count preferences for %s: %w", owner, err)
	}
	return total, nil
}

func (s *Store) ListGenres(ctx context.Context, owner string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT genre FROM genre_preferences WHERE owner = ? ORDER BY id`, owner)
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
