package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemasDeclareEveryTable(t *testing.T) {
	for name, load := range map[string]func() (string, error){
		"postgres": PostgresUp,
		"sqlite":   SQLite,
	} {
		t.Run(name, func(t *testing.T) {
			sql, err := load()
			require.NoError(t, err)
			for _, table := range []string{"recommendations", "genre_preferences", "movie_preferences"} {
				assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table)
			}
		})
	}
}

func TestPostgresDownDropsTables(t *testing.T) {
	sql, err := PostgresDown()
	require.NoError(t, err)
	assert.Contains(t, sql, "DROP TABLE IF EXISTS recommendations")
}
