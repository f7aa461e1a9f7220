// Package migrations embeds the schema for each supported database driver.
package migrations

import (
	"embed"
	"fmt"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// PostgresUp returns the statements that create the PostgreSQL schema.
func PostgresUp() (string, error) {
	return read("postgres/create_tables.up.sql")
}

// PostgresDown returns the statements that drop the PostgreSQL schema.
func PostgresDown() (string, error) {
	return read("postgres/create_tables.down.sql")
}

// SQLite returns the idempotent SQLite schema.
func SQLite() (string, error) {
	return read("sqlite/schema.sql")
}

func read(name string) (string, error) {
	b, err := files.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read migration %s: %w", name, err)
	}
	return string(b), nil
}
