package db

import "embed"

// EmbedMigrations contains the goose migrations for the system tables.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
