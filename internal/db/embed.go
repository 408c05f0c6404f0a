package db

import "embed"

// EmbedMigrations contains the sample dataset migrations.
//
//go:embed migrations/*.sql
var EmbedMigrations embed.FS
