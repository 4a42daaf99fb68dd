// Package migrations embeds the goose SQL migrations. Every statement must run
// unchanged on both SQLite and Postgres.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
