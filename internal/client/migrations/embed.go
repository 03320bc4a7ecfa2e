// Package migrations embeds the SQLite schema migrations applied by
// goose when the local database is opened.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
