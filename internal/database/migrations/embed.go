// Package migrations embeds the SQL migration files applied by goose at
// server start and by the maintenance commands.
package migrations

import "embed"

// FS holds all *.sql migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
