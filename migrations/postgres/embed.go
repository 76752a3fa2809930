// Package migrations embeds SQL migration files.
package migrations

import "embed"

// FS contains the Postgres schema migrations for the identity service.
//
//go:embed *.sql
var FS embed.FS
