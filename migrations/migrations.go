// Package migrations embeds the Postgres schema so the API binary and the
// migration script share one source of truth.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
