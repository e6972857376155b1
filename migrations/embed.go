// Package migrations holds the goose SQL migrations applied by internal/db.Migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
