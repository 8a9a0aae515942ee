// Package migrations holds the embedded goose SQL migrations applied
// at server startup.
package migrations

import "embed"

// Files contains all SQL migration files in ascending order by filename.
//
//go:embed *.sql
var Files embed.FS
