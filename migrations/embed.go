// Package migrations embeds the SQL files for the content type snapshot
// store.
package migrations

import "embed"

// FS holds the embedded migrations.
//
//go:embed *.sql
var FS embed.FS
