// Package migrations embeds SQL migration files for database schema management.
// Each dialect lives in its own directory (sqlite, postgres).
package migrations

import "embed"

// FS holds the embedded SQL migration files.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
