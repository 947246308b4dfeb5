// Package migrations embeds the notification class schema into the binary.
package migrations

import "embed"

// FS holds the versioned migration files at its root.
//
//go:embed *.sql
var FS embed.FS
