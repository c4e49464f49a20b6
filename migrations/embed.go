// Package migrations embeds the goose SQL migrations applied at worker boot.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
