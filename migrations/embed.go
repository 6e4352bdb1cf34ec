// Package migrations embeds the SQL schema so the server can migrate itself
// regardless of working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
