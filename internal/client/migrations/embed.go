// Package migrations embeds the goose migrations that own the local
// credential schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
