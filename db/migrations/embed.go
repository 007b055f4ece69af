// Package migrations embeds the goose migrations for the remote Postgres
// sync schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
