// Package migrations embeds the SQL migrations for the agent's local
// attachment catalog.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
