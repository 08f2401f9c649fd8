// Package migrations embeds the SQL migrations for the queue service
// database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
