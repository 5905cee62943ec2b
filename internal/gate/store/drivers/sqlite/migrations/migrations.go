package migrations

import "embed"

// Migrations holds the SQL migration files which get embedded into the
// binary at build time.
//
//go:embed *.sql
var Migrations embed.FS
