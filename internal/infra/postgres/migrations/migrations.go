// Package migrations holds the bun migrations for the result and quiz tables.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
