// Package db holds the SQL schema of the service.
package db

import "embed"

// Migrations are the goose migrations, under the "migrations" directory.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory of Migrations that holds the files.
const MigrationsDir = "migrations"
