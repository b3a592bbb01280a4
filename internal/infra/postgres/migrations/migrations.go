package migrations

import (
	_ "embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_problems.sql
var createProblemsSQL string

//go:embed 0002_create_attempt_state.sql
var createAttemptStateSQL string

var Migrations = migrate.NewMigrations()
