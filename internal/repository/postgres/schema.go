package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"club-recruitment-service/internal/logger"
)

// The clubs table is owned by the club registry; it is created here only so
// an embedded database is self-contained.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS clubs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS campaigns (
		id TEXT PRIMARY KEY,
		club_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		requirements JSONB NOT NULL DEFAULT '[]',
		questions JSONB NOT NULL DEFAULT '[]',
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		max_applications INTEGER,
		status TEXT NOT NULL,
		total_applications INTEGER NOT NULL DEFAULT 0,
		pending_applications INTEGER NOT NULL DEFAULT 0,
		approved_applications INTEGER NOT NULL DEFAULT 0,
		rejected_applications INTEGER NOT NULL DEFAULT 0,
		statistics_updated_at TIMESTAMPTZ,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CHECK (end_date > start_date)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_campaigns_club_status ON campaigns (club_id, status)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		club_id TEXT NOT NULL,
		campaign_id TEXT REFERENCES campaigns (id),
		user_id TEXT NOT NULL,
		user_email TEXT NOT NULL DEFAULT '',
		user_full_name TEXT NOT NULL DEFAULT '',
		user_picture_url TEXT NOT NULL DEFAULT '',
		identity_version BIGINT NOT NULL DEFAULT 0,
		answers JSONB NOT NULL DEFAULT '[]',
		message TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		approver_id TEXT,
		approved_at TIMESTAMPTZ,
		status_reason TEXT NOT NULL DEFAULT '',
		submitted_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	// Authoritative guard: one pending-or-active record per (club, applicant).
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_applications_open_member
		ON applications (club_id, user_id) WHERE status IN ('pending', 'active')`,
	`CREATE INDEX IF NOT EXISTS ix_applications_campaign_status ON applications (campaign_id, status)`,
	`CREATE INDEX IF NOT EXISTS ix_applications_user ON applications (user_id)`,
}

// sqliteSchema derives the embedded schema from the Postgres one.
func sqliteSchema() []string {
	replacer := strings.NewReplacer(
		"JSONB", "TEXT",
		"TIMESTAMPTZ", "DATETIME",
		"BIGINT", "INTEGER",
	)
	stmts := make([]string, 0, len(postgresSchema))
	for _, stmt := range postgresSchema {
		stmts = append(stmts, replacer.Replace(stmt))
	}
	return stmts
}

// Migrate creates the tables and indexes used by the store.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	stmts := postgresSchema
	if driver == DriverSQLite {
		stmts = sqliteSchema()
	}
	for _, stmt := range stmts {
		logger.DatabaseCall("migrate", stmt)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.DatabaseResult("migrate", 0, err)
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
