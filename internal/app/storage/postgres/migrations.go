package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently at startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		wallet_address TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		county_origin TEXT NOT NULL DEFAULT '',
		constituency_origin TEXT NOT NULL DEFAULT '',
		county_live TEXT NOT NULL DEFAULT '',
		constituency_live TEXT NOT NULL DEFAULT '',
		nonce TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS groups (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		wallet_address TEXT NOT NULL DEFAULT '',
		county TEXT NOT NULL DEFAULT '',
		constituency TEXT NOT NULL DEFAULT '',
		industry_focus TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS proposals (
		id UUID PRIMARY KEY,
		creator_user_id UUID,
		creator_group_id UUID,
		proposal_type TEXT NOT NULL,
		funded BOOLEAN NOT NULL DEFAULT FALSE,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		budget BIGINT NOT NULL DEFAULT 0,
		timeline TEXT NOT NULL DEFAULT '',
		location_scope TEXT NOT NULL,
		constituency TEXT NOT NULL DEFAULT '',
		county TEXT NOT NULL DEFAULT '',
		purpose_details TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS projects (
		id UUID PRIMARY KEY,
		proposal_id UUID NOT NULL UNIQUE,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		budget BIGINT NOT NULL DEFAULT 0,
		timeline TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		location_scope TEXT NOT NULL,
		constituency TEXT NOT NULL DEFAULT '',
		county TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS project_participants (
		id UUID PRIMARY KEY,
		project_id UUID NOT NULL,
		user_id UUID NOT NULL,
		role TEXT NOT NULL DEFAULT 'MEMBER',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (project_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS token_balances (
		holder_kind TEXT NOT NULL,
		holder_id TEXT NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (holder_kind, holder_id)
	)`,
	`CREATE TABLE IF NOT EXISTS impact_points (
		holder_kind TEXT NOT NULL,
		holder_id TEXT NOT NULL,
		location_scope TEXT NOT NULL DEFAULT '',
		points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (holder_kind, holder_id, location_scope)
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		id UUID PRIMARY KEY,
		proposal_id UUID NOT NULL,
		voter_id TEXT NOT NULL,
		is_group BOOLEAN NOT NULL,
		vote BOOLEAN NOT NULL,
		tokens_spent BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS votes_proposal_idx ON votes (proposal_id)`,
}

// Apply creates any missing tables and indexes.
func Apply(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
