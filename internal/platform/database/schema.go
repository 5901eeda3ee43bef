package database

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bookable_entities (
		position SERIAL,
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		name TEXT NOT NULL,
		sub_category TEXT NOT NULL DEFAULT '',
		capacity INTEGER NOT NULL CHECK (capacity >= 0),
		current_bookings INTEGER NOT NULL DEFAULT 0,
		deposit_required NUMERIC(20, 6) NOT NULL,
		payout_address TEXT NOT NULL,
		CHECK (current_bookings >= 0 AND current_bookings <= capacity)
	)`,
	`CREATE TABLE IF NOT EXISTS holds (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		status TEXT NOT NULL,
		hold_expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		resolved_at TIMESTAMPTZ,
		seat_reserved BOOLEAN NOT NULL DEFAULT FALSE,
		escrow_owner TEXT,
		escrow_sequence BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS holds_held_expiry_idx ON holds (hold_expires_at) WHERE status = 'HELD'`,
	`CREATE INDEX IF NOT EXISTS holds_escrow_idx ON holds (escrow_owner, escrow_sequence)`,
}

// EnsureSchema creates the tables used by the postgres repositories.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
