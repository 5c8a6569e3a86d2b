package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one ordered schema step. Versions are applied exactly once and
// recorded in schema_migrations.
type migration struct {
	version int
	name    string
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_rooms",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS rooms (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				color TEXT,
				capacity INTEGER NOT NULL DEFAULT 0,
				facilities TEXT,
				window_start INTEGER,
				window_end INTEGER,
				status TEXT NOT NULL DEFAULT 'enabled',
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
		},
	},
	{
		version: 2,
		name:    "create_users",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				email TEXT NOT NULL UNIQUE,
				pin TEXT NOT NULL UNIQUE,
				phone TEXT NOT NULL,
				department TEXT,
				designation TEXT,
				role TEXT NOT NULL DEFAULT 'user',
				status TEXT NOT NULL DEFAULT 'active',
				password_hash TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
		},
	},
	{
		version: 3,
		name:    "create_bookings",
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS bookings (
				id TEXT PRIMARY KEY,
				room_id TEXT NOT NULL REFERENCES rooms(id),
				user_id TEXT NOT NULL REFERENCES users(id),
				title TEXT NOT NULL,
				date TEXT NOT NULL,
				start_min INTEGER NOT NULL,
				end_min INTEGER NOT NULL,
				remarks TEXT,
				repeat_type TEXT NOT NULL DEFAULT 'no_repeat',
				repeat_end_date TEXT,
				is_recurring INTEGER NOT NULL DEFAULT 0,
				parent_booking_id TEXT REFERENCES bookings(id) ON DELETE SET NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				CHECK (start_min < end_min)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_room_date ON bookings(room_id, date)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id)`,
			`CREATE INDEX IF NOT EXISTS idx_bookings_parent ON bookings(parent_booking_id)`,
		},
	},
}

// Migrate applies pending schema migrations in version order.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied, err := d.migrationApplied(ctx, m.version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		err = d.WithTransaction(ctx, func(tx *sql.Tx) error {
			for _, stmt := range m.stmts {
				if _, err := tx.Exec(stmt); err != nil {
					return fmt.Errorf("sqlite: migration %d (%s): %w", m.version, m.name, err)
				}
			}
			_, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (d *DB) migrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: check migration %d: %w", version, err)
	}
	return count > 0, nil
}
