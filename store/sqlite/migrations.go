package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the docflow sqlite store.
var Migrations = migrate.NewGroup("docflow")

func init() {
	Migrations.MustRegister(
		// 001: receipts.
		&migrate.Migration{
			Name:    "create_receipts_table",
			Version: "20260101120000",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
					CREATE TABLE IF NOT EXISTS docflow_receipts (
						tx_id        TEXT PRIMARY KEY,
						seq          INTEGER NOT NULL,
						name         TEXT NOT NULL,
						caller       TEXT NOT NULL,
						target       TEXT,
						status       TEXT NOT NULL,
						fee          INTEGER NOT NULL DEFAULT 0,
						error        TEXT NOT NULL DEFAULT '',
						submitted_at TEXT NOT NULL,
						completed_at TEXT NOT NULL
					)`)
				if err != nil {
					return err
				}

				_, err = exec.Exec(ctx, `
					CREATE INDEX IF NOT EXISTS idx_docflow_receipts_caller
						ON docflow_receipts (caller, seq)`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS docflow_receipts`)
				return err
			},
		},

		// 002: registry events.
		&migrate.Migration{
			Name:    "create_events_table",
			Version: "20260101120001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
					CREATE TABLE IF NOT EXISTS docflow_events (
						id         TEXT PRIMARY KEY,
						name       TEXT NOT NULL,
						seq        INTEGER NOT NULL,
						address    TEXT NOT NULL,
						schema_id  TEXT NOT NULL,
						mode       INTEGER NOT NULL,
						acked      INTEGER NOT NULL DEFAULT 0,
						created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
					)`)
				if err != nil {
					return err
				}

				_, err = exec.Exec(ctx, `
					CREATE INDEX IF NOT EXISTS idx_docflow_events_pending
						ON docflow_events (name, created_at)
						WHERE acked = 0`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS docflow_events`)
				return err
			},
		},

		// 003: archived instance history.
		&migrate.Migration{
			Name:    "create_history_table",
			Version: "20260101120002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
					CREATE TABLE IF NOT EXISTS docflow_history (
						workflow_id TEXT NOT NULL,
						usn         INTEGER NOT NULL,
						entry       TEXT NOT NULL,
						created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
						PRIMARY KEY (workflow_id, usn)
					)`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS docflow_history`)
				return err
			},
		},
	)
}
