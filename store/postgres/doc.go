// Package postgres implements the store using pgx/v5 with raw SQL.
// Features: embedded SQL migrations, JSONB history entries, a composite
// primary key guarding against duplicate archive writes, and NOTIFY on
// published events.
package postgres
