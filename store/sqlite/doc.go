// Package sqlite implements store.Store using the grove ORM with SQLite
// dialect. Suitable for single-node deployments and local tooling where a
// Postgres server is overkill.
//
// The caller owns the *grove.DB lifecycle; sqlite never closes it:
//
//	import (
//	    "github.com/xraph/grove"
//	    "github.com/xraph/docflow/store/sqlite"
//	)
//
//	db, _ := grove.Open(ctx, "sqlite", dsn)
//	store := sqlite.New(db)
//	store.Migrate(ctx)
package sqlite
