// Package docflow provides a permissioned document-workflow engine for Go.
//
// A reusable state schema describes which users may move a document set
// from one state to another. Workflow instances bind to a schema and a fixed
// set of document-type rules, enforce document cardinality on every
// transition, and keep an append-only audit history. A registry tracks the
// open instances in a linked list that supports stable paginated reads while
// instances conclude.
//
// # Quick Start
//
//	eng, err := engine.New(owner,
//	    engine.WithStore(pgStore),
//	    engine.WithConfig(cfg),
//	)
//	sch, _, err := eng.DeploySchema(ctx, owner)
//
// # Architecture
//
// Every mutating call is submitted through a single ledger that orders all
// mutations, charges a fee, and journals a receipt. Reads go straight to the
// components. Each subsystem (tx, event, workflow history) defines its own
// store interface and a single backend implements all of them.
//
// All entity IDs use TypeID: type-prefixed, K-sortable, UUIDv7-based,
// compile-time safe identifiers.
package docflow
