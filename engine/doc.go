// Package engine wires the docflow subsystems together and provides the
// application-level API for deploying schemas and driving workflows.
//
// # Building an Engine
//
//	eng, err := engine.New(owner,
//	    engine.WithStore(pgStore),
//	    engine.WithConfig(cfg),
//	    engine.WithExtension(audithook.New(recorder)),
//	    engine.WithMiddleware(myMiddleware),
//	)
//
// owner becomes RootAdmin of the workflow registry and must grant
// ContractAdmin (to itself or others) before workflows can be created:
//
//	eng.Grant(ctx, owner, eng.Registry().Address(), access.ContractAdmin, owner)
//
// # Schemas
//
//	sch, _, err := eng.DeploySchema(ctx, owner)
//	eng.AddState(ctx, owner, sch.ID(), []schema.State{1})
//	eng.Finalize(ctx, owner, sch.ID())
//	eng.AddRight(ctx, owner, sch.ID(), 0, 0, clerk, schema.Init)
//
//	// or in one call from YAML
//	sch, _, err = eng.ApplyDefinition(ctx, owner, yamlBytes)
//
// # Workflows
//
//	w, _, err := eng.CreateWorkflow(ctx, owner, sch.ID(), docTypes)
//	rcpt, err := eng.DoInit(ctx, clerk, w.Address(), w.TotalHistory(), 1, ids, hashes)
//
// Every mutating method is submitted through the ledger and returns the
// call's receipt. A reverted call returns its receipt together with the
// error that reverted it. Reads (Schema, Workflow, Registry) bypass the
// ledger.
//
// # Options
//
//   - [WithConfig]: fees, submission rate, call timeout, page size
//   - [WithStore]: journal receipts, persist events, archive history
//   - [WithExtension]: register a lifecycle extension
//   - [WithMiddleware]: add a middleware to the ledger chain
//   - [WithTracerProvider], [WithMeterProvider]: OpenTelemetry providers
package engine
