// Package manager handles the lifecycle of extract files attached to a Hyper engine.
//
// The engine treats each extract as a database named by its file path, so the
// lifecycle maps onto database DDL:
//   - Create:            CREATE DATABASE "<path>"
//   - DropIfExists:      DROP DATABASE IF EXISTS "<path>"
//   - CreateIfNotExists: Create unless the file is already on disk
//   - Prepare:           one of the above per csv2hyper.CreateMode
//
// All statements quote the path with pgx.Identifier.Sanitize(), so paths with
// spaces, quotes or backslashes are safe.
//
// # Example Usage
//
//	mgr := manager.New()
//	err := mgr.Prepare(ctx, db.NewPoolAdapter(pool), "/data/sales.hyper", csv2hyper.CreateAndReplace)
//
// # Thread Safety
//
// Manager is stateless; concurrency depends on the injected DBConnection.
package manager
