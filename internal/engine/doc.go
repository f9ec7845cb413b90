// Package engine starts and stops a local hyperd process.
//
// hyperd listens on a loopback TCP port and speaks the PostgreSQL wire protocol;
// callers connect to Endpoint() with internal/db. A Process configured with an
// external endpoint spawns nothing and Close is a no-op.
//
//	proc, err := engine.Start(ctx, cfg, logger)
//	if err != nil { ... }
//	defer proc.Close()
package engine
