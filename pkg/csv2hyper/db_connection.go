package csv2hyper

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBConnection is the slice of an engine connection pool that ExtractManager needs.
// It keeps pgx types out of the public API except for the command tag.
type DBConnection interface {
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// QueryRow runs a query returning at most one row. Errors surface on Scan.
	QueryRow(ctx context.Context, sql string, args ...any) Row

	// Acquire pins one connection. Hyper runs CREATE DATABASE and DROP DATABASE
	// outside transactions, so they go through a dedicated connection.
	// The caller must Release it.
	Acquire(ctx context.Context) (PooledConnection, error)
}

// Row is a single result row.
type Row interface {
	Scan(dest ...any) error
}

// PooledConnection is a connection borrowed from a pool.
type PooledConnection interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// Release hands the connection back. It must not be used afterwards.
	Release()
}
