package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// PoolAdapter exposes a *pgxpool.Pool as csv2hyper.DBConnection.
// Safe for concurrent use.
type PoolAdapter struct {
	pool *pgxpool.Pool
}

func NewPoolAdapter(pool *pgxpool.Pool) *PoolAdapter {
	if pool == nil {
		panic("pool cannot be nil")
	}
	return &PoolAdapter{pool: pool}
}

func (p *PoolAdapter) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return p.pool.Exec(ctx, sql, args...)
}

func (p *PoolAdapter) QueryRow(ctx context.Context, sql string, args ...any) csv2hyper.Row {
	return p.pool.QueryRow(ctx, sql, args...)
}

// Acquire pins one pool connection for statements that must not share a session.
func (p *PoolAdapter) Acquire(ctx context.Context) (csv2hyper.PooledConnection, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &pooledConn{conn: conn}, nil
}

type pooledConn struct {
	conn *pgxpool.Conn
}

func (c *pooledConn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return c.conn.Exec(ctx, sql, args...)
}

func (c *pooledConn) Release() {
	c.conn.Release()
}

var _ csv2hyper.DBConnection = (*PoolAdapter)(nil)
