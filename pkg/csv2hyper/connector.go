package csv2hyper

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector establishes connections to a Hyper engine endpoint.
type Connector interface {
	// Connect establishes a connection pool to the given extract database.
	// An empty database connects without attaching any extract.
	// The returned pool should be closed by the caller when done.
	Connect(ctx context.Context, database string) (*pgxpool.Pool, error)
}
