package db

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/csv2hyper/internal/retry"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

func TestEngineConnString(t *testing.T) {
	assert.Equal(t,
		"postgres://tableau_internal_user@localhost:7483?sslmode=disable",
		EngineConnString("localhost:7483"))
}

func TestConfigurePool(t *testing.T) {
	c := NewConnector(EngineConnString("localhost:7483"), WithRuntimeParams(map[string]string{"lc_time": "en_US"}))

	poolConfig, err := pgxpool.ParseConfig(c.connString)
	require.NoError(t, err)
	c.configurePool(poolConfig)

	assert.Equal(t, int32(DefaultMaxConns), poolConfig.MaxConns)
	assert.Equal(t, pgx.QueryExecModeSimpleProtocol, poolConfig.ConnConfig.DefaultQueryExecMode)
	assert.Equal(t, "en_US", poolConfig.ConnConfig.RuntimeParams["lc_time"])
	assert.Equal(t, "tableau_internal_user", poolConfig.ConnConfig.User)
	assert.Equal(t, uint16(7483), poolConfig.ConnConfig.Port)
	assert.Nil(t, poolConfig.ConnConfig.TLSConfig)
}

func closedPort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestConnect_RefusedIsConnectionFailed(t *testing.T) {
	calls := 0
	executor := retry.NewExecutor(
		retry.NewStartupClassifier(),
		retry.NewExponentialBackoff(2, retry.WithInitialDelay(time.Millisecond), retry.WithJitter(0)),
	).WithOnRetry(func(int, error, time.Duration) { calls++ })

	c := NewConnector(EngineConnString(closedPort(t)), WithRetry(executor))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := c.Connect(ctx, "/tmp/data.hyper")
	assert.Nil(t, pool)
	require.Error(t, err)
	assert.ErrorIs(t, err, csv2hyper.ErrConnectionFailed)
	assert.Equal(t, csv2hyper.ExitConnectionError, csv2hyper.ExitCodeForError(err))
	assert.Equal(t, 2, calls, "refused connections are retried")
}

func TestConnect_InvalidConnString(t *testing.T) {
	c := NewConnector("postgres://%zz")
	_, err := c.Connect(context.Background(), "")
	assert.Error(t, err)
}

func TestWrapConnectionError(t *testing.T) {
	tests := []struct {
		name         string
		errMsg       string
		wantContains string
	}{
		{"refused", "dial tcp 127.0.0.1:7483: connection refused", "connection refused to 127.0.0.1:7483"},
		{"windows refused", "connectex: No connection could be made because the target machine actively refused it", "connection refused to 127.0.0.1:7483"},
		{"missing database", `database "/data/x.hyper" does not exist`, `extract "/data/x.hyper" could not be attached`},
		{"timeout", "dial tcp: i/o timeout", "timed out"},
		{"other", "bad things", "failed to connect to engine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := errors.New(tt.errMsg)
			err := wrapConnectionError(raw, "127.0.0.1", 7483, "/data/x.hyper")

			assert.Contains(t, err.Error(), tt.wantContains)
			assert.ErrorIs(t, err, raw)
			assert.ErrorIs(t, err, csv2hyper.ErrConnectionFailed)
		})
	}
}
