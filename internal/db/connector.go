// Package db connects to a Hyper engine over its PostgreSQL wire-protocol endpoint.
package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/csv2hyper/internal/retry"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns covers the loader's single session plus one for DDL on the engine database.
	DefaultMaxConns = 2

	DefaultMaxConnIdleTime = 30 * time.Minute
)

// EngineConnString returns the connection string for a local hyperd endpoint (host:port).
func EngineConnString(endpoint string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.User(csv2hyper.EngineUser),
		Host:     endpoint,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Option configures a HyperConnector.
type Option func(*HyperConnector)

// WithRuntimeParams sets connection parameters (e.g. lc_time) sent at startup.
func WithRuntimeParams(params map[string]string) Option {
	return func(c *HyperConnector) {
		for k, v := range params {
			c.runtimeParams[k] = v
		}
	}
}

// WithRetry overrides the readiness retry executor.
func WithRetry(executor *retry.Executor) Option {
	return func(c *HyperConnector) {
		c.retryExecutor = executor
	}
}

// WithNoticeHandler receives server notices (NOTICE, WARNING) from every connection.
func WithNoticeHandler(handler func(*pgconn.Notice)) Option {
	return func(c *HyperConnector) {
		c.onNotice = handler
	}
}

// HyperConnector implements csv2hyper.Connector for a Hyper engine, retrying only
// while the engine is still starting.
type HyperConnector struct {
	connString    string
	runtimeParams map[string]string
	retryExecutor *retry.Executor
	onNotice      func(*pgconn.Notice)
}

// NewConnector creates a connector for connString (see EngineConnString).
func NewConnector(connString string, opts ...Option) *HyperConnector {
	c := &HyperConnector{
		connString:    connString,
		runtimeParams: map[string]string{},
		retryExecutor: retry.NewExecutor(
			retry.NewStartupClassifier(),
			retry.NewExponentialBackoff(csv2hyper.DefaultRetryMaxAttempts),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect opens a pool attached to database. For Hyper the database is the
// extract file path; an empty database attaches nothing.
func (c *HyperConnector) Connect(ctx context.Context, database string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(c.connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	c.configurePool(poolConfig)
	// Set after parsing: a URI path would lose the leading slash of an absolute file path.
	poolConfig.ConnConfig.Database = database

	var pool *pgxpool.Pool
	err = c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, wrapConnectionError(err, poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Port, database)
	}

	return pool, nil
}

func (c *HyperConnector) configurePool(poolConfig *pgxpool.Config) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = 0
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime

	// DDL and COPY carry no parameters; send everything with the simple protocol.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	for k, v := range c.runtimeParams {
		poolConfig.ConnConfig.RuntimeParams[k] = v
	}

	if c.onNotice != nil {
		handler := c.onNotice
		poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
			handler(notice)
		}
	}
}

// wrapConnectionError adds guidance to raw pgx connection errors.
func wrapConnectionError(err error, host string, port uint16, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := net.JoinHostPort(host, fmt.Sprint(port))

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - hyperd exited or was never started
  - --endpoint points at the wrong host or port

Original error: %w`, addr, errors.Join(csv2hyper.ErrConnectionFailed, err))

	case strings.Contains(errStr, "does not exist") || strings.Contains(errStr, "not found"):
		return fmt.Errorf(`extract %q could not be attached

Possible causes:
  - the file was removed while the engine was running
  - create mode "none" was used for a file that does not exist

Original error: %w`, database, errors.Join(csv2hyper.ErrConnectionFailed, err))

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "deadline exceeded"):
		return fmt.Errorf(`connection to %s timed out

Possible causes:
  - hyperd is still starting on a slow machine (raise --timeout)
  - a firewall drops loopback traffic

Original error: %w`, addr, errors.Join(csv2hyper.ErrConnectionFailed, err))

	default:
		return fmt.Errorf("failed to connect to engine: %w", errors.Join(csv2hyper.ErrConnectionFailed, err))
	}
}

var _ csv2hyper.Connector = (*HyperConnector)(nil)
