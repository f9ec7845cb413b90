package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/klauspost/compress/gzip"
	"github.com/vvka-141/csv2hyper/internal/db"
	"github.com/vvka-141/csv2hyper/internal/engine"
	"github.com/vvka-141/csv2hyper/internal/frame"
	"github.com/vvka-141/csv2hyper/internal/schema"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// copyOptions is the fixed CSV dialect: comma delimiter, header row skipped,
// empty string is NULL.
const copyOptions = "WITH (FORMAT csv, NULL '', DELIMITER ',', HEADER)"

// Engine is a hyperd instance the loader talks to for the duration of one load.
type Engine interface {
	Endpoint() string
	Close() error
}

// EngineStarter launches (or attaches to) an engine.
type EngineStarter func(ctx context.Context, cfg csv2hyper.EngineConfig, logger csv2hyper.Logger) (Engine, error)

// ConnectorFactory returns a connector for an engine endpoint (host:port).
type ConnectorFactory func(endpoint string) csv2hyper.Connector

// StartEngine is the EngineStarter backed by internal/engine.
func StartEngine(ctx context.Context, cfg csv2hyper.EngineConfig, logger csv2hyper.Logger) (Engine, error) {
	p, err := engine.Start(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// EngineConnectorFactory connects as the engine user with lc_time=en_US, so the
// engine parses month and day names in CSV timestamps the same way on every host.
func EngineConnectorFactory(opts ...db.Option) ConnectorFactory {
	return func(endpoint string) csv2hyper.Connector {
		all := append([]db.Option{db.WithRuntimeParams(map[string]string{"lc_time": "en_US"})}, opts...)
		return db.NewConnector(db.EngineConnString(endpoint), all...)
	}
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEngineConfig sets how the engine is started.
func WithEngineConfig(cfg csv2hyper.EngineConfig) LoaderOption {
	return func(l *Loader) {
		l.engineConfig = cfg
	}
}

// WithCreateMode sets what happens to an existing extract file.
func WithCreateMode(mode csv2hyper.CreateMode) LoaderOption {
	return func(l *Loader) {
		l.createMode = mode
	}
}

// WithCopySource selects whether the engine reads the CSV path or the rows are streamed.
func WithCopySource(source csv2hyper.CopySource) LoaderOption {
	return func(l *Loader) {
		l.copySource = source
	}
}

// Loader bulk-loads one CSV file into one table of an extract.
// Every Load starts its own engine and stops it before returning.
type Loader struct {
	startEngine      EngineStarter
	connectorFactory ConnectorFactory
	extracts         csv2hyper.ExtractManager
	logger           csv2hyper.Logger

	engineConfig csv2hyper.EngineConfig
	createMode   csv2hyper.CreateMode
	copySource   csv2hyper.CopySource
}

// NewLoader creates a Loader with all dependencies injected.
//
// Panics if any dependency is nil. Panics indicate programmer error
// (incorrect dependency injection setup).
func NewLoader(
	startEngine EngineStarter,
	connectorFactory ConnectorFactory,
	extracts csv2hyper.ExtractManager,
	logger csv2hyper.Logger,
	opts ...LoaderOption,
) *Loader {
	if startEngine == nil {
		panic("startEngine cannot be nil")
	}
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if extracts == nil {
		panic("extracts cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	l := &Loader{
		startEngine:      startEngine,
		connectorFactory: connectorFactory,
		extracts:         extracts,
		logger:           logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load creates the table described by def in the extract at extractPath and
// copies every row of csvPath into it with a single COPY statement.
//
// Returns the number of rows the engine reports. A rejected COPY rolls back
// the whole transaction (the table is not left behind) and is returned as a
// *csv2hyper.LoadError.
func (l *Loader) Load(ctx context.Context, def *schema.TableDefinition, csvPath, extractPath string) (int64, error) {
	if def == nil {
		return 0, fmt.Errorf("table definition is required: %w", csv2hyper.ErrInvalidConfig)
	}
	if def.Len() == 0 {
		return 0, fmt.Errorf("table %s has no columns: %w", def.Name(), csv2hyper.ErrInvalidConfig)
	}

	eng, err := l.startEngine(ctx, l.engineConfig, l.logger)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			l.logger.Error("Failed to stop engine: %v", err)
		}
	}()

	connector := l.connectorFactory(eng.Endpoint())

	if err := l.prepareExtract(ctx, connector, extractPath); err != nil {
		return 0, err
	}

	pool, err := connector.Connect(ctx, extractPath)
	if err != nil {
		return 0, fmt.Errorf("failed to attach extract %q: %w", extractPath, err)
	}
	defer pool.Close()

	return l.loadTable(ctx, pool, def, csvPath)
}

// prepareExtract applies the create mode over an engine connection that has
// no extract attached.
func (l *Loader) prepareExtract(ctx context.Context, connector csv2hyper.Connector, extractPath string) error {
	pool, err := connector.Connect(ctx, "")
	if err != nil {
		return fmt.Errorf("engine connection failed: %w", err)
	}
	defer pool.Close()

	l.logger.Verbose("Preparing extract %s (create mode %s)", extractPath, l.createMode)
	if err := l.extracts.Prepare(ctx, db.NewPoolAdapter(pool), extractPath, l.createMode); err != nil {
		return err
	}
	return nil
}

func (l *Loader) loadTable(ctx context.Context, pool *pgxpool.Pool, def *schema.TableDefinition, csvPath string) (int64, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// No-op once committed.
	defer tx.Rollback(ctx)

	if stmt := def.CreateSchemaSQL(); stmt != "" {
		l.logger.Verbose("%s", stmt)
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("failed to create schema %q: %w", def.Name().Schema, err)
		}
	}

	createTable := def.CreateTableSQL()
	l.logger.Verbose("%s", createTable)
	if _, err := tx.Exec(ctx, createTable); err != nil {
		return 0, fmt.Errorf("failed to create table %s: %w", def.Name(), err)
	}

	var tag pgconn.CommandTag
	switch l.copySource {
	case csv2hyper.CopyFromStream:
		tag, err = l.copyFromStream(ctx, tx, def.Name(), csvPath)
	default:
		tag, err = l.copyFromPath(ctx, tx, def.Name(), csvPath)
	}
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit load: %w", err)
	}

	rows := tag.RowsAffected()
	l.logger.Verbose("Copied %d rows into %s", rows, def.Name())
	return rows, nil
}

// copyFromPath lets the engine open the CSV itself. The engine process may run
// in another working directory, so the path is made absolute.
func (l *Loader) copyFromPath(ctx context.Context, tx pgx.Tx, table schema.TableName, csvPath string) (pgconn.CommandTag, error) {
	abs, err := filepath.Abs(csvPath)
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("failed to resolve CSV path %q: %w", csvPath, err)
	}

	stmt := CopyFromPathSQL(table, abs)
	l.logger.Verbose("%s", stmt)
	tag, err := tx.Exec(ctx, stmt)
	if err != nil {
		return pgconn.CommandTag{}, newLoadError(err)
	}
	return tag, nil
}

// copyFromStream sends the file over the connection. Gzip files are
// decompressed on the client.
func (l *Loader) copyFromStream(ctx context.Context, tx pgx.Tx, table schema.TableName, csvPath string) (pgconn.CommandTag, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return pgconn.CommandTag{}, fmt.Errorf("failed to open CSV %q: %w", csvPath, err)
	}
	defer f.Close()

	var r io.Reader = f
	if frame.IsGzip(csvPath) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return pgconn.CommandTag{}, fmt.Errorf("failed to open gzip stream %q: %w", csvPath, err)
		}
		defer gz.Close()
		r = gz
	}

	stmt := CopyFromStdinSQL(table)
	l.logger.Verbose("%s", stmt)
	tag, err := tx.Conn().PgConn().CopyFrom(ctx, r, stmt)
	if err != nil {
		return pgconn.CommandTag{}, newLoadError(err)
	}
	return tag, nil
}

// CopyFromPathSQL renders the COPY statement that reads path on the engine host.
func CopyFromPathSQL(table schema.TableName, path string) string {
	return fmt.Sprintf("COPY %s FROM %s %s", table, quoteLiteral(path), copyOptions)
}

// CopyFromStdinSQL renders the COPY statement fed over the connection.
func CopyFromStdinSQL(table schema.TableName) string {
	return fmt.Sprintf("COPY %s FROM STDIN %s", table, copyOptions)
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// rowPattern matches the row position engines append to COPY errors,
// e.g. `COPY "Extract", line 3, column id` or `row: 3`.
var rowPattern = regexp.MustCompile(`(?i)\b(?:line|row)[:\s]+(\d+)`)

func newLoadError(err error) *csv2hyper.LoadError {
	texts := []string{}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		texts = append(texts, pgErr.Where, pgErr.Detail, pgErr.Message, pgErr.Hint)
	}
	texts = append(texts, err.Error())

	loadErr := &csv2hyper.LoadError{Err: err}
	for _, text := range texts {
		if m := rowPattern.FindStringSubmatch(text); m != nil {
			if n, convErr := strconv.Atoi(m[1]); convErr == nil {
				loadErr.Row = n
				break
			}
		}
	}
	return loadErr
}
