package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/csv2hyper/internal/db"
	"github.com/vvka-141/csv2hyper/internal/db/manager"
	"github.com/vvka-141/csv2hyper/internal/frame"
	"github.com/vvka-141/csv2hyper/internal/hypertype"
	"github.com/vvka-141/csv2hyper/internal/logging"
	"github.com/vvka-141/csv2hyper/internal/schema"
	testhelpers "github.com/vvka-141/csv2hyper/internal/testing"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

func idValueDefinition(t *testing.T, table schema.TableName) *schema.TableDefinition {
	t.Helper()
	def, err := schema.Build(
		frame.NewTable(frame.Column{Name: "id", DType: "int64"}, frame.Column{Name: "value", DType: "float64"}),
		hypertype.MustMapping(csv2hyper.DefaultDTypeVersion),
		table,
	)
	require.NoError(t, err)
	return def
}

func staticEngine(eng *mockEngine, err error) EngineStarter {
	return func(context.Context, csv2hyper.EngineConfig, csv2hyper.Logger) (Engine, error) {
		if err != nil {
			return nil, err
		}
		return eng, nil
	}
}

func TestNewLoader_NilPanics(t *testing.T) {
	start := staticEngine(&mockEngine{}, nil)
	factory := func(string) csv2hyper.Connector { return &mockConnector{} }
	extracts := &mockExtractManager{}
	logger := logging.NewNullLogger()

	assert.Panics(t, func() { NewLoader(nil, factory, extracts, logger) })
	assert.Panics(t, func() { NewLoader(start, nil, extracts, logger) })
	assert.Panics(t, func() { NewLoader(start, factory, nil, logger) })
	assert.Panics(t, func() { NewLoader(start, factory, extracts, nil) })
}

func TestLoad_RequiresColumns(t *testing.T) {
	eng := &mockEngine{}
	loader := NewLoader(staticEngine(eng, nil), func(string) csv2hyper.Connector { return &mockConnector{} },
		&mockExtractManager{}, logging.NewNullLogger())

	_, err := loader.Load(context.Background(), nil, "a.csv", "a.hyper")
	assert.ErrorIs(t, err, csv2hyper.ErrInvalidConfig)

	_, err = loader.Load(context.Background(), schema.NewTableDefinition(schema.NewTableName("", "")), "a.csv", "a.hyper")
	assert.ErrorIs(t, err, csv2hyper.ErrInvalidConfig)

	assert.Zero(t, eng.closed, "engine must not start for an invalid definition")
}

func TestLoad_EngineStartFails(t *testing.T) {
	loader := NewLoader(staticEngine(nil, csv2hyper.ErrEngineUnavailable), func(string) csv2hyper.Connector { return &mockConnector{} },
		&mockExtractManager{}, logging.NewNullLogger())

	_, err := loader.Load(context.Background(), idValueDefinition(t, schema.NewTableName("", "")), "a.csv", "a.hyper")
	assert.ErrorIs(t, err, csv2hyper.ErrEngineUnavailable)
}

func TestLoad_ConnectFailsStopsEngine(t *testing.T) {
	eng := &mockEngine{endpoint: "localhost:7483", closeErr: errBoom}
	conn := &mockConnector{err: csv2hyper.ErrConnectionFailed}
	var gotEndpoint string
	logger := &messageLogger{}

	loader := NewLoader(staticEngine(eng, nil), func(endpoint string) csv2hyper.Connector {
		gotEndpoint = endpoint
		return conn
	}, &mockExtractManager{}, logger)

	_, err := loader.Load(context.Background(), idValueDefinition(t, schema.NewTableName("", "")), "a.csv", "a.hyper")

	assert.ErrorIs(t, err, csv2hyper.ErrConnectionFailed)
	assert.Equal(t, "localhost:7483", gotEndpoint)
	assert.Equal(t, []string{""}, conn.databases, "create mode is applied without an attached extract")
	assert.Equal(t, 1, eng.closed)
	assert.Contains(t, logger.messages, "Failed to stop engine: %v")
}

func TestCopySQL(t *testing.T) {
	table := schema.NewTableName("staging", "Extract")

	assert.Equal(t,
		`COPY "staging"."Extract" FROM '/data/o''brien.csv' WITH (FORMAT csv, NULL '', DELIMITER ',', HEADER)`,
		CopyFromPathSQL(table, "/data/o'brien.csv"))
	assert.Equal(t,
		`COPY "staging"."Extract" FROM STDIN WITH (FORMAT csv, NULL '', DELIMITER ',', HEADER)`,
		CopyFromStdinSQL(table))
}

func TestNewLoadError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantRow int
	}{
		{
			name: "postgres context",
			err: &pgconn.PgError{
				Code:    "22P02",
				Message: `invalid input syntax for type bigint: "abc"`,
				Where:   `COPY Extract, line 3, column id: "abc"`,
			},
			wantRow: 3,
		},
		{
			name:    "row in message",
			err:     &pgconn.PgError{Message: "Error while parsing CSV: row: 17, column 2"},
			wantRow: 17,
		},
		{
			name:    "wrapped plain error",
			err:     fmt.Errorf("copy: %w", errors.New("bad value on line 12")),
			wantRow: 12,
		},
		{
			name:    "no position",
			err:     errors.New("disk full"),
			wantRow: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loadErr := newLoadError(tt.err)
			assert.Equal(t, tt.wantRow, loadErr.Row)
			assert.ErrorIs(t, loadErr, csv2hyper.ErrLoadFailed)
			assert.ErrorIs(t, loadErr, tt.err)
		})
	}
}

// pgLoader returns a stream-mode loader against the PostgreSQL test server,
// which stands in for the engine's wire protocol.
func pgLoader(t *testing.T, opts ...LoaderOption) (*Loader, string) {
	t.Helper()

	connString := testhelpers.RequireDatabase(t)
	base := testhelpers.WithoutDatabase(t, connString)
	u, err := url.Parse(base)
	require.NoError(t, err)

	all := append([]LoaderOption{
		WithEngineConfig(csv2hyper.EngineConfig{Endpoint: u.Host}),
		WithCopySource(csv2hyper.CopyFromStream),
	}, opts...)

	loader := NewLoader(
		StartEngine,
		func(string) csv2hyper.Connector { return db.NewConnector(base) },
		manager.New(),
		logging.NewNullLogger(),
		all...,
	)
	return loader, connString
}

func countTables(t *testing.T, connString, database, table string) int {
	t.Helper()
	ctx := context.Background()

	pool, err := db.NewConnector(testhelpers.WithoutDatabase(t, connString)).Connect(ctx, database)
	require.NoError(t, err)
	defer pool.Close()

	var n int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT count(*) FROM information_schema.tables WHERE table_name = $1", table).Scan(&n))
	return n
}

func TestLoader_StreamIntegration(t *testing.T) {
	loader, connString := pgLoader(t)
	extract := "csv2hyper_load_ok"
	testhelpers.CleanupTestDB(t, connString, extract)

	csvPath := testhelpers.WriteCSV(t, t.TempDir(), "data.csv", "id,value\n0,1.5\n1,2.5\n")
	ctx := context.Background()

	rows, err := loader.Load(ctx, idValueDefinition(t, schema.NewTableName("", "Extract")), csvPath, extract)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	pool, err := db.NewConnector(testhelpers.WithoutDatabase(t, connString)).Connect(ctx, extract)
	require.NoError(t, err)
	defer pool.Close()

	var count int64
	var sum float64
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*), sum(value) FROM "Extract"`).Scan(&count, &sum))
	assert.Equal(t, int64(2), count)
	assert.InDelta(t, 4.0, sum, 1e-9)
}

func TestLoader_StreamIntegration_Notices(t *testing.T) {
	connString := testhelpers.RequireDatabase(t)
	base := testhelpers.WithoutDatabase(t, connString)
	u, err := url.Parse(base)
	require.NoError(t, err)

	notices := testhelpers.NewNoticeCapture()
	loader := NewLoader(
		StartEngine,
		func(string) csv2hyper.Connector { return db.NewConnector(base, db.WithNoticeHandler(notices.Handler())) },
		manager.New(),
		logging.NewNullLogger(),
		WithEngineConfig(csv2hyper.EngineConfig{Endpoint: u.Host}),
		WithCopySource(csv2hyper.CopyFromStream),
	)

	extract := "csv2hyper_load_notices"
	testhelpers.CleanupTestDB(t, connString, extract)
	csvPath := testhelpers.WriteCSV(t, t.TempDir(), "data.csv", "id,value\n0,1.5\n")

	// "public" always exists, so CREATE SCHEMA IF NOT EXISTS reports a notice.
	rows, err := loader.Load(context.Background(), idValueDefinition(t, schema.NewTableName("public", "Extract")), csvPath, extract)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	require.GreaterOrEqual(t, notices.Count(), 1)
	found := false
	for i, msg := range notices.Messages() {
		if strings.Contains(msg, "already exists") {
			found = true
			assert.Equal(t, "NOTICE", notices.Severities()[i])
		}
	}
	assert.True(t, found, "expected an 'already exists' notice, got %v", notices.Messages())
}

func TestLoader_StreamIntegration_Gzip(t *testing.T) {
	loader, connString := pgLoader(t)
	extract := "csv2hyper_load_gz"
	testhelpers.CleanupTestDB(t, connString, extract)

	csvPath := filepath.Join(t.TempDir(), "data.csv.gz")
	f, err := os.Create(csvPath)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte("id,value\n0,1.5\n1,\n2,3\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	rows, err := loader.Load(context.Background(), idValueDefinition(t, schema.NewTableName("staging", "Extract")), csvPath, extract)
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows)
}

func TestLoader_StreamIntegration_MalformedRow(t *testing.T) {
	loader, connString := pgLoader(t)
	extract := "csv2hyper_load_bad"
	testhelpers.CleanupTestDB(t, connString, extract)

	csvPath := testhelpers.WriteCSV(t, t.TempDir(), "data.csv", "id,value\n0,1.5\nabc,2.5\n")

	rows, err := loader.Load(context.Background(), idValueDefinition(t, schema.NewTableName("", "Extract")), csvPath, extract)

	require.Error(t, err)
	assert.Zero(t, rows)
	assert.ErrorIs(t, err, csv2hyper.ErrLoadFailed)
	assert.Equal(t, csv2hyper.ExitLoadFailed, csv2hyper.ExitCodeForError(err))

	var loadErr *csv2hyper.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 3, loadErr.Row)

	assert.Zero(t, countTables(t, connString, extract, "Extract"), "failed COPY must roll back CREATE TABLE")
}

func TestLoader_StreamIntegration_NotNullViolation(t *testing.T) {
	loader, connString := pgLoader(t)
	extract := "csv2hyper_load_null"
	testhelpers.CleanupTestDB(t, connString, extract)

	// id is int64, so NOT NULL
	csvPath := testhelpers.WriteCSV(t, t.TempDir(), "data.csv", "id,value\n0,1.5\n,2.5\n")

	_, err := loader.Load(context.Background(), idValueDefinition(t, schema.NewTableName("", "Extract")), csvPath, extract)
	assert.ErrorIs(t, err, csv2hyper.ErrLoadFailed)
	assert.Zero(t, countTables(t, connString, extract, "Extract"))
}

func TestLoader_HyperdIntegration(t *testing.T) {
	hyperd := testhelpers.RequireHyperd(t)
	dir := t.TempDir()
	csvPath := testhelpers.WriteCSV(t, dir, "data.csv", "id,value\n0,1.5\n1,2.5\n")
	extract := filepath.Join(dir, "out.hyper")

	loader := NewLoader(
		StartEngine,
		EngineConnectorFactory(),
		manager.New(),
		logging.NewNullLogger(),
		WithEngineConfig(csv2hyper.EngineConfig{HyperdPath: hyperd, Parameters: csv2hyper.DefaultEngineParameters()}),
	)

	rows, err := loader.Load(context.Background(), idValueDefinition(t, schema.NewTableName("", "Extract")), csvPath, extract)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)
	assert.FileExists(t, extract)

	// Replacing drops and recreates the file.
	rows, err = loader.Load(context.Background(), idValueDefinition(t, schema.NewTableName("", "Extract")), csvPath, extract)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)
}
