package services

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/csv2hyper/internal/schema"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

type mockEngine struct {
	endpoint string
	closed   int
	closeErr error
}

func (m *mockEngine) Endpoint() string {
	return m.endpoint
}

func (m *mockEngine) Close() error {
	m.closed++
	return m.closeErr
}

type mockConnector struct {
	pool      *pgxpool.Pool
	err       error
	databases []string
}

func (m *mockConnector) Connect(_ context.Context, database string) (*pgxpool.Pool, error) {
	m.databases = append(m.databases, database)
	return m.pool, m.err
}

type mockApprover struct {
	approved bool
	err      error
	calls    []string
}

func (m *mockApprover) RequestApproval(_ context.Context, path string) (bool, error) {
	m.calls = append(m.calls, path)
	return m.approved, m.err
}

type mockExtractManager struct {
	existsResult bool
	existsErr    error
	prepareErr   error
	prepared     []csv2hyper.CreateMode
	checked      []string
}

func (m *mockExtractManager) Exists(_ context.Context, path string) (bool, error) {
	m.checked = append(m.checked, path)
	return m.existsResult, m.existsErr
}

func (m *mockExtractManager) Create(_ context.Context, _ csv2hyper.DBConnection, _ string) error {
	return nil
}

func (m *mockExtractManager) CreateIfNotExists(_ context.Context, _ csv2hyper.DBConnection, _ string) error {
	return nil
}

func (m *mockExtractManager) DropIfExists(_ context.Context, _ csv2hyper.DBConnection, _ string) error {
	return nil
}

func (m *mockExtractManager) Prepare(_ context.Context, _ csv2hyper.DBConnection, _ string, mode csv2hyper.CreateMode) error {
	m.prepared = append(m.prepared, mode)
	return m.prepareErr
}

type mockLoader struct {
	rows     int64
	err      error
	defs     []*schema.TableDefinition
	configs  []csv2hyper.ConvertConfig
	csvs     []string
	extracts []string
}

func (m *mockLoader) factory(config csv2hyper.ConvertConfig) TableLoader {
	m.configs = append(m.configs, config)
	return m
}

func (m *mockLoader) Load(_ context.Context, def *schema.TableDefinition, csvPath, extractPath string) (int64, error) {
	m.defs = append(m.defs, def)
	m.csvs = append(m.csvs, csvPath)
	m.extracts = append(m.extracts, extractPath)
	return m.rows, m.err
}

type mockPublisher struct {
	id    string
	err   error
	calls int
}

func (m *mockPublisher) Publish(_ context.Context, _ csv2hyper.PublishConfig, _ string) (string, error) {
	m.calls++
	return m.id, m.err
}

// messageLogger keeps every formatted message.
type messageLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *messageLogger) add(format string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, format)
}

func (l *messageLogger) Verbose(format string, args ...interface{}) { l.add(format) }
func (l *messageLogger) Info(format string, args ...interface{})    { l.add(format) }
func (l *messageLogger) Error(format string, args ...interface{})   { l.add(format) }

var errBoom = errors.New("boom")
