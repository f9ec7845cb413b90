package testing

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/csv2hyper/internal/testinfra"
)

var (
	testContainerOnce sync.Once
	testContainerConn string
	testContainerErr  error
)

func getOrStartTestContainer() (string, error) {
	testContainerOnce.Do(func() {
		ctx := context.Background()
		container, err := testinfra.StartSimplePostgres(ctx)
		if err != nil {
			testContainerErr = err
			return
		}
		testContainerConn = container.ConnString
	})
	return testContainerConn, testContainerErr
}

// GetTestConnectionString returns a connection string for a PostgreSQL wire-protocol server.
// Priority: CSV2HYPER_TEST_CONN env var > auto-started testcontainer > skip test.
func GetTestConnectionString(t *testing.T) string {
	t.Helper()

	if connString := os.Getenv("CSV2HYPER_TEST_CONN"); connString != "" {
		return connString
	}

	connString, err := getOrStartTestContainer()
	if err != nil {
		t.Skipf("CSV2HYPER_TEST_CONN not set and Docker unavailable: %v", err)
	}
	return connString
}

// SkipIfShort skips the test if running in short mode (-short flag).
func SkipIfShort(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireDatabase combines SkipIfShort and GetTestConnectionString for convenience.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	return GetTestConnectionString(t)
}

// RequireHyperd returns HYPERD_PATH or skips the test.
func RequireHyperd(t *testing.T) string {
	t.Helper()

	SkipIfShort(t)
	path := os.Getenv("HYPERD_PATH")
	if path == "" {
		t.Skip("HYPERD_PATH not set; skipping real engine test")
	}
	return path
}

// WithoutDatabase strips the database from a URI connection string so the
// caller can choose one per connection.
func WithoutDatabase(t *testing.T, connString string) string {
	t.Helper()

	u, err := url.Parse(connString)
	if err != nil {
		t.Fatalf("Failed to parse connection string: %v", err)
	}
	u.Path = ""
	return u.String()
}

// CleanupTestDB drops dbName once the test finishes.
// Safe to call for databases that were never created.
func CleanupTestDB(t *testing.T, connString, dbName string) {
	t.Helper()

	t.Cleanup(func() {
		ctx := context.Background()
		pool, err := pgxpool.New(ctx, connString)
		if err != nil {
			t.Logf("Warning: Failed to connect for cleanup: %v", err)
			return
		}
		defer pool.Close()

		dropQuery := fmt.Sprintf("DROP DATABASE IF EXISTS %s WITH (FORCE)", pgx.Identifier{dbName}.Sanitize())
		if _, err := pool.Exec(ctx, dropQuery); err != nil {
			t.Logf("Warning: Failed to drop database %s: %v", dbName, err)
		}
	})
}

// WriteCSV writes content to dir/name and returns the path.
func WriteCSV(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

// ForceApprover is a test approver that always approves replacing an extract.
type ForceApprover struct {
	Calls int
}

func (a *ForceApprover) RequestApproval(ctx context.Context, path string) (bool, error) {
	a.Calls++
	return true, nil
}

// DenyApprover refuses every request.
type DenyApprover struct{}

func (a *DenyApprover) RequestApproval(ctx context.Context, path string) (bool, error) {
	return false, nil
}
