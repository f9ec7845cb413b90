package manager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// Manager implements csv2hyper.ExtractManager.
type Manager struct {
	stat func(name string) (fs.FileInfo, error)
}

// New creates a Manager that checks existence on the local file system.
func New() *Manager {
	return &Manager{stat: os.Stat}
}

// Exists reports whether an extract file is present at path.
func (m *Manager) Exists(ctx context.Context, path string) (bool, error) {
	_, err := m.stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check extract %q: %w", path, err)
}

// Create creates a new extract database.
func (m *Manager) Create(ctx context.Context, conn csv2hyper.DBConnection, path string) error {
	return execDedicated(ctx, conn, "CREATE DATABASE "+pgx.Identifier{path}.Sanitize(), "create", path)
}

// DropIfExists drops the extract database if the engine can find it.
func (m *Manager) DropIfExists(ctx context.Context, conn csv2hyper.DBConnection, path string) error {
	return execDedicated(ctx, conn, "DROP DATABASE IF EXISTS "+pgx.Identifier{path}.Sanitize(), "drop", path)
}

// CreateIfNotExists creates the extract unless the file is already on disk.
func (m *Manager) CreateIfNotExists(ctx context.Context, conn csv2hyper.DBConnection, path string) error {
	exists, err := m.Exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.Create(ctx, conn, path)
}

// Prepare applies mode to the extract at path.
func (m *Manager) Prepare(ctx context.Context, conn csv2hyper.DBConnection, path string, mode csv2hyper.CreateMode) error {
	switch mode {
	case csv2hyper.CreateAndReplace:
		if err := m.DropIfExists(ctx, conn, path); err != nil {
			return err
		}
		return m.Create(ctx, conn, path)

	case csv2hyper.Create:
		exists, err := m.Exists(ctx, path)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("extract %q already exists (use create mode create_and_replace): %w", path, csv2hyper.ErrInvalidConfig)
		}
		return m.Create(ctx, conn, path)

	case csv2hyper.CreateIfNotExists:
		return m.CreateIfNotExists(ctx, conn, path)

	case csv2hyper.CreateNone:
		exists, err := m.Exists(ctx, path)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("extract %q does not exist and create mode is none: %w", path, csv2hyper.ErrInvalidConfig)
		}
		return nil
	}

	return fmt.Errorf("unknown create mode %v: %w", mode, csv2hyper.ErrInvalidConfig)
}

// execDedicated runs a database-level statement on its own connection,
// outside any transaction.
func execDedicated(ctx context.Context, conn csv2hyper.DBConnection, sql, verb, path string) error {
	pooled, err := conn.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer pooled.Release()

	if _, err := pooled.Exec(ctx, sql); err != nil {
		return fmt.Errorf("failed to %s extract %q: %w", verb, path, err)
	}
	return nil
}

var _ csv2hyper.ExtractManager = (*Manager)(nil)
