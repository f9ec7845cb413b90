package csv2hyper

import "context"

// ExtractManager handles the lifecycle of extract files attached to an engine.
// The engine addresses each extract as a database whose name is the file path.
type ExtractManager interface {
	// Exists reports whether the extract file is present on disk.
	Exists(ctx context.Context, path string) (bool, error)

	// Create creates a new, empty extract. It fails if the file exists.
	Create(ctx context.Context, conn DBConnection, path string) error

	// CreateIfNotExists creates the extract unless it already exists.
	CreateIfNotExists(ctx context.Context, conn DBConnection, path string) error

	// DropIfExists removes the extract file if the engine knows it.
	DropIfExists(ctx context.Context, conn DBConnection, path string) error

	// Prepare applies a CreateMode: replace, create, create-if-missing or attach only.
	Prepare(ctx context.Context, conn DBConnection, path string, mode CreateMode) error
}
