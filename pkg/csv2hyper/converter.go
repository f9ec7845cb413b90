package csv2hyper

import "context"

// Converter is the main interface for turning a CSV file into a Hyper extract.
type Converter interface {
	// Convert infers or applies the column dtypes, loads the CSV into a new extract
	// and optionally publishes it.
	Convert(ctx context.Context, config ConvertConfig) (*ConvertResult, error)
}

// Publisher uploads an extract file to a Tableau project.
type Publisher interface {
	// Publish signs in, resolves the project and uploads the file.
	// It returns the datasource id assigned by the server.
	Publish(ctx context.Context, config PublishConfig, extractPath string) (string, error)
}
