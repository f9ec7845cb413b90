package services

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vvka-141/csv2hyper/internal/tableau"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// PublisherOption configures a TableauPublisher.
type PublisherOption func(*TableauPublisher)

// WithPublishHTTPClient sets the HTTP client used for REST calls.
func WithPublishHTTPClient(hc *http.Client) PublisherOption {
	return func(p *TableauPublisher) {
		p.clientOpts = append(p.clientOpts, tableau.WithHTTPClient(hc))
	}
}

// WithUploadChunkSize overrides the single-request upload limit.
func WithUploadChunkSize(n int64) PublisherOption {
	return func(p *TableauPublisher) {
		p.clientOpts = append(p.clientOpts, tableau.WithChunkSize(n))
	}
}

// TableauPublisher implements csv2hyper.Publisher over the Tableau REST API.
type TableauPublisher struct {
	logger     csv2hyper.Logger
	clientOpts []tableau.Option
}

// NewPublisher creates a TableauPublisher.
//
// Panics if logger is nil.
func NewPublisher(logger csv2hyper.Logger, opts ...PublisherOption) *TableauPublisher {
	if logger == nil {
		panic("logger cannot be nil")
	}

	p := &TableauPublisher{logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish signs in, finds the project by name and uploads extractPath as a
// datasource. The session is signed out on every path once sign-in succeeded.
//
// An unknown project fails before anything is uploaded, with an error wrapping
// csv2hyper.ErrProjectNotFound.
func (p *TableauPublisher) Publish(ctx context.Context, config csv2hyper.PublishConfig, extractPath string) (string, error) {
	if err := config.Validate(); err != nil {
		return "", fmt.Errorf("invalid publish configuration: %w", err)
	}

	if _, err := os.Stat(extractPath); err != nil {
		return "", fmt.Errorf("extract %q is not readable: %w", extractPath, err)
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	opts := append([]tableau.Option{}, p.clientOpts...)
	if config.Timeout > 0 {
		opts = append(opts, tableau.WithTimeout(config.Timeout))
	}
	if config.APIVersion != "" {
		opts = append(opts, tableau.WithAPIVersion(config.APIVersion))
	}
	client := tableau.NewClient(config.Server, opts...)

	if config.APIVersion == "" {
		version, err := client.UseServerVersion(ctx)
		if err != nil {
			return "", err
		}
		p.logger.Verbose("Using REST API version %s", version)
	}

	p.logger.Verbose("Signing in to %s (site %q)", config.Server, config.Site)
	if err := client.SignIn(ctx, config.Site, config.Credentials); err != nil {
		return "", err
	}
	defer func() {
		// The caller's context may already be done; sign-out still has to go out.
		if err := client.SignOut(context.WithoutCancel(ctx)); err != nil {
			p.logger.Error("Failed to sign out: %v", err)
		}
	}()

	project, err := client.FindProject(ctx, config.Project, csv2hyper.ProjectPageSize)
	if err != nil {
		return "", err
	}
	p.logger.Verbose("Resolved project %q to %s", project.Name, project.ID)

	name := DatasourceName(config.Datasource, extractPath)
	p.logger.Verbose("Uploading %s as datasource %q (%s)", extractPath, name, config.Mode)
	ds, err := client.PublishDatasource(ctx, tableau.PublishRequest{
		ProjectID: project.ID,
		Name:      name,
		Path:      extractPath,
		Mode:      config.Mode,
	})
	if err != nil {
		return "", err
	}

	p.logger.Info("✓ Published datasource %q (%s) to project %q", name, ds.ID, project.Name)
	return ds.ID, nil
}

// DatasourceName returns the server-side name for an extract. An empty name
// defaults to the file name; a trailing .hyper is dropped because the server
// appends its own.
func DatasourceName(name, extractPath string) string {
	if name == "" {
		name = filepath.Base(extractPath)
	}
	if ext := filepath.Ext(name); strings.EqualFold(ext, ".hyper") {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

var _ csv2hyper.Publisher = (*TableauPublisher)(nil)
