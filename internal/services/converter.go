package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/vvka-141/csv2hyper/internal/db"
	"github.com/vvka-141/csv2hyper/internal/frame"
	"github.com/vvka-141/csv2hyper/internal/hypertype"
	"github.com/vvka-141/csv2hyper/internal/schema"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// Stage names reported in ConvertResult.Timings.
const (
	StageSchema  = "schema"
	StageLoad    = "load"
	StagePublish = "publish"
)

// TableLoader loads one CSV file into one table of an extract.
type TableLoader interface {
	Load(ctx context.Context, def *schema.TableDefinition, csvPath, extractPath string) (int64, error)
}

// LoaderFactory builds the loader for one conversion.
type LoaderFactory func(config csv2hyper.ConvertConfig) TableLoader

// EngineLoaderFactory returns a LoaderFactory whose loaders spawn (or attach to)
// the engine described by each conversion's EngineConfig.
func EngineLoaderFactory(extracts csv2hyper.ExtractManager, logger csv2hyper.Logger, opts ...db.Option) LoaderFactory {
	return func(config csv2hyper.ConvertConfig) TableLoader {
		return NewLoader(
			StartEngine,
			EngineConnectorFactory(opts...),
			extracts,
			logger,
			WithEngineConfig(config.Engine),
			WithCreateMode(config.CreateMode),
			WithCopySource(config.CopySource),
		)
	}
}

// ConversionService implements the Converter interface.
// Thread-Safety: NOT safe for concurrent Convert() calls on the same instance
// when they target the same extract file.
type ConversionService struct {
	loaderFactory LoaderFactory
	publisher     csv2hyper.Publisher
	approver      csv2hyper.Approver
	extracts      csv2hyper.ExtractManager
	logger        csv2hyper.Logger
}

// NewConversionService creates a new ConversionService with all dependencies injected.
//
// Panics if any dependency is nil. This is intentional fail-fast behavior
// to prevent cryptic nil pointer dereferences later.
func NewConversionService(
	loaderFactory LoaderFactory,
	publisher csv2hyper.Publisher,
	approver csv2hyper.Approver,
	extracts csv2hyper.ExtractManager,
	logger csv2hyper.Logger,
) *ConversionService {
	if loaderFactory == nil {
		panic("loaderFactory cannot be nil")
	}
	if publisher == nil {
		panic("publisher cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	if extracts == nil {
		panic("extracts cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &ConversionService{
		loaderFactory: loaderFactory,
		publisher:     publisher,
		approver:      approver,
		extracts:      extracts,
		logger:        logger,
	}
}

// Convert describes the CSV, builds the table schema, loads the rows into the
// extract and, when configured, publishes the extract.
// The result is returned together with an error from a later stage, so callers
// can report the timings of the stages that did run.
func (s *ConversionService) Convert(ctx context.Context, config csv2hyper.ConvertConfig) (*csv2hyper.ConvertResult, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// hyperd runs in its own working directory, so relative paths would
	// resolve against the wrong place.
	var err error
	if config.CSVPath, err = filepath.Abs(config.CSVPath); err != nil {
		return nil, fmt.Errorf("failed to resolve CSV path: %w", err)
	}
	if config.ExtractPath, err = filepath.Abs(config.ExtractPath); err != nil {
		return nil, fmt.Errorf("failed to resolve extract path: %w", err)
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	version := config.DTypeVersion
	if version == "" {
		version = csv2hyper.DefaultDTypeVersion
	}
	mapping, err := hypertype.NewMapping(version)
	if err != nil {
		return nil, err
	}

	s.logger.Verbose("Converting %s to %s", config.CSVPath, config.ExtractPath)
	result := &csv2hyper.ConvertResult{}

	var def *schema.TableDefinition
	err = s.stage(result, StageSchema, func() error {
		var err error
		def, err = s.buildSchema(config, mapping)
		return err
	})
	if err != nil {
		return result, err
	}

	if err := s.approveReplace(ctx, config); err != nil {
		return result, err
	}

	loader := s.loaderFactory(config)
	err = s.stage(result, StageLoad, func() error {
		rows, err := loader.Load(ctx, def, config.CSVPath, config.ExtractPath)
		result.Rows = rows
		return err
	})
	if err != nil {
		return result, err
	}
	s.logger.Info("✓ Loaded %d rows into %s (%s)", result.Rows, config.ExtractPath, def.Name())

	if config.Publish == nil {
		return result, nil
	}

	err = s.stage(result, StagePublish, func() error {
		id, err := s.publisher.Publish(ctx, *config.Publish, config.ExtractPath)
		result.DatasourceID = id
		return err
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

// buildSchema infers the frame from the CSV, applies dtype overrides and text
// widening, and maps it to a table definition.
func (s *ConversionService) buildSchema(config csv2hyper.ConvertConfig, mapping *hypertype.Mapping) (*schema.TableDefinition, error) {
	f, err := frame.InferFile(config.CSVPath, frame.InferOptions{
		SampleRows:        config.InferRows,
		ParseDates:        config.ParseDates,
		ExtensionTypes:    mapping.SupportsExtensionTypes(),
		PreferStringDType: mapping.SupportsExtensionTypes(),
		NormalizeNames:    config.SnakeCase,
	})
	if err != nil {
		return nil, err
	}

	if len(config.DTypes) > 0 {
		f, err = frame.WithOverrides(f, config.DTypes)
		if err != nil {
			return nil, err
		}
	}

	for _, col := range f.Columns() {
		s.logger.Verbose("  %s: %s", col.Name, col.DType)
	}

	def, err := schema.Build(f, mapping, schema.NewTableName(config.Schema, config.Table))
	if err != nil {
		return nil, err
	}

	if len(config.TextColumns) > 0 {
		def, err = schema.WidenToText(def, config.TextColumns...)
		if err != nil {
			return nil, err
		}
	}
	return def, nil
}

// approveReplace asks the approver before an existing extract is dropped.
func (s *ConversionService) approveReplace(ctx context.Context, config csv2hyper.ConvertConfig) error {
	if config.CreateMode != csv2hyper.CreateAndReplace {
		return nil
	}

	exists, err := s.extracts.Exists(ctx, config.ExtractPath)
	if err != nil {
		return fmt.Errorf("failed to check if extract exists: %w", err)
	}
	if !exists {
		return nil
	}

	s.logger.Verbose("Extract '%s' exists. Requesting approval for replace.", config.ExtractPath)
	approved, err := s.approver.RequestApproval(ctx, config.ExtractPath)
	if err != nil {
		return fmt.Errorf("approval request failed: %w", err)
	}
	if !approved {
		return csv2hyper.ErrApprovalDenied
	}
	return nil
}

func (s *ConversionService) stage(result *csv2hyper.ConvertResult, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	result.Timings = append(result.Timings, csv2hyper.StageTiming{Stage: name, Elapsed: elapsed})

	if err != nil {
		var loadErr *csv2hyper.LoadError
		if errors.As(err, &loadErr) {
			s.logger.Verbose("%s failed after %s at row %d", name, elapsed, loadErr.Row)
		} else {
			s.logger.Verbose("%s failed after %s", name, elapsed)
		}
		return err
	}
	s.logger.Verbose("%s took %s", name, elapsed)
	return nil
}

var _ csv2hyper.Converter = (*ConversionService)(nil)
