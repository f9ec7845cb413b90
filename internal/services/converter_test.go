package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/csv2hyper/internal/hypertype"
	"github.com/vvka-141/csv2hyper/internal/logging"
	"github.com/vvka-141/csv2hyper/internal/schema"
	testhelpers "github.com/vvka-141/csv2hyper/internal/testing"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

type converterFixture struct {
	loader    *mockLoader
	publisher *mockPublisher
	approver  *mockApprover
	extracts  *mockExtractManager
	svc       *ConversionService
}

func newConverterFixture() *converterFixture {
	f := &converterFixture{
		loader:    &mockLoader{rows: 2},
		publisher: &mockPublisher{id: "ds-1"},
		approver:  &mockApprover{approved: true},
		extracts:  &mockExtractManager{},
	}
	f.svc = NewConversionService(f.loader.factory, f.publisher, f.approver, f.extracts, logging.NewNullLogger())
	return f
}

func convertConfig(t *testing.T, csv string) csv2hyper.ConvertConfig {
	t.Helper()
	dir := t.TempDir()
	return csv2hyper.ConvertConfig{
		CSVPath:     testhelpers.WriteCSV(t, dir, "data.csv", csv),
		ExtractPath: dir + "/data.hyper",
		Engine:      csv2hyper.EngineConfig{Endpoint: "localhost:7483"},
	}
}

func stages(result *csv2hyper.ConvertResult) []string {
	var names []string
	for _, timing := range result.Timings {
		names = append(names, timing.Stage)
	}
	return names
}

func TestNewConversionService_NilPanics(t *testing.T) {
	f := newConverterFixture()
	logger := logging.NewNullLogger()

	assert.Panics(t, func() { NewConversionService(nil, f.publisher, f.approver, f.extracts, logger) })
	assert.Panics(t, func() { NewConversionService(f.loader.factory, nil, f.approver, f.extracts, logger) })
	assert.Panics(t, func() { NewConversionService(f.loader.factory, f.publisher, nil, f.extracts, logger) })
	assert.Panics(t, func() { NewConversionService(f.loader.factory, f.publisher, f.approver, nil, logger) })
	assert.Panics(t, func() { NewConversionService(f.loader.factory, f.publisher, f.approver, f.extracts, nil) })
}

func TestConvert_InvalidConfig(t *testing.T) {
	f := newConverterFixture()

	result, err := f.svc.Convert(context.Background(), csv2hyper.ConvertConfig{})

	require.Error(t, err)
	assert.ErrorIs(t, err, csv2hyper.ErrInvalidConfig)
	assert.Nil(t, result)
	assert.Empty(t, f.loader.configs)
}

func TestConvert_InvalidDTypeVersion(t *testing.T) {
	f := newConverterFixture()
	config := convertConfig(t, "id\n1\n")
	config.DTypeVersion = "one"

	_, err := f.svc.Convert(context.Background(), config)
	assert.ErrorIs(t, err, csv2hyper.ErrInvalidConfig)
}

func TestConvert_InfersSchemaAndLoads(t *testing.T) {
	f := newConverterFixture()
	config := convertConfig(t, "id,value\n0,1.5\n1,2.5\n")

	result, err := f.svc.Convert(context.Background(), config)
	require.NoError(t, err)

	assert.Equal(t, int64(2), result.Rows)
	assert.Empty(t, result.DatasourceID)
	assert.Equal(t, []string{StageSchema, StageLoad}, stages(result))
	assert.Zero(t, f.publisher.calls)

	require.Len(t, f.loader.defs, 1)
	def := f.loader.defs[0]
	assert.Equal(t, schema.NewTableName("", csv2hyper.DefaultTableName), def.Name())
	assert.Equal(t, []schema.ColumnDefinition{
		{Name: "id", Type: hypertype.BigInt, Nullability: hypertype.NotNullable},
		{Name: "value", Type: hypertype.Double, Nullability: hypertype.Nullable},
	}, def.Columns())

	require.Len(t, f.loader.configs, 1)
	assert.Equal(t, "localhost:7483", f.loader.configs[0].Engine.Endpoint)
}

func TestConvert_OverridesAndTextColumns(t *testing.T) {
	f := newConverterFixture()
	config := convertConfig(t, "Order ID,Amount,Note\n1,2.5,x\n2,,y\n")
	config.SnakeCase = true
	config.Table = "orders"
	config.Schema = "sales"
	config.DTypes = map[string]string{"order_id": "Int32"}
	config.TextColumns = []string{"amount"}

	_, err := f.svc.Convert(context.Background(), config)
	require.NoError(t, err)

	require.Len(t, f.loader.defs, 1)
	def := f.loader.defs[0]
	assert.Equal(t, "sales", def.Name().Schema)
	assert.Equal(t, "orders", def.Name().Name)
	assert.Equal(t, []schema.ColumnDefinition{
		{Name: "order_id", Type: hypertype.Int, Nullability: hypertype.Nullable},
		{Name: "amount", Type: hypertype.Text, Nullability: hypertype.Nullable},
		{Name: "note", Type: hypertype.Text, Nullability: hypertype.Nullable},
	}, def.Columns())
}

func TestConvert_UnsupportedDType(t *testing.T) {
	f := newConverterFixture()
	config := convertConfig(t, "id\n1\n")
	config.DTypes = map[string]string{"id": "category"}

	result, err := f.svc.Convert(context.Background(), config)

	require.Error(t, err)
	assert.ErrorIs(t, err, csv2hyper.ErrUnsupportedDType)
	assert.Equal(t, []string{StageSchema}, stages(result))
	assert.Empty(t, f.loader.defs)
}

func TestConvert_UnknownOverrideColumn(t *testing.T) {
	f := newConverterFixture()
	config := convertConfig(t, "id\n1\n")
	config.DTypes = map[string]string{"missing": "int64"}

	_, err := f.svc.Convert(context.Background(), config)
	assert.ErrorIs(t, err, csv2hyper.ErrInvalidConfig)
}

func TestConvert_Approval(t *testing.T) {
	tests := []struct {
		name          string
		exists        bool
		mode          csv2hyper.CreateMode
		approved      bool
		approverErr   error
		wantErr       error
		wantApprovals int
		wantLoads     int
	}{
		{name: "new extract", exists: false, mode: csv2hyper.CreateAndReplace, wantLoads: 1},
		{name: "replace approved", exists: true, mode: csv2hyper.CreateAndReplace, approved: true, wantApprovals: 1, wantLoads: 1},
		{name: "replace denied", exists: true, mode: csv2hyper.CreateAndReplace, approved: false, wantErr: csv2hyper.ErrApprovalDenied, wantApprovals: 1},
		{name: "approver error", exists: true, mode: csv2hyper.CreateAndReplace, approverErr: errBoom, wantErr: errBoom, wantApprovals: 1},
		{name: "append to existing", exists: true, mode: csv2hyper.CreateNone, wantLoads: 1},
		{name: "create if missing", exists: true, mode: csv2hyper.CreateIfNotExists, wantLoads: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newConverterFixture()
			f.extracts.existsResult = tt.exists
			f.approver.approved = tt.approved
			f.approver.err = tt.approverErr

			config := convertConfig(t, "id\n1\n")
			config.CreateMode = tt.mode

			_, err := f.svc.Convert(context.Background(), config)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, f.approver.calls, tt.wantApprovals)
			assert.Len(t, f.loader.defs, tt.wantLoads)
		})
	}
}

func TestConvert_ResolvesRelativePaths(t *testing.T) {
	f := newConverterFixture()
	dir := t.TempDir()
	testhelpers.WriteCSV(t, dir, "data.csv", "id\n1\n")
	t.Chdir(dir)

	config := csv2hyper.ConvertConfig{
		CSVPath:     "data.csv",
		ExtractPath: "data.hyper",
		Engine:      csv2hyper.EngineConfig{Endpoint: "localhost:7483"},
	}
	_, err := f.svc.Convert(context.Background(), config)
	require.NoError(t, err)

	require.Len(t, f.extracts.checked, 1)
	require.Len(t, f.loader.extracts, 1)
	for _, path := range []string{f.extracts.checked[0], f.loader.extracts[0], f.loader.csvs[0]} {
		assert.True(t, filepath.IsAbs(path), "expected absolute path, got %s", path)
	}
	assert.Equal(t, "data.hyper", filepath.Base(f.loader.extracts[0]))
	assert.Equal(t, f.extracts.checked[0], f.loader.extracts[0])
	assert.Equal(t, "data.csv", filepath.Base(f.loader.csvs[0]))
}

func TestConvert_ExistsCheckFails(t *testing.T) {
	f := newConverterFixture()
	f.extracts.existsErr = errBoom

	_, err := f.svc.Convert(context.Background(), convertConfig(t, "id\n1\n"))
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.loader.defs)
}

func TestConvert_LoadFailure(t *testing.T) {
	f := newConverterFixture()
	f.loader.err = &csv2hyper.LoadError{Row: 3, Err: errBoom}
	config := convertConfig(t, "id\n1\n")
	config.Publish = validPublishConfig()

	result, err := f.svc.Convert(context.Background(), config)

	require.Error(t, err)
	assert.ErrorIs(t, err, csv2hyper.ErrLoadFailed)
	var loadErr *csv2hyper.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, 3, loadErr.Row)

	assert.Equal(t, []string{StageSchema, StageLoad}, stages(result))
	assert.Zero(t, f.publisher.calls)
}

func TestConvert_Publishes(t *testing.T) {
	f := newConverterFixture()
	config := convertConfig(t, "id\n1\n")
	config.Publish = validPublishConfig()

	result, err := f.svc.Convert(context.Background(), config)
	require.NoError(t, err)

	assert.Equal(t, "ds-1", result.DatasourceID)
	assert.Equal(t, 1, f.publisher.calls)
	assert.Equal(t, []string{StageSchema, StageLoad, StagePublish}, stages(result))
	assert.GreaterOrEqual(t, result.Total(), result.Timings[0].Elapsed)
}

func TestConvert_PublishFailure(t *testing.T) {
	f := newConverterFixture()
	f.publisher.err = csv2hyper.ErrProjectNotFound
	config := convertConfig(t, "id\n1\n")
	config.Publish = validPublishConfig()

	result, err := f.svc.Convert(context.Background(), config)

	assert.ErrorIs(t, err, csv2hyper.ErrProjectNotFound)
	assert.Equal(t, int64(2), result.Rows)
	assert.Equal(t, csv2hyper.ExitPublishFailed, csv2hyper.ExitCodeForError(err))
}

func validPublishConfig() *csv2hyper.PublishConfig {
	return &csv2hyper.PublishConfig{
		Server:      "https://tableau.example.com",
		Project:     "Default",
		Credentials: csv2hyper.Credentials{Username: "analyst", Password: "secret"},
	}
}
