package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/vvka-141/csv2hyper/internal/frame"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

const (
	demoTable       = "RandomValues"
	demoExtractName = "test.hyper"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Generate a synthetic CSV and convert it",
	Long: `Demo writes a CSV with an id, a normally distributed value and text
columns, converts it into test.hyper (table RandomValues) and prints the start
and end time together with the elapsed time of every stage.

Use it to check a hyperd installation and to measure load throughput.

Examples:
  csv2hyper demo --hyperd /opt/tableau/hyper
  csv2hyper demo --rows 1000000 --wide 20 --gzip --dir /tmp/bench`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

type demoFlagValues struct {
	rows       int
	wide       int
	dir        string
	gzip       bool
	copySource string
	force      bool
	timeout    time.Duration
	engine     engineFlagValues
}

var demoFlags demoFlagValues

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().IntVar(&demoFlags.rows, "rows", 10000, "Number of generated rows")
	demoCmd.Flags().IntVar(&demoFlags.wide, "wide", 0, "Number of extra text columns")
	demoCmd.Flags().StringVar(&demoFlags.dir, "dir", "test_data", "Directory for the CSV and the extract")
	demoCmd.Flags().BoolVar(&demoFlags.gzip, "gzip", false, "Write test.csv.gz instead of test.csv")
	demoCmd.Flags().StringVar(&demoFlags.copySource, "copy-source", "", "path|stream (default path)")
	demoCmd.Flags().BoolVar(&demoFlags.force, "force", false, "Replace an existing test.hyper without prompting")
	demoCmd.Flags().DurationVar(&demoFlags.timeout, "timeout", csv2hyper.DefaultTimeout, "Upper bound for the whole run")
	registerEngineFlags(demoCmd, &demoFlags.engine)

	_ = demoCmd.RegisterFlagCompletionFunc("copy-source", completeCopySources)
}

// writeDemoCSV generates the demo dataset in dir and returns its path and frame.
func writeDemoCSV(dir string, rows, wide int, compress bool) (string, *frame.Table, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	name := "test.csv"
	if compress {
		name += ".gz"
	}
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if compress {
		gz = gzip.NewWriter(f)
		w = gz
	}

	table, err := frame.Generate(w, frame.GenerateOptions{Rows: rows, Wide: wide, Seed: uint64(time.Now().UnixNano())})
	if err != nil {
		return "", nil, err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return "", nil, fmt.Errorf("failed to finish %s: %w", path, err)
		}
	}
	if err := f.Close(); err != nil {
		return "", nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, table, nil
}

// buildDemoConfig writes the demo CSV and returns the conversion for it.
// The generated dtypes are passed as overrides so nothing is left to inference.
func buildDemoConfig(cmd *cobra.Command, verbose bool) (csv2hyper.ConvertConfig, error) {
	s, err := loadSettings(cmd, verbose)
	if err != nil {
		return csv2hyper.ConvertConfig{}, err
	}

	engine, err := resolveEngineConfig(s, demoFlags.engine)
	if err != nil {
		return csv2hyper.ConvertConfig{}, err
	}
	copySource, err := csv2hyper.ParseCopySource(firstNonEmpty(demoFlags.copySource, s.file.CopySource))
	if err != nil {
		return csv2hyper.ConvertConfig{}, err
	}
	timeout, err := resolveEffectiveTimeout(cmd, s, demoFlags.timeout)
	if err != nil {
		return csv2hyper.ConvertConfig{}, err
	}

	csvPath, table, err := writeDemoCSV(demoFlags.dir, demoFlags.rows, demoFlags.wide, demoFlags.gzip)
	if err != nil {
		return csv2hyper.ConvertConfig{}, err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Wrote %d rows to %s\n", demoFlags.rows, csvPath)
	}

	dtypes := make(map[string]string, table.Len())
	for _, col := range table.Columns() {
		dtypes[col.Name] = col.DType
	}

	return csv2hyper.ConvertConfig{
		CSVPath:      csvPath,
		ExtractPath:  filepath.Join(demoFlags.dir, demoExtractName),
		Table:        demoTable,
		DTypeVersion: s.file.DTypeVersion,
		DTypes:       dtypes,
		InferRows:    1,
		CreateMode:   csv2hyper.CreateAndReplace,
		CopySource:   copySource,
		Force:        demoFlags.force,
		Engine:       engine,
		Timeout:      timeout,
		Verbose:      verbose,
	}, nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	config, err := buildDemoConfig(cmd, verbose)
	if err != nil {
		return err
	}

	return convert(config, fmt.Sprintf("Loading %d demo rows", demoFlags.rows))
}
