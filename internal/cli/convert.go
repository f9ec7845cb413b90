package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/spf13/cobra"

	"github.com/vvka-141/csv2hyper/internal/db"
	"github.com/vvka-141/csv2hyper/internal/db/manager"
	"github.com/vvka-141/csv2hyper/internal/params"
	"github.com/vvka-141/csv2hyper/internal/services"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

var convertCmd = &cobra.Command{
	Use:   "convert <csv_path> <extract_path>",
	Short: "Convert a CSV file into a Hyper extract",
	Long: `Convert loads a CSV file into a table of a Tableau Hyper extract.

The convert command:
1. Samples the CSV and infers a dtype per column (override with --dtype)
2. Maps every dtype to a Hyper column type and builds the table definition
3. Asks for approval when an existing extract would be replaced
4. Starts hyperd (or attaches to --endpoint) and creates the extract
5. Creates the table and loads every row with a single COPY
6. Optionally publishes the extract to Tableau (with --publish)

A failed COPY rolls back the table; no partial rows are left in the extract.

Arguments:
  csv_path        CSV file with a header row (.csv or .csv.gz)
  extract_path    .hyper file to create or load into

Password Authentication:
  For security, Tableau secrets are NOT accepted as CLI flags. Use one of:
    1. $TABLEAU_PASSWORD or $TABLEAU_TOKEN_SECRET environment variables
    2. A .env file in the working directory
    3. The interactive prompt (terminal only)

Examples:
  # Infer the schema and create sales.hyper
  csv2hyper convert sales.csv sales.hyper --hyperd /opt/tableau/hyper

  # Override dtypes and widen a free-text column
  csv2hyper convert orders.csv orders.hyper \
    --dtype order_id=Int32 --dtype shipped=datetime64[ns] \
    --text-column comment --snake-case

  # Replace an existing extract without prompting (CI/CD)
  csv2hyper convert sales.csv sales.hyper --force

  # Convert and publish with a personal access token
  TABLEAU_TOKEN_SECRET=... csv2hyper convert sales.csv sales.hyper \
    --publish --server https://tableau.example.com \
    --project Finance --token-name ci`,
	Args:              RequireCSVAndExtract,
	ValidArgsFunction: completeConvertArgs,
	RunE:              runConvert,
}

type convertFlagValues struct {
	table, schema string
	dtypeVersion  string
	dtypes        []string
	dtypeFile     string
	textColumns   []string
	inferRows     int
	parseDates    bool
	snakeCase     bool
	createMode    string
	copySource    string
	force         bool
	timeout       time.Duration
	publish       bool
	engine        engineFlagValues
	tableau       publishFlagValues
}

var convertFlags convertFlagValues

func init() {
	rootCmd.AddCommand(convertCmd)
	registerConvertFlags(convertCmd, &convertFlags)
}

func registerConvertFlags(cmd *cobra.Command, f *convertFlagValues) {
	// Table definition flags
	cmd.Flags().StringVar(&f.table, "table", "",
		"Destination table name (default: "+csv2hyper.DefaultTableName+")")
	cmd.Flags().StringVar(&f.schema, "schema", "",
		"Destination schema; created when missing (default: the extract's public schema)")
	cmd.Flags().StringVar(&f.dtypeVersion, "dtype-version", "",
		"dtype system version; versions before 1.0.0 have no string/boolean dtypes\n"+
			"(default: "+csv2hyper.DefaultDTypeVersion+", or $CSV2HYPER_DTYPE_VERSION)")
	cmd.Flags().StringArrayVar(&f.dtypes, "dtype", nil,
		"Override a column dtype as column=dtype (can be specified multiple times)\n"+
			"Example: --dtype id=Int64 --dtype created=datetime64[ns]")
	cmd.Flags().StringVar(&f.dtypeFile, "dtype-file", "",
		"Read column=dtype overrides from a file; --dtype wins over the file")
	cmd.Flags().StringArrayVar(&f.textColumns, "text-column", nil,
		"Load a column as nullable TEXT regardless of its dtype (can be specified multiple times)")
	cmd.Flags().IntVar(&f.inferRows, "infer-rows", csv2hyper.DefaultInferRows,
		"Rows sampled for dtype inference; 0 samples the whole file")
	cmd.Flags().BoolVar(&f.parseDates, "parse-dates", false,
		"Infer datetime64 dtypes for date and timestamp columns")
	cmd.Flags().BoolVar(&f.snakeCase, "snake-case", false,
		"Normalize header names to snake_case before mapping")

	// Load workflow flags
	cmd.Flags().StringVar(&f.createMode, "create-mode", "",
		"create_and_replace|create|create_if_not_exists|none (default create_and_replace)")
	cmd.Flags().StringVar(&f.copySource, "copy-source", "",
		"path: hyperd reads the CSV itself; stream: send rows over the connection (default path)")
	cmd.Flags().BoolVar(&f.force, "force", false,
		"Skip interactive approval when an existing extract is replaced\n"+
			"Only affects the confirmation dialog, not load behavior")
	cmd.Flags().DurationVar(&f.timeout, "timeout", csv2hyper.DefaultTimeout,
		"Upper bound for the whole run, publish included\n"+
			"Examples: 30s, 5m, 1h30m")

	registerEngineFlags(cmd, &f.engine)

	cmd.Flags().BoolVar(&f.publish, "publish", false,
		"Publish the extract to Tableau after a successful load")
	registerPublishFlags(cmd, &f.tableau)

	_ = cmd.RegisterFlagCompletionFunc("create-mode", completeCreateModes)
	_ = cmd.RegisterFlagCompletionFunc("copy-source", completeCopySources)
	_ = cmd.RegisterFlagCompletionFunc("dtype", completeDTypeOverrides)
}

// buildConvertConfig builds a ConvertConfig from CLI flags, the environment
// and csv2hyper.yaml. Flags win over the environment, which wins over the file.
func buildConvertConfig(cmd *cobra.Command, args []string, verbose bool) (csv2hyper.ConvertConfig, error) {
	s, err := loadSettings(cmd, verbose)
	if err != nil {
		return csv2hyper.ConvertConfig{}, err
	}
	file := s.file

	cfg := csv2hyper.ConvertConfig{
		CSVPath:      args[0],
		ExtractPath:  args[1],
		Table:        firstNonEmpty(convertFlags.table, file.Table, csv2hyper.DefaultTableName),
		Schema:       firstNonEmpty(convertFlags.schema, file.Schema),
		DTypeVersion: firstNonEmpty(convertFlags.dtypeVersion, file.DTypeVersion),
		TextColumns:  convertFlags.textColumns,
		ParseDates:   convertFlags.parseDates || file.ParseDates,
		SnakeCase:    convertFlags.snakeCase || file.SnakeCase,
		Force:        convertFlags.force,
		Verbose:      verbose,
	}

	cfg.InferRows = convertFlags.inferRows
	if !cmd.Flags().Changed("infer-rows") && file.InferRows != nil {
		cfg.InferRows = *file.InferRows
	}

	cfg.DTypes, err = resolveDTypeOverrides(file.DTypes, convertFlags.dtypeFile, convertFlags.dtypes, verbose)
	if err != nil {
		return csv2hyper.ConvertConfig{}, err
	}

	if cfg.CreateMode, err = csv2hyper.ParseCreateMode(firstNonEmpty(convertFlags.createMode, file.CreateMode)); err != nil {
		return csv2hyper.ConvertConfig{}, err
	}
	if cfg.CopySource, err = csv2hyper.ParseCopySource(firstNonEmpty(convertFlags.copySource, file.CopySource)); err != nil {
		return csv2hyper.ConvertConfig{}, err
	}

	if cfg.Engine, err = resolveEngineConfig(s, convertFlags.engine); err != nil {
		return csv2hyper.ConvertConfig{}, err
	}

	if cfg.Timeout, err = resolveEffectiveTimeout(cmd, s, convertFlags.timeout); err != nil {
		return csv2hyper.ConvertConfig{}, err
	}

	if convertFlags.publish {
		if cfg.Publish, err = buildPublishConfig(s, convertFlags.tableau, verbose); err != nil {
			return csv2hyper.ConvertConfig{}, err
		}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Conversion resolved:\n")
		fmt.Fprintf(os.Stderr, "  Table: %s\n", cfg.Table)
		fmt.Fprintf(os.Stderr, "  Create Mode: %s\n", cfg.CreateMode)
		fmt.Fprintf(os.Stderr, "  Copy Source: %s\n", cfg.CopySource)
		if cfg.Engine.Endpoint != "" {
			fmt.Fprintf(os.Stderr, "  Engine: %s\n", cfg.Engine.Endpoint)
		} else {
			fmt.Fprintf(os.Stderr, "  Engine: %s\n", cfg.Engine.HyperdPath)
		}
		fmt.Fprintf(os.Stderr, "  Timeout: %s\n", cfg.Timeout)
	}

	return cfg, nil
}

// resolveDTypeOverrides merges csv2hyper.yaml dtypes < --dtype-file < --dtype.
func resolveDTypeOverrides(fromFile map[string]string, dtypeFile string, pairs []string, verbose bool) (map[string]string, error) {
	dtypes := make(map[string]string, len(fromFile))
	for k, v := range fromFile {
		dtypes[k] = v
	}

	if dtypeFile != "" {
		content, err := os.ReadFile(dtypeFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read dtype file '%s': %w", dtypeFile, err)
		}
		fromDTypeFile, err := params.ParseFile(content)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dtype file '%s': %w: %w", dtypeFile, err, csv2hyper.ErrInvalidConfig)
		}
		for k, v := range fromDTypeFile {
			dtypes[k] = v
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "[VERBOSE] Loaded %d dtype override(s) from %s\n", len(fromDTypeFile), dtypeFile)
		}
	}

	cliDTypes, err := params.ParseKeyValuePairs("dtype", pairs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", err, csv2hyper.ErrInvalidConfig)
	}
	for k, v := range cliDTypes {
		dtypes[k] = v
	}

	if len(dtypes) == 0 {
		return nil, nil
	}
	return dtypes, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func runConvert(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	config, err := buildConvertConfig(cmd, args, verbose)
	if err != nil {
		return err
	}

	return convert(config, fmt.Sprintf("Converting %s", config.CSVPath))
}

// convert runs one conversion with console progress and prints the summary.
func convert(config csv2hyper.ConvertConfig, message string) error {
	prog := startProgress(config.Verbose, message)
	approver := prog.approver(config.Force, config.Verbose)
	extracts := manager.New()

	converter := services.NewConversionService(
		services.EngineLoaderFactory(extracts, prog.logger, db.WithNoticeHandler(func(n *pgconn.Notice) {
			prog.logger.Verbose("engine %s: %s", n.Severity, n.Message)
		})),
		services.NewPublisher(prog.logger),
		approver,
		extracts,
		prog.logger,
	)

	ctx, cancel := signalContext("conversion")
	defer cancel()

	started := time.Now()
	result, err := converter.Convert(ctx, config)
	prog.stop()

	if result != nil && len(result.Timings) > 0 {
		printSummary(os.Stdout, started, time.Now(), result)
	}
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	return nil
}
