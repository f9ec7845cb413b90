package csv2hyper

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateMode controls what happens to the extract file when the loader opens it.
type CreateMode int

const (
	CreateAndReplace  CreateMode = iota // Drop an existing file, then create it
	Create                              // Create the file, fail if it exists
	CreateIfNotExists                   // Create the file unless it exists
	CreateNone                          // Attach an existing file
)

// String returns the configuration spelling of the CreateMode.
func (m CreateMode) String() string {
	switch m {
	case CreateAndReplace:
		return "create_and_replace"
	case Create:
		return "create"
	case CreateIfNotExists:
		return "create_if_not_exists"
	case CreateNone:
		return "none"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParseCreateMode parses the configuration spelling of a CreateMode.
// An empty string selects CreateAndReplace.
func ParseCreateMode(s string) (CreateMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "create_and_replace", "replace":
		return CreateAndReplace, nil
	case "create":
		return Create, nil
	case "create_if_not_exists":
		return CreateIfNotExists, nil
	case "none":
		return CreateNone, nil
	}
	return 0, fmt.Errorf("unknown create mode %q (expected create_and_replace|create|create_if_not_exists|none): %w", s, ErrInvalidConfig)
}

// CopySource selects how CSV rows reach the engine.
type CopySource int

const (
	// CopyFromPath lets the engine read the CSV file itself.
	CopyFromPath CopySource = iota
	// CopyFromStream streams the file over the connection (COPY ... FROM STDIN).
	CopyFromStream
)

func (s CopySource) String() string {
	if s == CopyFromStream {
		return "stream"
	}
	return "path"
}

// ParseCopySource parses "path" or "stream". An empty string selects CopyFromPath.
func ParseCopySource(s string) (CopySource, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "path":
		return CopyFromPath, nil
	case "stream":
		return CopyFromStream, nil
	}
	return 0, fmt.Errorf("unknown copy source %q (expected path|stream): %w", s, ErrInvalidConfig)
}

// PublishMode selects how an upload treats an existing datasource of the same name.
type PublishMode int

const (
	PublishOverwrite PublishMode = iota
	PublishAppend
	PublishCreateNew
)

func (m PublishMode) String() string {
	switch m {
	case PublishOverwrite:
		return "overwrite"
	case PublishAppend:
		return "append"
	case PublishCreateNew:
		return "create_new"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// ParsePublishMode parses overwrite|append|create_new. An empty string selects PublishOverwrite.
func ParsePublishMode(s string) (PublishMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return PublishOverwrite, nil
	case "append":
		return PublishAppend, nil
	case "create_new", "createnew":
		return PublishCreateNew, nil
	}
	return 0, fmt.Errorf("unknown publish mode %q (expected overwrite|append|create_new): %w", s, ErrInvalidConfig)
}

// Telemetry controls whether hyperd may send usage data to Tableau.
type Telemetry int

const (
	TelemetryDoNotSend Telemetry = iota
	TelemetrySend
)

// EngineConfig describes how to obtain a Hyper engine.
type EngineConfig struct {
	// HyperdPath is the hyperd executable, or the directory containing it.
	HyperdPath string

	// Endpoint is host:port of an already running engine. When set no process is spawned.
	Endpoint string

	Telemetry Telemetry

	// Parameters are passed to hyperd as --name=value process settings.
	Parameters map[string]string

	// LogDir receives hyperd log files. Defaults to a per-process temporary directory.
	LogDir string

	StartTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Credentials authenticate a Tableau REST session. Either Username/Password or
// TokenName/TokenSecret (personal access token) must be set.
type Credentials struct {
	Username    string
	Password    string
	TokenName   string
	TokenSecret string
}

// IsToken reports whether the credentials are a personal access token.
func (c Credentials) IsToken() bool {
	return c.TokenName != ""
}

// PublishConfig contains everything needed to publish an extract.
type PublishConfig struct {
	// Server is the base URL, e.g. https://tableau.example.com
	Server string

	// Site is the site content URL; empty selects the default site.
	Site string

	Project string

	// Datasource is the published name. Defaults to the file name without extension.
	Datasource string

	Mode PublishMode

	// APIVersion pins the REST API version. Empty asks the server.
	APIVersion string

	Credentials Credentials

	Timeout time.Duration
}

// Validate checks if the PublishConfig has all required fields.
// It returns a multi-error if multiple validation failures occur.
func (c *PublishConfig) Validate() error {
	var errs []error

	if c.Server == "" {
		errs = append(errs, fmt.Errorf("server is required: %w", ErrInvalidConfig))
	} else if !strings.HasPrefix(c.Server, "http://") && !strings.HasPrefix(c.Server, "https://") {
		errs = append(errs, fmt.Errorf("server %q must start with http:// or https://: %w", c.Server, ErrInvalidConfig))
	}

	if c.Project == "" {
		errs = append(errs, fmt.Errorf("project is required: %w", ErrInvalidConfig))
	}

	creds := c.Credentials
	switch {
	case creds.IsToken() && creds.TokenSecret == "":
		errs = append(errs, fmt.Errorf("token secret is required for token %q: %w", creds.TokenName, ErrInvalidConfig))
	case !creds.IsToken() && creds.Username == "":
		errs = append(errs, fmt.Errorf("username or token name is required: %w", ErrInvalidConfig))
	case !creds.IsToken() && creds.Password == "":
		errs = append(errs, fmt.Errorf("password is required for user %q: %w", creds.Username, ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// ConvertConfig contains all parameters needed for a CSV to extract conversion.
type ConvertConfig struct {
	CSVPath     string
	ExtractPath string

	// Table and Schema name the destination table. Table defaults to DefaultTableName.
	Table  string
	Schema string

	// DTypeVersion selects the dtype system (see hypertype.NewMapping).
	DTypeVersion string

	// DTypes overrides inferred dtypes by column name.
	DTypes map[string]string

	// TextColumns are widened to nullable TEXT after the schema is built.
	TextColumns []string

	// InferRows is the number of rows sampled for inference; 0 samples every row.
	InferRows int

	ParseDates bool
	SnakeCase  bool

	CreateMode CreateMode
	CopySource CopySource

	// Force bypasses interactive approval when an existing extract is replaced.
	Force bool

	Engine EngineConfig

	// Publish, when non-nil, publishes the extract after a successful load.
	Publish *PublishConfig

	Timeout time.Duration
	Verbose bool
}

// Validate checks if the ConvertConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *ConvertConfig) Validate() error {
	var errs []error

	if c.CSVPath == "" {
		errs = append(errs, fmt.Errorf("CSV path is required: %w", ErrInvalidConfig))
	}

	if c.ExtractPath == "" {
		errs = append(errs, fmt.Errorf("extract path is required: %w", ErrInvalidConfig))
	} else if c.CSVPath != "" && c.CSVPath == c.ExtractPath {
		errs = append(errs, fmt.Errorf("extract path must differ from the CSV path: %w", ErrInvalidConfig))
	}

	if c.InferRows < 0 {
		errs = append(errs, fmt.Errorf("infer rows cannot be negative: %w", ErrInvalidConfig))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	// Force requires the replacing create mode
	if c.Force && c.CreateMode != CreateAndReplace {
		errs = append(errs, fmt.Errorf("force requires create mode %s: %w", CreateAndReplace, ErrInvalidConfig))
	}

	if c.Engine.HyperdPath == "" && c.Engine.Endpoint == "" {
		errs = append(errs, fmt.Errorf("hyperd path or engine endpoint is required: %w", ErrInvalidConfig))
	}

	if c.Publish != nil {
		if err := c.Publish.Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// StageTiming records how long one stage of a run took.
type StageTiming struct {
	Stage   string
	Elapsed time.Duration
}

// ConvertResult summarizes a finished conversion.
type ConvertResult struct {
	Rows         int64
	DatasourceID string
	Timings      []StageTiming
}

// Total returns the summed duration of all stages.
func (r *ConvertResult) Total() time.Duration {
	var total time.Duration
	for _, t := range r.Timings {
		total += t.Elapsed
	}
	return total
}
