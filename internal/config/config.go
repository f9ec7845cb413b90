package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// ErrConfigNotFound is returned when the config file does not exist.
// Callers can check for this with errors.Is(err, config.ErrConfigNotFound).
var ErrConfigNotFound = errors.New("config file not found")

// DefaultConfigFile is read when --config is not given.
const DefaultConfigFile = "csv2hyper.yaml"

type EngineConfig struct {
	HyperdPath      string            `yaml:"hyperd_path,omitempty"`
	Endpoint        string            `yaml:"endpoint,omitempty"`
	Telemetry       bool              `yaml:"telemetry,omitempty"`
	Parameters      map[string]string `yaml:"parameters,omitempty"`
	LogDir          string            `yaml:"log_dir,omitempty"`
	StartTimeout    time.Duration     `yaml:"start_timeout,omitempty"`
	ShutdownTimeout time.Duration     `yaml:"shutdown_timeout,omitempty"`
}

type TableauConfig struct {
	Server     string        `yaml:"server,omitempty"`
	Site       string        `yaml:"site,omitempty"`
	Project    string        `yaml:"project,omitempty"`
	Datasource string        `yaml:"datasource,omitempty"`
	Mode       string        `yaml:"mode,omitempty"`
	APIVersion string        `yaml:"api_version,omitempty"`
	Username   string        `yaml:"username,omitempty"`
	TokenName  string        `yaml:"token_name,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// Config is the content of csv2hyper.yaml.
type Config struct {
	DTypeVersion string            `yaml:"dtype_version,omitempty"`
	Table        string            `yaml:"table,omitempty"`
	Schema       string            `yaml:"schema,omitempty"`
	DTypes       map[string]string `yaml:"dtypes,omitempty"`
	InferRows    *int              `yaml:"infer_rows,omitempty"`
	ParseDates   bool              `yaml:"parse_dates,omitempty"`
	SnakeCase    bool              `yaml:"snake_case,omitempty"`
	CreateMode   string            `yaml:"create_mode,omitempty"`
	CopySource   string            `yaml:"copy_source,omitempty"`
	Timeout      time.Duration     `yaml:"timeout,omitempty"`
	Engine       EngineConfig      `yaml:"engine"`
	Tableau      TableauConfig     `yaml:"tableau"`
}

// Env holds the settings read from environment variables. Secrets are only
// ever read from here, never from the config file.
type Env struct {
	HyperdPath   string        `envconfig:"CSV2HYPER_HYPERD_PATH"`
	Endpoint     string        `envconfig:"CSV2HYPER_ENDPOINT"`
	DTypeVersion string        `envconfig:"CSV2HYPER_DTYPE_VERSION"`
	Timeout      time.Duration `envconfig:"CSV2HYPER_TIMEOUT"`

	TableauServer      string `envconfig:"TABLEAU_SERVER"`
	TableauSite        string `envconfig:"TABLEAU_SITE"`
	TableauProject     string `envconfig:"TABLEAU_PROJECT"`
	TableauAPIVersion  string `envconfig:"TABLEAU_API_VERSION"`
	TableauUsername    string `envconfig:"TABLEAU_USERNAME"`
	TableauPassword    string `envconfig:"TABLEAU_PASSWORD"    json:"-"`
	TableauTokenName   string `envconfig:"TABLEAU_TOKEN_NAME"`
	TableauTokenSecret string `envconfig:"TABLEAU_TOKEN_SECRET" json:"-"`
}

// Load reads the YAML file at path. Durations are Go duration strings such as
// "90s" or "5m"; yaml.v3 rejects bare numbers for them.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadEnv reads the environment variables listed on Env.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w: %w", err, csv2hyper.ErrInvalidConfig)
	}
	return &env, nil
}

// ApplyEnv overrides file values with the non-empty environment values.
func (c *Config) ApplyEnv(env *Env) {
	if env == nil {
		return
	}
	override(&c.Engine.HyperdPath, env.HyperdPath)
	override(&c.Engine.Endpoint, env.Endpoint)
	override(&c.DTypeVersion, env.DTypeVersion)
	if env.Timeout > 0 {
		c.Timeout = env.Timeout
	}

	override(&c.Tableau.Server, env.TableauServer)
	override(&c.Tableau.Site, env.TableauSite)
	override(&c.Tableau.Project, env.TableauProject)
	override(&c.Tableau.APIVersion, env.TableauAPIVersion)
	override(&c.Tableau.Username, env.TableauUsername)
	override(&c.Tableau.TokenName, env.TableauTokenName)
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// ToEngineConfig converts the engine section, applying default timeouts.
func (c *Config) ToEngineConfig() (csv2hyper.EngineConfig, error) {
	start, err := durationOrDefault("engine.start_timeout", c.Engine.StartTimeout, csv2hyper.DefaultEngineStartTimeout)
	if err != nil {
		return csv2hyper.EngineConfig{}, err
	}
	shutdown, err := durationOrDefault("engine.shutdown_timeout", c.Engine.ShutdownTimeout, csv2hyper.DefaultEngineShutdownTimeout)
	if err != nil {
		return csv2hyper.EngineConfig{}, err
	}

	parameters := csv2hyper.DefaultEngineParameters()
	for k, v := range c.Engine.Parameters {
		parameters[k] = v
	}

	telemetry := csv2hyper.TelemetryDoNotSend
	if c.Engine.Telemetry {
		telemetry = csv2hyper.TelemetrySend
	}

	return csv2hyper.EngineConfig{
		HyperdPath:      c.Engine.HyperdPath,
		Endpoint:        c.Engine.Endpoint,
		Telemetry:       telemetry,
		Parameters:      parameters,
		LogDir:          c.Engine.LogDir,
		StartTimeout:    start,
		ShutdownTimeout: shutdown,
	}, nil
}

// ToPublishConfig converts the tableau section. Secrets come from env.
func (c *Config) ToPublishConfig(env *Env) (csv2hyper.PublishConfig, error) {
	mode, err := csv2hyper.ParsePublishMode(c.Tableau.Mode)
	if err != nil {
		return csv2hyper.PublishConfig{}, err
	}
	timeout, err := durationOrDefault("tableau.timeout", c.Tableau.Timeout, 0)
	if err != nil {
		return csv2hyper.PublishConfig{}, err
	}

	cfg := csv2hyper.PublishConfig{
		Server:     c.Tableau.Server,
		Site:       c.Tableau.Site,
		Project:    c.Tableau.Project,
		Datasource: c.Tableau.Datasource,
		Mode:       mode,
		APIVersion: c.Tableau.APIVersion,
		Credentials: csv2hyper.Credentials{
			Username:  c.Tableau.Username,
			TokenName: c.Tableau.TokenName,
		},
		Timeout: timeout,
	}
	if env != nil {
		cfg.Credentials.Password = env.TableauPassword
		cfg.Credentials.TokenSecret = env.TableauTokenSecret
	}
	return cfg, nil
}

// EffectiveTimeout returns the overall timeout, or def when none is configured.
func (c *Config) EffectiveTimeout(def time.Duration) (time.Duration, error) {
	return durationOrDefault("timeout", c.Timeout, def)
}

// durationOrDefault returns def for an unset (zero) duration.
func durationOrDefault(field string, d, def time.Duration) (time.Duration, error) {
	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative: %w", field, csv2hyper.ErrInvalidConfig)
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
