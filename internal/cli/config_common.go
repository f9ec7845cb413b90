package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/csv2hyper/internal/config"
	"github.com/vvka-141/csv2hyper/internal/params"
	"github.com/vvka-141/csv2hyper/internal/tui"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// settings is csv2hyper.yaml with the environment applied on top.
type settings struct {
	file *config.Config
	env  *config.Env
}

// promptSecret is replaced in tests.
var promptSecret = tui.PromptSecretIfInteractive

// loadSettings loads .env, the YAML config and the environment.
// A missing config file is only an error when --config was given explicitly.
func loadSettings(cmd *cobra.Command, verbose bool) (*settings, error) {
	_ = godotenv.Load()

	path := getConfigFlag(cmd)
	cfg, err := config.Load(path)
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		if cmd.Flags().Changed("config") {
			return nil, fmt.Errorf("config file %s not found: %w", path, csv2hyper.ErrInvalidConfig)
		}
		cfg = &config.Config{}
	case err != nil:
		return nil, fmt.Errorf("failed to load %s: %w: %w", path, err, csv2hyper.ErrInvalidConfig)
	case verbose:
		fmt.Fprintf(os.Stderr, "[VERBOSE] Loaded configuration from %s\n", path)
	}

	env, err := config.LoadEnv()
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(env)

	return &settings{file: cfg, env: env}, nil
}

// resolveEffectiveTimeout returns --timeout when set, else the configured
// timeout (environment or file), else the default.
func resolveEffectiveTimeout(cmd *cobra.Command, s *settings, flagTimeout time.Duration) (time.Duration, error) {
	if cmd.Flags().Changed("timeout") {
		return flagTimeout, nil
	}
	return s.file.EffectiveTimeout(csv2hyper.DefaultTimeout)
}

// engineFlagValues holds the flags that locate the Hyper engine.
type engineFlagValues struct {
	hyperd   string
	endpoint string
	params   []string
}

func registerEngineFlags(cmd *cobra.Command, f *engineFlagValues) {
	cmd.Flags().StringVar(&f.hyperd, "hyperd", "",
		"Path to the hyperd executable or the directory containing it\n"+
			"Precedence: --hyperd > $CSV2HYPER_HYPERD_PATH > engine.hyperd_path")
	cmd.Flags().StringVar(&f.endpoint, "endpoint", "",
		"host:port of an already running engine; no process is spawned\n"+
			"Precedence: --endpoint > $CSV2HYPER_ENDPOINT > engine.endpoint")
	cmd.Flags().StringArrayVar(&f.params, "engine-param", nil,
		"hyperd process setting as name=value (can be specified multiple times)\n"+
			"Example: --engine-param log_file_max_count=5")
}

// resolveEngineConfig applies engine flags over the configured engine section.
func resolveEngineConfig(s *settings, f engineFlagValues) (csv2hyper.EngineConfig, error) {
	engine, err := s.file.ToEngineConfig()
	if err != nil {
		return csv2hyper.EngineConfig{}, err
	}

	if f.hyperd != "" {
		engine.HyperdPath = f.hyperd
	}
	if f.endpoint != "" {
		engine.Endpoint = f.endpoint
	}

	extra, err := params.ParseKeyValuePairs("engine-param", f.params)
	if err != nil {
		return csv2hyper.EngineConfig{}, fmt.Errorf("%w: %w", err, csv2hyper.ErrInvalidConfig)
	}
	for k, v := range extra {
		engine.Parameters[k] = v
	}
	return engine, nil
}

// publishFlagValues holds the Tableau flags shared by convert and publish.
type publishFlagValues struct {
	server     string
	site       string
	project    string
	datasource string
	mode       string
	apiVersion string
	username   string
	tokenName  string
}

func registerPublishFlags(cmd *cobra.Command, f *publishFlagValues) {
	cmd.Flags().StringVar(&f.server, "server", "",
		"Tableau Server or Cloud URL, e.g. https://tableau.example.com\n"+
			"Precedence: --server > $TABLEAU_SERVER > tableau.server")
	cmd.Flags().StringVar(&f.site, "site", "",
		"Site content URL (empty selects the default site)")
	cmd.Flags().StringVar(&f.project, "project", "",
		"Name of the project that receives the datasource")
	cmd.Flags().StringVar(&f.datasource, "datasource", "",
		"Published datasource name (default: extract file name without extension)")
	cmd.Flags().StringVar(&f.mode, "mode", "",
		"What to do with an existing datasource: overwrite|append|create_new (default overwrite)")
	cmd.Flags().StringVar(&f.apiVersion, "api-version", "",
		"Pin the REST API version (default: ask the server)")
	cmd.Flags().StringVar(&f.username, "username", "",
		"Sign in with this user; the password comes from $TABLEAU_PASSWORD or a prompt")
	cmd.Flags().StringVar(&f.tokenName, "token-name", "",
		"Sign in with this personal access token; the secret comes from $TABLEAU_TOKEN_SECRET or a prompt")

	_ = cmd.RegisterFlagCompletionFunc("mode", completePublishModes)
}

// buildPublishConfig resolves the publish target. Secrets are read from the
// environment, or prompted for on a terminal.
func buildPublishConfig(s *settings, f publishFlagValues, verbose bool) (*csv2hyper.PublishConfig, error) {
	tableau := s.file.Tableau
	setIfNotEmpty(&tableau.Server, f.server)
	setIfNotEmpty(&tableau.Site, f.site)
	setIfNotEmpty(&tableau.Project, f.project)
	setIfNotEmpty(&tableau.Datasource, f.datasource)
	setIfNotEmpty(&tableau.Mode, f.mode)
	setIfNotEmpty(&tableau.APIVersion, f.apiVersion)
	setIfNotEmpty(&tableau.TokenName, f.tokenName)
	// An explicit user switches from token to password sign-in
	if f.username != "" {
		tableau.Username = f.username
		if f.tokenName == "" {
			tableau.TokenName = ""
		}
	}

	resolved := *s.file
	resolved.Tableau = tableau
	cfg, err := resolved.ToPublishConfig(s.env)
	if err != nil {
		return nil, err
	}

	if err := resolveSecret(&cfg.Credentials); err != nil {
		return nil, err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Publish target resolved:\n")
		fmt.Fprintf(os.Stderr, "  Server: %s\n", cfg.Server)
		fmt.Fprintf(os.Stderr, "  Site: %q\n", cfg.Site)
		fmt.Fprintf(os.Stderr, "  Project: %s\n", cfg.Project)
		fmt.Fprintf(os.Stderr, "  Mode: %s\n", cfg.Mode)
		if cfg.Credentials.IsToken() {
			fmt.Fprintf(os.Stderr, "  Auth: personal access token %s\n", cfg.Credentials.TokenName)
		} else {
			fmt.Fprintf(os.Stderr, "  Auth: user %s\n", cfg.Credentials.Username)
		}
	}

	return &cfg, nil
}

func setIfNotEmpty(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func resolveSecret(creds *csv2hyper.Credentials) error {
	var (
		label  string
		envVar string
		target *string
	)
	switch {
	case creds.IsToken() && creds.TokenSecret == "":
		label, envVar, target = fmt.Sprintf("Secret for token %s", creds.TokenName), "TABLEAU_TOKEN_SECRET", &creds.TokenSecret
	case !creds.IsToken() && creds.Username != "" && creds.Password == "":
		label, envVar, target = fmt.Sprintf("Password for %s", creds.Username), "TABLEAU_PASSWORD", &creds.Password
	default:
		return nil
	}

	secret, err := promptSecret(label)
	if errors.Is(err, tui.ErrNotInteractive) {
		return fmt.Errorf("%s is not set and there is no terminal to prompt on: %w", envVar, csv2hyper.ErrInvalidConfig)
	}
	if err != nil {
		return err
	}
	*target = secret
	return nil
}
