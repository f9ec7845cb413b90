package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vvka-141/csv2hyper/internal/services"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

var publishCmd = &cobra.Command{
	Use:   "publish <extract_path>",
	Short: "Publish a Hyper extract to Tableau Server or Cloud",
	Long: `Publish uploads an existing .hyper extract as a datasource.

The publish command:
1. Resolves the REST API version (--api-version, or asks the server)
2. Signs in with a user/password or a personal access token
3. Looks up the target project by name
4. Uploads the extract (in chunks when it is larger than 64 MiB)
5. Signs out, also when an earlier step failed

The datasource id is printed on stdout.

Examples:
  # Overwrite the "sales" datasource in project Finance
  TABLEAU_PASSWORD=... csv2hyper publish sales.hyper \
    --server https://tableau.example.com --project Finance --username analyst

  # Append rows to an existing datasource on a named site
  csv2hyper publish increment.hyper --site finance --project Default \
    --datasource sales --mode append --token-name ci`,
	Args:              RequireExtractPath,
	ValidArgsFunction: completeExtractArg,
	RunE:              runPublish,
}

type publishCmdFlagValues struct {
	timeout time.Duration
	tableau publishFlagValues
}

var publishFlags publishCmdFlagValues

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().DurationVar(&publishFlags.timeout, "timeout", csv2hyper.DefaultTimeout,
		"Upper bound for the whole publish, upload included")
	registerPublishFlags(publishCmd, &publishFlags.tableau)
}

// buildPublishCommandConfig resolves the publish target for the publish command.
func buildPublishCommandConfig(cmd *cobra.Command, verbose bool) (*csv2hyper.PublishConfig, error) {
	s, err := loadSettings(cmd, verbose)
	if err != nil {
		return nil, err
	}

	cfg, err := buildPublishConfig(s, publishFlags.tableau, verbose)
	if err != nil {
		return nil, err
	}

	// The publish command's own timeout wins over tableau.timeout when given
	if cmd.Flags().Changed("timeout") || cfg.Timeout == 0 {
		if cfg.Timeout, err = resolveEffectiveTimeout(cmd, s, publishFlags.timeout); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runPublish(cmd *cobra.Command, args []string) error {
	extractPath := args[0]
	verbose := getVerboseFlag(cmd)

	if _, err := os.Stat(extractPath); err != nil {
		return fmt.Errorf("cannot publish %s: %w", extractPath, err)
	}

	cfg, err := buildPublishCommandConfig(cmd, verbose)
	if err != nil {
		return err
	}

	prog := startProgress(verbose, fmt.Sprintf("Publishing %s", extractPath))
	publisher := services.NewPublisher(prog.logger)

	ctx, cancel := signalContext("publish")
	defer cancel()

	id, err := publisher.Publish(ctx, *cfg, extractPath)
	prog.stop()
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	fmt.Println(id)
	return nil
}
