package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/csv2hyper/internal/config"
)

const banner = `  ┌─┐┌─┐┬  ┬┌─┐┬ ┬┬ ┬┌─┐┌─┐┬─┐
  │  └─┐└┐┌┘┌─┘├─┤└┬┘├─┘├┤ ├┬┘
  └─┘└─┘ └┘ └─┘┴ ┴ ┴ ┴  └─┘┴└─`

var rootCmd = &cobra.Command{
	Use:   "csv2hyper",
	Short: "Convert CSV files to Tableau Hyper extracts",
	Long: banner + `

csv2hyper describes a CSV file with column dtypes, maps every dtype to a Hyper
column type, and bulk-loads the rows into a .hyper extract through a local
hyperd engine with a single COPY. The finished extract can be published to
Tableau Server or Tableau Cloud as a datasource.

Settings are resolved in this order (highest first):
  command-line flags > environment (.env is loaded) > csv2hyper.yaml > defaults

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Engine could not be started or reached
  12 - User denied replacing an existing extract
  13 - Loading the CSV failed
  14 - Column dtype has no Hyper type
  15 - Publishing failed (sign-in, project lookup or upload)`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for csv2hyper")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
	rootCmd.PersistentFlags().String("config", config.DefaultConfigFile,
		"Path to the YAML configuration file (ignored when missing)")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

// getConfigFlag returns the --config path, falling back to the default file.
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		return config.DefaultConfigFile
	}
	return path
}
