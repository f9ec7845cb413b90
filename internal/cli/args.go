package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RequireCSVAndExtract validates the <csv_path> <extract_path> argument pair.
func RequireCSVAndExtract(cmd *cobra.Command, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf(`missing required argument: <csv_path> <extract_path>

Usage: %s

Example:
  %s sales.csv sales.hyper`, cmd.UseLine(), cmd.CommandPath())
	}
	if len(args) > 2 {
		return fmt.Errorf("accepts 2 arg(s), received %d", len(args))
	}
	return nil
}

// RequireExtractPath validates that exactly one extract_path argument is provided.
func RequireExtractPath(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(`missing required argument: <extract_path>

Usage: %s

Example:
  %s sales.hyper --server https://tableau.example.com --project Default`, cmd.UseLine(), cmd.CommandPath())
	}
	if len(args) > 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	return nil
}
