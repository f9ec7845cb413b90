package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vvka-141/csv2hyper/internal/hypertype"
	"github.com/vvka-141/csv2hyper/internal/tui"
)

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "Show the dtype to Hyper type mapping",
	Long: `Types prints the table used to map column dtypes to Hyper column types
for the configured dtype system version.

With --inverse it prints the table used to read Hyper columns back as dtypes.

Examples:
  csv2hyper types
  csv2hyper types --dtype-version 0.25.3
  csv2hyper types --inverse`,
	Args: cobra.NoArgs,
	RunE: runTypes,
}

type typesFlagValues struct {
	dtypeVersion string
	inverse      bool
}

var typesFlags typesFlagValues

func init() {
	rootCmd.AddCommand(typesCmd)

	typesCmd.Flags().StringVar(&typesFlags.dtypeVersion, "dtype-version", "",
		"dtype system version (default: configured version)")
	typesCmd.Flags().BoolVar(&typesFlags.inverse, "inverse", false,
		"Print the Hyper type to dtype table instead")
}

func runTypes(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	s, err := loadSettings(cmd, verbose)
	if err != nil {
		return err
	}

	mapping, err := hypertype.NewMapping(firstNonEmpty(typesFlags.dtypeVersion, s.file.DTypeVersion))
	if err != nil {
		return err
	}

	return renderMapping(os.Stdout, mapping, typesFlags.inverse)
}

// renderMapping writes the forward or inverse table of mapping to w.
func renderMapping(w io.Writer, mapping *hypertype.Mapping, inverse bool) error {
	var rows [][]string
	headers := []string{"DTYPE", "HYPER TYPE", "NULLABILITY"}

	if inverse {
		headers = []string{"HYPER TYPE", "NULLABILITY", "DTYPE"}
		for ct, dtype := range mapping.InverseEntries() {
			rows = append(rows, []string{string(ct.Type), ct.Nullability.String(), dtype})
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i][0] != rows[j][0] {
				return rows[i][0] < rows[j][0]
			}
			return rows[i][1] < rows[j][1]
		})
	} else {
		for _, dtype := range mapping.DTypes() {
			ct, err := mapping.Lookup(dtype)
			if err != nil {
				return err
			}
			rows = append(rows, []string{dtype, string(ct.Type), ct.Nullability.String()})
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(tui.LabelStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tui.TitleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)

	if _, err := fmt.Fprintf(w, "dtype system %s\n", mapping.Version()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
