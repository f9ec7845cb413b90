package frame

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
)

// GenerateOptions shapes the synthetic dataset written by Generate.
type GenerateOptions struct {
	Rows int

	// Wide adds that many text columns col_0..col_{Wide-1}, each a copy of name.
	Wide int

	// Name is the constant written to the name column. Empty selects a 20 character filler.
	Name string

	// Seed makes the value column reproducible.
	Seed uint64
}

const defaultGeneratedName = "xxxxxxxxxxxxxxxxxxxx"

// Generate writes a CSV with columns id (0..Rows-1), value (standard normal),
// name and the Wide copies of name, and returns the Frame describing it.
func Generate(w io.Writer, opts GenerateOptions) (*Table, error) {
	if opts.Rows < 0 || opts.Wide < 0 {
		return nil, fmt.Errorf("rows and wide must not be negative")
	}
	name := opts.Name
	if name == "" {
		name = defaultGeneratedName
	}

	columns := []Column{
		{Name: "id", DType: "int64"},
		{Name: "value", DType: "float64"},
		{Name: "name", DType: "object"},
	}
	for i := 0; i < opts.Wide; i++ {
		columns = append(columns, Column{Name: fmt.Sprintf("col_%d", i), DType: "object"})
	}

	cw := csv.NewWriter(w)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	record := make([]string, len(columns))
	for i := 2; i < len(record); i++ {
		record[i] = name
	}
	for row := 0; row < opts.Rows; row++ {
		record[0] = strconv.Itoa(row)
		record[1] = strconv.FormatFloat(rng.NormFloat64(), 'g', -1, 64)
		if err := cw.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return NewTable(columns...), nil
}
