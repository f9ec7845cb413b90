package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vvka-141/csv2hyper/internal/tui"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// InteractiveApprover implements the Approver interface for console-based
// interactive confirmation. It prompts the user to type the extract's file
// name to confirm the replacement.
type InteractiveApprover struct {
	verbose bool
	input   io.Reader
	output  io.Writer
}

// NewInteractiveApprover creates a new InteractiveApprover on stdin/stderr.
func NewInteractiveApprover(verbose bool) csv2hyper.Approver {
	return &InteractiveApprover{
		verbose: verbose,
		input:   os.Stdin,
		output:  os.Stderr,
	}
}

// RequestApproval prompts the user to type the file name of path to confirm.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, path string) (bool, error) {
	name := filepath.Base(path)

	fmt.Fprintf(a.output, "\n%s\n", tui.WarningStyle.Render(fmt.Sprintf("%s  WARNING: You are about to REPLACE the extract '%s'", tui.SymbolWarning, path)))
	fmt.Fprintln(a.output, "This will permanently delete all data in this extract!")
	if a.verbose {
		fmt.Fprintln(a.output, "Use --force to skip this prompt, or --create-mode create_if_not_exists to keep existing files.")
	}
	fmt.Fprintf(a.output, "\nTo confirm, type the file name '%s' and press Enter: ", name)

	// Read user input with context cancellation support
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(a.input)
		input, err := reader.ReadString('\n')
		if err != nil {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(input)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case input := <-inputChan:
		if input == name {
			fmt.Fprintf(a.output, "%s Confirmed. Proceeding with extract replacement...\n", tui.SymbolCheck)
			return true, nil
		}
		fmt.Fprintf(a.output, "%s Input '%s' does not match file name '%s'. Operation cancelled.\n", tui.SymbolCross, input, name)
		return false, nil
	}
}

// Verify InteractiveApprover implements the Approver interface at compile time
var _ csv2hyper.Approver = (*InteractiveApprover)(nil)
