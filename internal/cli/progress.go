package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vvka-141/csv2hyper/internal/logging"
	"github.com/vvka-141/csv2hyper/internal/tui"
	"github.com/vvka-141/csv2hyper/internal/ui"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// progress owns the logger of one command run. On a terminal without
// --verbose it also animates a spinner and prints log lines above it.
type progress struct {
	logger  csv2hyper.Logger
	spinner *tui.Spinner
}

func startProgress(verbose bool, message string) *progress {
	if verbose || !tui.IsInteractive() {
		return &progress{logger: logging.NewConsoleLogger(verbose)}
	}
	sp := tui.StartSpinner(os.Stderr, message)
	return &progress{
		logger:  logging.NewConsoleLoggerTo(sp, verbose),
		spinner: sp,
	}
}

func (p *progress) stop() {
	if p.spinner != nil {
		p.spinner.Stop()
	}
}

// approver selects the approver for --force and pauses the spinner while it runs.
func (p *progress) approver(force, verbose bool) csv2hyper.Approver {
	var approver csv2hyper.Approver
	if force {
		approver = ui.NewForcedApprover(verbose)
	} else {
		approver = ui.NewInteractiveApprover(verbose)
	}
	if p.spinner == nil {
		return approver
	}
	return &suspendingApprover{inner: approver, spinner: p.spinner}
}

type suspendingApprover struct {
	inner   csv2hyper.Approver
	spinner *tui.Spinner
}

func (a *suspendingApprover) RequestApproval(ctx context.Context, path string) (bool, error) {
	var approved bool
	err := a.spinner.Suspend(func() error {
		var err error
		approved, err = a.inner.RequestApproval(ctx, path)
		return err
	})
	return approved, err
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext(what string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			fmt.Fprintf(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling %s...\n", what)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// printSummary writes the run timeline to w.
func printSummary(w io.Writer, started, finished time.Time, result *csv2hyper.ConvertResult) {
	fmt.Fprintf(w, "start:   %s\n", started.Format(time.RFC3339))
	for _, timing := range result.Timings {
		fmt.Fprintf(w, "  %-8s %s\n", timing.Stage, timing.Elapsed.Round(time.Millisecond))
	}
	fmt.Fprintf(w, "end:     %s (%s)\n", finished.Format(time.RFC3339), finished.Sub(started).Round(time.Millisecond))
	fmt.Fprintf(w, "rows:    %d\n", result.Rows)
	if result.DatasourceID != "" {
		fmt.Fprintf(w, "datasource: %s\n", result.DatasourceID)
	}
}
