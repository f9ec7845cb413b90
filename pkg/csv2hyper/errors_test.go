package csv2hyper_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

func TestExitCodeForError_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown flag", errors.New("unknown flag --foo"), csv2hyper.ExitUsageError},
		{"unknown shorthand flag", errors.New("unknown shorthand flag: 'x'"), csv2hyper.ExitUsageError},
		{"accepts args", errors.New("accepts 2 arg(s), received 0"), csv2hyper.ExitUsageError},
		{"required flag", errors.New("required flag \"project\" not set"), csv2hyper.ExitUsageError},
		{"invalid argument", errors.New("invalid argument \"abc\" for \"--infer-rows\""), csv2hyper.ExitUsageError},
		{"general error", errors.New("something went wrong"), csv2hyper.ExitGeneralError},
		{"nil error", nil, csv2hyper.ExitSuccess},
		{"connection refused text", errors.New("dial tcp 127.0.0.1:7483: connection refused"), csv2hyper.ExitConnectionError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := csv2hyper.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodeForError_Sentinels(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{csv2hyper.ErrInvalidConfig, csv2hyper.ExitConfigError},
		{csv2hyper.ErrUnsupportedDType, csv2hyper.ExitUnsupportedDType},
		{csv2hyper.ErrLoadFailed, csv2hyper.ExitLoadFailed},
		{csv2hyper.ErrApprovalDenied, csv2hyper.ExitApprovalDenied},
		{csv2hyper.ErrEngineUnavailable, csv2hyper.ExitConnectionError},
		{csv2hyper.ErrConnectionFailed, csv2hyper.ExitConnectionError},
		{csv2hyper.ErrAuthenticationFailed, csv2hyper.ExitPublishFailed},
		{csv2hyper.ErrProjectNotFound, csv2hyper.ExitPublishFailed},
		{csv2hyper.ErrPublishFailed, csv2hyper.ExitPublishFailed},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if got := csv2hyper.ExitCodeForError(wrapped); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", wrapped, got, tt.want)
			}
		})
	}
}

func TestLoadError(t *testing.T) {
	cause := errors.New("invalid input syntax for type bigint: \"abc\"")

	withRow := &csv2hyper.LoadError{Row: 3, Err: cause}
	if got, want := withRow.Error(), "load failed at row 3: invalid input syntax for type bigint: \"abc\""; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(withRow, csv2hyper.ErrLoadFailed) {
		t.Error("LoadError should match ErrLoadFailed")
	}
	if !errors.Is(withRow, cause) {
		t.Error("LoadError should match its cause")
	}

	noRow := &csv2hyper.LoadError{Err: cause}
	if got, want := noRow.Error(), "load failed: invalid input syntax for type bigint: \"abc\""; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	var target *csv2hyper.LoadError
	if !errors.As(fmt.Errorf("convert: %w", withRow), &target) || target.Row != 3 {
		t.Errorf("errors.As did not recover the row, got %+v", target)
	}

	if got := csv2hyper.ExitCodeForError(withRow); got != csv2hyper.ExitLoadFailed {
		t.Errorf("ExitCodeForError(LoadError) = %d, want %d", got, csv2hyper.ExitLoadFailed)
	}
}
