package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/vvka-141/csv2hyper/internal/cli"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

func main() {
	// Recover from panics to ensure graceful exits with stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, debug.Stack())
			os.Exit(csv2hyper.ExitPanic)
		}
	}()

	if os.Getenv("CSV2HYPER_TEST_PANIC") == "1" {
		panic("intentional test panic")
	}

	if err := cli.Execute(); err != nil {
		os.Exit(csv2hyper.ExitCodeForError(err))
	}
}
