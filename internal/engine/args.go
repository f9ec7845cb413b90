package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// hyperd command line. These are the flags the Hyper API itself passes to the
// engine it launches; the telemetry switch is a process setting like any other.
const (
	flagSkipLicense = "--skip-license"
	flagNoPassword  = "--no-password"
	flagInitUser    = "--init-user"
	flagListen      = "--listen-connection"
	flagLogDir      = "--log-dir"
	paramTelemetry  = "telemetry"

	// listenScheme selects the PostgreSQL wire protocol listener; tab.tcp is
	// Hyper's native client protocol, which pgx cannot speak.
	listenScheme = "tcp.libpq"
)

// ResolveExecutable turns a configured hyperd path into the executable path.
// A directory is searched for hyperd (hyperd.exe on Windows).
func ResolveExecutable(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("hyperd path is empty: %w", csv2hyper.ErrInvalidConfig)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("hyperd not found at %q: %w", path, csv2hyper.ErrEngineUnavailable)
	}

	if info.IsDir() {
		name := "hyperd"
		if runtime.GOOS == "windows" {
			name = "hyperd.exe"
		}
		return ResolveExecutable(filepath.Join(path, name))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve hyperd path %q: %w", path, err)
	}
	return abs, nil
}

// BuildArgs assembles the hyperd arguments for a process listening on port.
// Process parameters are emitted in key order so the command line is stable.
func BuildArgs(port int, logDir string, telemetry csv2hyper.Telemetry, params map[string]string) []string {
	args := []string{
		"run",
		flagSkipLicense,
		flagNoPassword,
		flagInitUser + "=" + csv2hyper.EngineUser,
		fmt.Sprintf("%s=%s://localhost:%d", flagListen, listenScheme, port),
	}
	if logDir != "" {
		args = append(args, flagLogDir+"="+logDir)
	}

	merged := csv2hyper.DefaultEngineParameters()
	for k, v := range params {
		merged[k] = v
	}
	if _, set := merged[paramTelemetry]; !set {
		if telemetry == csv2hyper.TelemetrySend {
			merged[paramTelemetry] = "1"
		} else {
			merged[paramTelemetry] = "0"
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, fmt.Sprintf("--%s=%s", k, merged[k]))
	}

	return args
}
