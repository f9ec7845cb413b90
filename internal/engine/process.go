package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vvka-141/csv2hyper/internal/retry"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// Process is a running (or external) hyperd engine.
type Process struct {
	endpoint string
	external bool

	cmd             *exec.Cmd
	exited          chan struct{}
	waitErr         error
	workDir         string
	removeWorkDir   bool
	shutdownTimeout time.Duration
	logger          csv2hyper.Logger
	closeOnce       sync.Once
	closeErr        error
}

// Start launches hyperd per cfg and waits until it accepts TCP connections.
// With cfg.Endpoint set, it returns an external Process without spawning anything.
func Start(ctx context.Context, cfg csv2hyper.EngineConfig, logger csv2hyper.Logger) (*Process, error) {
	if logger == nil {
		panic("logger cannot be nil")
	}

	if cfg.Endpoint != "" {
		logger.Verbose("Using external engine at %s", cfg.Endpoint)
		return &Process{endpoint: cfg.Endpoint, external: true, logger: logger}, nil
	}

	exe, err := ResolveExecutable(cfg.HyperdPath)
	if err != nil {
		return nil, err
	}

	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("failed to reserve engine port: %w", errors.Join(csv2hyper.ErrEngineUnavailable, err))
	}

	workDir := cfg.LogDir
	removeWorkDir := false
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "csv2hyper-"+uuid.NewString())
		removeWorkDir = true
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create engine log directory %q: %w", workDir, err)
	}

	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = csv2hyper.DefaultEngineShutdownTimeout
	}

	args := BuildArgs(port, workDir, cfg.Telemetry, cfg.Parameters)
	cmd := exec.Command(exe, args...)
	out := newLineLogger(logger)
	cmd.Stdout = out
	cmd.Stderr = out
	cmd.Dir = workDir

	logger.Verbose("Starting hyperd: %s %v", exe, args)
	if err := cmd.Start(); err != nil {
		if removeWorkDir {
			os.RemoveAll(workDir)
		}
		return nil, fmt.Errorf("failed to start hyperd: %w", errors.Join(csv2hyper.ErrEngineUnavailable, err))
	}

	p := &Process{
		endpoint:        net.JoinHostPort("localhost", strconv.Itoa(port)),
		cmd:             cmd,
		exited:          make(chan struct{}),
		workDir:         workDir,
		removeWorkDir:   removeWorkDir,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
	go func() {
		p.waitErr = cmd.Wait()
		out.Flush()
		close(p.exited)
	}()

	startTimeout := cfg.StartTimeout
	if startTimeout <= 0 {
		startTimeout = csv2hyper.DefaultEngineStartTimeout
	}
	if err := p.waitReady(ctx, startTimeout); err != nil {
		p.Close()
		return nil, err
	}

	logger.Verbose("hyperd listening on %s (pid %d)", p.endpoint, cmd.Process.Pid)
	return p, nil
}

// Endpoint returns host:port of the engine.
func (p *Process) Endpoint() string {
	return p.endpoint
}

// External reports whether the engine was started by someone else.
func (p *Process) External() bool {
	return p.external
}

func (p *Process) waitReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	executor := retry.NewExecutor(
		retry.NewStartupClassifier(),
		retry.NewExponentialBackoff(-1),
	).WithOnRetry(func(attempt int, err error, delay time.Duration) {
		p.logger.Verbose("hyperd not ready (attempt %d), retrying in %v", attempt+1, delay)
	})

	var dialer net.Dialer
	err := executor.Execute(ctx, func(ctx context.Context) error {
		select {
		case <-p.exited:
			return fmt.Errorf("hyperd exited during startup: %v", p.waitErr)
		default:
		}
		conn, err := dialer.DialContext(ctx, "tcp", p.endpoint)
		if err != nil {
			return err
		}
		return conn.Close()
	})
	if err != nil {
		return fmt.Errorf("hyperd did not become ready on %s: %w", p.endpoint, errors.Join(csv2hyper.ErrEngineUnavailable, err))
	}
	return nil
}

// Close stops the engine: interrupt first, kill after the shutdown timeout.
// Safe to call more than once.
func (p *Process) Close() error {
	if p.external {
		return nil
	}

	p.closeOnce.Do(func() {
		p.closeErr = p.stop()
		if p.removeWorkDir {
			if err := os.RemoveAll(p.workDir); err != nil {
				p.logger.Verbose("failed to remove engine work directory %s: %v", p.workDir, err)
			}
		}
	})
	return p.closeErr
}

func (p *Process) stop() error {
	select {
	case <-p.exited:
		return nil
	default:
	}

	// Windows has no interrupt signal for child processes.
	if runtime.GOOS == "windows" {
		_ = p.cmd.Process.Kill()
		<-p.exited
		return nil
	}

	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		_ = p.cmd.Process.Kill()
		<-p.exited
		return nil
	}

	timer := time.NewTimer(p.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-p.exited:
		p.logger.Verbose("hyperd shut down")
		return nil
	case <-timer.C:
		p.logger.Error("hyperd did not stop within %v, killing it", p.shutdownTimeout)
		if err := p.cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill hyperd: %w", err)
		}
		<-p.exited
		return nil
	}
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// lineLogger forwards hyperd output to the verbose log one line at a time.
type lineLogger struct {
	mu     sync.Mutex
	logger csv2hyper.Logger
	buf    []byte
}

func newLineLogger(logger csv2hyper.Logger) *lineLogger {
	return &lineLogger{logger: logger}
}

func (l *lineLogger) Write(b []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf = append(l.buf, b...)
	for {
		i := bytes.IndexByte(l.buf, '\n')
		if i < 0 {
			break
		}
		l.emit(l.buf[:i])
		l.buf = l.buf[i+1:]
	}
	return len(b), nil
}

// Flush logs any trailing partial line.
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buf) > 0 {
		l.emit(l.buf)
		l.buf = nil
	}
}

func (l *lineLogger) emit(line []byte) {
	s := string(line)
	if n := len(s); n > 0 && s[n-1] == '\r' {
		s = s[:n-1]
	}
	if s != "" {
		l.logger.Verbose("hyperd: %s", s)
	}
}

var _ io.Writer = (*lineLogger)(nil)
