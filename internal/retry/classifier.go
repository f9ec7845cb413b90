package retry

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// SQLSTATE codes an engine returns while it is still starting.
const (
	pgCodeCannotConnectNow  = "57P03"
	pgCodeConnectionFailure = "08006"
	pgCodeUnableToConnect   = "08001"
)

// StartupClassifier treats "not listening yet" failures as transient.
// Query errors, authentication errors and everything else are fatal.
type StartupClassifier struct{}

func NewStartupClassifier() *StartupClassifier {
	return &StartupClassifier{}
}

// IsTransient reports whether err looks like an engine that has not finished starting.
func (c *StartupClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgCodeCannotConnectNow, pgCodeConnectionFailure, pgCodeUnableToConnect:
			return true
		}
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "the database system is starting up")
}

var _ csv2hyper.ErrorClassifier = (*StartupClassifier)(nil)
