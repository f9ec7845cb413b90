package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestStartupClassifier(t *testing.T) {
	c := NewStartupClassifier()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cannot connect now", &pgconn.PgError{Code: "57P03", Message: "the database system is starting up"}, true},
		{"connection failure", &pgconn.PgError{Code: "08006"}, true},
		{"unable to connect", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "08001"}), true},
		{"syntax error", &pgconn.PgError{Code: "42601"}, false},
		{"invalid text representation", &pgconn.PgError{Code: "22P02"}, false},
		{"auth failure", &pgconn.PgError{Code: "28P01"}, false},
		{"econnrefused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"econnreset", syscall.ECONNRESET, true},
		{"dial op error", &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded}, true},
		{"read op error", &net.OpError{Op: "read", Net: "tcp", Err: errors.New("boom")}, false},
		{"unexpected eof", fmt.Errorf("receive message: %w", io.ErrUnexpectedEOF), true},
		{"refused text", errors.New("failed to connect to `host=localhost`: dial error: connection refused"), true},
		{"context canceled", context.Canceled, false},
		{"plain", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsTransient(tt.err))
		})
	}
}
