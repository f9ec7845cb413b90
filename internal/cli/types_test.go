package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/vvka-141/csv2hyper/internal/hypertype"
)

func TestRenderMapping_Forward(t *testing.T) {
	var buf bytes.Buffer
	if err := renderMapping(&buf, hypertype.MustMapping("1.0.0"), false); err != nil {
		t.Fatalf("renderMapping failed: %v", err)
	}
	out := buf.String()

	if !strings.HasPrefix(out, "dtype system v1.0.0\n") {
		t.Errorf("Expected version line first, got:\n%s", out)
	}
	for _, want := range []string{"DTYPE", "int64", "BIGINT", "NOT NULL", "datetime64[ns, UTC]", "string", "boolean"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderMapping_LegacyVersion(t *testing.T) {
	var buf bytes.Buffer
	if err := renderMapping(&buf, hypertype.MustMapping("0.25.3"), false); err != nil {
		t.Fatalf("renderMapping failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "dtype system v0.25.3") {
		t.Errorf("Expected legacy version line, got:\n%s", out)
	}
	if strings.Contains(out, "boolean") {
		t.Errorf("Expected no boolean dtype before 1.0.0, got:\n%s", out)
	}
}

func TestRenderMapping_Inverse(t *testing.T) {
	var buf bytes.Buffer
	if err := renderMapping(&buf, hypertype.MustMapping("1.0.0"), true); err != nil {
		t.Fatalf("renderMapping failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"HYPER TYPE", "DATE", "date", "DOUBLE PRECISION", "float64"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "float32") {
		t.Errorf("float32 must not appear in the inverse table, got:\n%s", out)
	}
}
