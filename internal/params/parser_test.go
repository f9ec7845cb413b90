package params

import (
	"strings"
	"testing"
)

func TestParseKeyValuePairs(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    map[string]string
		wantErr string
	}{
		{
			name:  "single pair",
			input: []string{"id=int64"},
			want:  map[string]string{"id": "int64"},
		},
		{
			name:  "multiple pairs",
			input: []string{"id=Int64", "amount=float64", "note=string"},
			want:  map[string]string{"id": "Int64", "amount": "float64", "note": "string"},
		},
		{
			name:  "empty input",
			input: []string{},
			want:  map[string]string{},
		},
		{
			name:  "nil input",
			input: nil,
			want:  map[string]string{},
		},
		{
			name:  "empty value",
			input: []string{"key="},
			want:  map[string]string{"key": ""},
		},
		{
			name:  "value with equals",
			input: []string{"log_config=file=hyperd.log"},
			want:  map[string]string{"log_config": "file=hyperd.log"},
		},
		{
			name:  "value with brackets",
			input: []string{"created=datetime64[ns]"},
			want:  map[string]string{"created": "datetime64[ns]"},
		},
		{
			name:  "surrounding whitespace trimmed",
			input: []string{" order id = Int32 "},
			want:  map[string]string{"order id": "Int32"},
		},
		{
			name:    "missing equals",
			input:   []string{"noequalssign"},
			wantErr: "not in key=value format",
		},
		{
			name:    "empty key",
			input:   []string{" =int64"},
			wantErr: "empty key",
		},
		{
			name:    "error on second pair",
			input:   []string{"good=pair", "bad"},
			wantErr: "not in key=value format",
		},
		{
			name:  "duplicate key last wins",
			input: []string{"id=int64", "id=Int64"},
			want:  map[string]string{"id": "Int64"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKeyValuePairs("dtype", tt.input)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected error containing %q, got: %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Length mismatch: got %d, want %d", len(got), len(tt.want))
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("Key %q: got %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestParseKeyValuePairs_ErrorNamesFlag(t *testing.T) {
	_, err := ParseKeyValuePairs("engine-param", []string{"log_dir"})
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "--engine-param") {
		t.Errorf("Expected flag name in error, got: %v", err)
	}
}
