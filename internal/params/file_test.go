package params

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFile(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		expected    map[string]string
		expectError bool
		errorMsg    string
	}{
		{
			name: "Simple assignments",
			content: `id=int64
amount=float64
note=string`,
			expected: map[string]string{
				"id":     "int64",
				"amount": "float64",
				"note":   "string",
			},
		},
		{
			name: "Quoted names with spaces",
			content: `"Order ID"=Int32
'Unit Price' = float64`,
			expected: map[string]string{
				"Order ID":   "Int32",
				"Unit Price": "float64",
			},
		},
		{
			name:    "Quoted name containing equals",
			content: `"a=b"=string`,
			expected: map[string]string{
				"a=b": "string",
			},
		},
		{
			name: "Quoted values",
			content: `created="datetime64[ns]"
flag='boolean'`,
			expected: map[string]string{
				"created": "datetime64[ns]",
				"flag":    "boolean",
			},
		},
		{
			name: "Comments and empty lines",
			content: `# overrides for the sales export
id=Int64

# free text
note=object
`,
			expected: map[string]string{
				"id":   "Int64",
				"note": "object",
			},
		},
		{
			name: "Whitespace around equals",
			content: `a = int8
b= int16
c =int32`,
			expected: map[string]string{
				"a": "int8",
				"b": "int16",
				"c": "int32",
			},
		},
		{
			name:        "Invalid format - no equals",
			content:     `id int64`,
			expectError: true,
			errorMsg:    "line 1: invalid format",
		},
		{
			name:        "Invalid format - empty key",
			content:     "id=int64\n=value",
			expectError: true,
			errorMsg:    "line 2: empty key",
		},
		{
			name:        "Unterminated quote",
			content:     `"Order ID=Int32`,
			expectError: true,
			errorMsg:    "unterminated",
		},
		{
			name:        "Quoted name without equals",
			content:     `"Order ID" Int32`,
			expectError: true,
			errorMsg:    "invalid format",
		},
		{
			name:     "Empty file",
			content:  "",
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseFile([]byte(tt.content))

			if tt.expectError {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.errorMsg)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.expected, result)
		})
	}
}
