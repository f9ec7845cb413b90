package params

import (
	"fmt"
	"strings"
)

// ParseKeyValuePairs converts a slice of "key=value" strings given with flag into a map.
//
// Example:
//
//	dtypes, err := ParseKeyValuePairs("dtype", []string{"id=int64", "when=datetime64[ns]"})
//	// Returns: map[string]string{"id": "int64", "when": "datetime64[ns]"}
func ParseKeyValuePairs(flag string, pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("--%s %q is not in key=value format (example: --%s id=int64)", flag, pair, flag)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("--%s has empty key: %q", flag, pair)
		}

		result[key] = strings.TrimSpace(value)
	}

	return result, nil
}
