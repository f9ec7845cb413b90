package params

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"
)

// ParseFile parses a file of name=value assignments, one per line.
//
// Format rules:
//   - Lines starting with # are comments
//   - Empty lines are ignored
//   - Whitespace around = is trimmed
//   - Names and values can be quoted with single or double quotes,
//     so a column name may contain spaces or '='
func ParseFile(content []byte) (map[string]string, error) {
	result := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(content))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, rest, err := splitName(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		if key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNum)
		}

		result[key] = unquote(strings.TrimSpace(rest))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading content: %w", err)
	}

	return result, nil
}

// splitName returns the (possibly quoted) name and everything after its '='.
func splitName(line string) (string, string, error) {
	if q := line[0]; q == '"' || q == '\'' {
		end := strings.IndexByte(line[1:], q)
		if end < 0 {
			return "", "", fmt.Errorf("unterminated quoted name")
		}
		name := line[1 : end+1]
		rest := strings.TrimSpace(line[end+2:])
		if !strings.HasPrefix(rest, "=") {
			return "", "", fmt.Errorf("invalid format, expected NAME=VALUE")
		}
		return name, rest[1:], nil
	}

	name, rest, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", fmt.Errorf("invalid format, expected NAME=VALUE")
	}
	return strings.TrimSpace(name), rest, nil
}

func unquote(value string) string {
	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}
	return value
}
