package frame

import (
	"regexp"
	"strings"

	"github.com/stoewer/go-strcase"
)

var (
	multipleUnderscores = regexp.MustCompile(`_+`)
	notIdentifierChar   = regexp.MustCompile(`[^_a-zA-Z0-9]`)
)

// SnakeCaseName rewrites a CSV header into a snake_case column name.
// "Order Date (UTC)" becomes "order_date_utc". A header with no usable
// characters is left unchanged.
func SnakeCaseName(header string) string {
	s := notIdentifierChar.ReplaceAllString(strings.TrimSpace(header), "_")
	s = multipleUnderscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return header
	}
	return strcase.SnakeCase(s)
}
