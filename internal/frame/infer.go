package frame

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// InferOptions controls dtype inference.
type InferOptions struct {
	// SampleRows caps the data rows inspected. 0 inspects every row.
	SampleRows int

	// ParseDates enables datetime detection. Without it date-like values are text.
	ParseDates bool

	// ExtensionTypes allows the nullable "boolean" and "string" dtypes.
	ExtensionTypes bool

	// PreferStringDType infers "string" instead of "object" for text when
	// ExtensionTypes is set.
	PreferStringDType bool

	// NormalizeNames rewrites headers into snake_case.
	NormalizeNames bool
}

// InferFile opens path and infers its frame. Files ending in .gz are decompressed.
func InferFile(path string, opts InferOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV %q: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if IsGzip(path) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream %q: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	t, err := Infer(r, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// IsGzip reports whether path names a gzip-compressed file.
func IsGzip(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".gz")
}

// Infer reads a CSV header and up to opts.SampleRows rows and returns one
// column per header field with its inferred dtype.
func Infer(r io.Reader, opts InferOptions) (*Table, error) {
	lines := &lineCounter{r: r}
	cr := csv.NewReader(lines)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("CSV has no header row: %w", csv2hyper.ErrInvalidConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	names := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if opts.NormalizeNames {
			h = SnakeCaseName(h)
		}
		names[i] = h
	}
	if err := checkDuplicates(names); err != nil {
		return nil, err
	}

	cols := make([]*columnStats, len(names))
	for i := range cols {
		cols[i] = newColumnStats(opts.ParseDates)
	}

	// encoding/csv skips blank lines, but in a single-column file a blank
	// line is a NULL row to the engine. Count the skipped lines from the gaps
	// between record positions.
	single := len(names) == 1
	prevEnd := recordEndLine(cr, header)

	for row := 1; opts.SampleRows == 0 || row <= opts.SampleRows; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			if single {
				cols[0].observeNulls(lines.total() - prevEnd)
			}
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row %d: %w", row, err)
		}
		if single {
			start, _ := cr.FieldPos(0)
			cols[0].observeNulls(start - prevEnd - 1)
			prevEnd = recordEndLine(cr, record)
		}
		for i, v := range record {
			cols[i].observe(v)
		}
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, DType: cols[i].dtype(opts)}
	}
	return NewTable(columns...), nil
}

// recordEndLine returns the line on which the record just read ends.
func recordEndLine(cr *csv.Reader, record []string) int {
	last := len(record) - 1
	line, _ := cr.FieldPos(last)
	return line + strings.Count(record[last], "\n")
}

// lineCounter counts the lines of everything read through it.
type lineCounter struct {
	r        io.Reader
	newlines int
	last     byte
	read     bool
}

func (l *lineCounter) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	if n > 0 {
		l.newlines += bytes.Count(p[:n], []byte{'\n'})
		l.last = p[n-1]
		l.read = true
	}
	return n, err
}

// total returns the number of lines, counting an unterminated last line.
func (l *lineCounter) total() int {
	if l.read && l.last != '\n' {
		return l.newlines + 1
	}
	return l.newlines
}

type candidate int

const (
	candBool candidate = iota
	candInt
	candFloat
	candDatetime
	candText
)

// columnStats narrows a column down the candidate chain one value at a time.
// A value that fails the current candidate advances it; candidates never move back.
type columnStats struct {
	cand     candidate
	accepted bool
	nulls    bool
	nonNull  bool
	zoned    bool
	naive    bool
	datesOff bool
}

func newColumnStats(parseDates bool) *columnStats {
	return &columnStats{datesOff: !parseDates}
}

func (c *columnStats) observeNulls(n int) {
	if n > 0 {
		c.nulls = true
	}
}

func (c *columnStats) observe(v string) {
	if v == "" {
		c.nulls = true
		return
	}
	c.nonNull = true

	for c.cand < candText {
		if c.accepts(v) {
			c.accepted = true
			return
		}
		c.advance()
	}
}

// advance moves to the next candidate that every value seen so far still satisfies.
// Only integers are a subset of a later candidate (floats); anything else falls to text.
func (c *columnStats) advance() {
	switch {
	case !c.accepted:
		c.cand++
		if c.cand == candDatetime && c.datesOff {
			c.cand = candText
		}
	case c.cand == candInt:
		c.cand = candFloat
	default:
		c.cand = candText
	}
}

func (c *columnStats) accepts(v string) bool {
	switch c.cand {
	case candBool:
		return isBool(v)
	case candInt:
		_, err := strconv.ParseInt(v, 10, 64)
		return err == nil
	case candFloat:
		if !plainFloat.MatchString(v) {
			return false
		}
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	case candDatetime:
		zoned, ok := parseDatetime(v)
		if !ok {
			return false
		}
		if zoned {
			c.zoned = true
		} else {
			c.naive = true
		}
		// Mixed zone-aware and naive values cannot share a column type.
		return !(c.zoned && c.naive)
	}
	return true
}

func (c *columnStats) dtype(opts InferOptions) string {
	if !c.nonNull {
		return "object"
	}

	switch c.cand {
	case candBool:
		if !c.nulls {
			return "bool"
		}
		if opts.ExtensionTypes {
			return "boolean"
		}
		return "object"
	case candInt:
		if c.nulls {
			return "Int64"
		}
		return "int64"
	case candFloat:
		return "float64"
	case candDatetime:
		if c.zoned {
			return "datetime64[ns, UTC]"
		}
		return "datetime64[ns]"
	}

	if opts.ExtensionTypes && opts.PreferStringDType {
		return "string"
	}
	return "object"
}

// plainFloat is the number syntax the engine's DOUBLE PRECISION input accepts.
// strconv.ParseFloat also takes Go literals such as 0x1p-2 and 1_000.
var plainFloat = regexp.MustCompile(`^[+-]?(?:(?:[0-9]+\.?[0-9]*|\.[0-9]+)(?:[eE][+-]?[0-9]+)?|(?i:nan|inf|infinity))$`)

func isBool(v string) bool {
	switch v {
	case "true", "True", "TRUE", "false", "False", "FALSE":
		return true
	}
	return false
}

var naiveLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
}

var zonedLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05 -0700",
}

// parseDatetime reports whether v is a datetime and whether it carries an offset.
func parseDatetime(v string) (zoned bool, ok bool) {
	for _, layout := range zonedLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return true, true
		}
	}
	for _, layout := range naiveLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return false, true
		}
	}
	return false, false
}
