package hypertype

import (
	"fmt"
	"strings"

	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
	"golang.org/x/mod/semver"
)

// SQLType is a Hyper scalar column type, spelled the way it appears in DDL.
type SQLType string

const (
	SmallInt    SQLType = "SMALLINT"
	Int         SQLType = "INT"
	BigInt      SQLType = "BIGINT"
	Double      SQLType = "DOUBLE PRECISION"
	Bool        SQLType = "BOOL"
	Timestamp   SQLType = "TIMESTAMP"
	TimestampTZ SQLType = "TIMESTAMP WITH TIME ZONE"
	Interval    SQLType = "INTERVAL"
	Text        SQLType = "TEXT"
	Date        SQLType = "DATE"
)

// Nullability says whether a column accepts NULL.
type Nullability bool

const (
	Nullable    Nullability = true
	NotNullable Nullability = false
)

func (n Nullability) String() string {
	if n == Nullable {
		return "NULL"
	}
	return "NOT NULL"
}

// ColumnType pairs a SQLType with its nullability. It is comparable and usable as a map key.
type ColumnType struct {
	Type        SQLType
	Nullability Nullability
}

func (c ColumnType) String() string {
	return string(c.Type) + " " + c.Nullability.String()
}

// extensionVersion is the first dtype-system version with string and boolean dtypes.
const extensionVersion = "v1.0.0"

type entry struct {
	dtype string
	ct    ColumnType
}

var baseEntries = []entry{
	{"int16", ColumnType{SmallInt, NotNullable}},
	{"int32", ColumnType{Int, NotNullable}},
	{"int64", ColumnType{BigInt, NotNullable}},
	{"Int16", ColumnType{SmallInt, Nullable}},
	{"Int32", ColumnType{Int, Nullable}},
	{"Int64", ColumnType{BigInt, Nullable}},
	{"float32", ColumnType{Double, Nullable}},
	{"float64", ColumnType{Double, Nullable}},
	{"bool", ColumnType{Bool, NotNullable}},
	{"datetime64[ns]", ColumnType{Timestamp, Nullable}},
	{"datetime64[ns, UTC]", ColumnType{TimestampTZ, Nullable}},
	{"timedelta64[ns]", ColumnType{Interval, Nullable}},
	{"object", ColumnType{Text, Nullable}},
}

var extensionEntries = []entry{
	{"string", ColumnType{Text, Nullable}},
	{"boolean", ColumnType{Bool, Nullable}},
}

// Mapping is an immutable dtype <-> ColumnType table for one dtype-system version.
// It is safe for concurrent use.
type Mapping struct {
	version string
	order   []string
	forward map[string]ColumnType
	inverse map[ColumnType]string
}

// NewMapping builds the table for version (e.g. "1.0.0" or "v0.25.3").
// An empty version selects csv2hyper.DefaultDTypeVersion.
func NewMapping(version string) (*Mapping, error) {
	v, err := canonicalVersion(version)
	if err != nil {
		return nil, err
	}

	entries := append([]entry(nil), baseEntries...)
	extended := semver.Compare(v, extensionVersion) >= 0
	if extended {
		entries = append(entries, extensionEntries...)
	}

	m := &Mapping{
		version: v,
		order:   make([]string, 0, len(entries)),
		forward: make(map[string]ColumnType, len(entries)),
		inverse: make(map[ColumnType]string, len(entries)+2),
	}

	for _, e := range entries {
		m.order = append(m.order, e.dtype)
		m.forward[e.dtype] = e.ct
		// float32 widens to DOUBLE and must not shadow float64 on the way back.
		if e.dtype != "float32" {
			m.inverse[e.ct] = e.dtype
		}
	}

	m.inverse[ColumnType{Date, Nullable}] = "date"
	if extended {
		m.inverse[ColumnType{Text, NotNullable}] = "string"
	} else {
		m.inverse[ColumnType{Text, NotNullable}] = "object"
	}

	return m, nil
}

// MustMapping is NewMapping for versions known to be valid. It panics otherwise.
func MustMapping(version string) *Mapping {
	m, err := NewMapping(version)
	if err != nil {
		panic(err)
	}
	return m
}

func canonicalVersion(version string) (string, error) {
	v := strings.TrimSpace(version)
	if v == "" {
		v = csv2hyper.DefaultDTypeVersion
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("invalid dtype version %q: %w", version, csv2hyper.ErrInvalidConfig)
	}
	return semver.Canonical(v), nil
}

// Version returns the canonical dtype-system version, e.g. "v1.0.0".
func (m *Mapping) Version() string {
	return m.version
}

// SupportsExtensionTypes reports whether the string and boolean dtypes exist.
func (m *Mapping) SupportsExtensionTypes() bool {
	return semver.Compare(m.version, extensionVersion) >= 0
}

// Lookup returns the Hyper column type for dtype.
func (m *Mapping) Lookup(dtype string) (ColumnType, error) {
	ct, ok := m.forward[dtype]
	if !ok {
		return ColumnType{}, fmt.Errorf("conversion of '%s' dtypes not supported: %w", dtype, csv2hyper.ErrUnsupportedDType)
	}
	return ct, nil
}

// DType returns the dtype a column of type ct reads back as.
func (m *Mapping) DType(ct ColumnType) (string, error) {
	dtype, ok := m.inverse[ct]
	if !ok {
		return "", fmt.Errorf("conversion of '%s' columns not supported: %w", ct, csv2hyper.ErrUnsupportedDType)
	}
	return dtype, nil
}

// DTypes lists the supported dtypes in declaration order.
func (m *Mapping) DTypes() []string {
	return append([]string(nil), m.order...)
}

// InverseEntries returns a copy of the inverse table.
func (m *Mapping) InverseEntries() map[ColumnType]string {
	out := make(map[ColumnType]string, len(m.inverse))
	for k, v := range m.inverse {
		out[k] = v
	}
	return out
}
