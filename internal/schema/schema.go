// Package schema builds Hyper table definitions from frames.
package schema

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/csv2hyper/internal/frame"
	"github.com/vvka-141/csv2hyper/internal/hypertype"
	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// TableName is an optionally schema-qualified table name.
type TableName struct {
	Schema string
	Name   string
}

// NewTableName returns a TableName, defaulting an empty name to csv2hyper.DefaultTableName.
func NewTableName(schemaName, name string) TableName {
	if name == "" {
		name = csv2hyper.DefaultTableName
	}
	return TableName{Schema: schemaName, Name: name}
}

// String renders the escaped, qualified name, e.g. "public"."Extract".
func (n TableName) String() string {
	if n.Schema == "" {
		return pgx.Identifier{n.Name}.Sanitize()
	}
	return pgx.Identifier{n.Schema, n.Name}.Sanitize()
}

// ColumnDefinition is one column of a Hyper table.
type ColumnDefinition struct {
	Name        string
	Type        hypertype.SQLType
	Nullability hypertype.Nullability
}

// ColumnType returns the column's type and nullability as a mapping key.
func (c ColumnDefinition) ColumnType() hypertype.ColumnType {
	return hypertype.ColumnType{Type: c.Type, Nullability: c.Nullability}
}

// TableDefinition is an immutable table layout.
type TableDefinition struct {
	name    TableName
	columns []ColumnDefinition
}

// NewTableDefinition returns a definition holding a copy of columns.
func NewTableDefinition(name TableName, columns ...ColumnDefinition) *TableDefinition {
	return &TableDefinition{
		name:    NewTableName(name.Schema, name.Name),
		columns: append([]ColumnDefinition(nil), columns...),
	}
}

func (d *TableDefinition) Name() TableName {
	return d.name
}

// Columns returns a copy of the columns in order.
func (d *TableDefinition) Columns() []ColumnDefinition {
	return append([]ColumnDefinition(nil), d.columns...)
}

func (d *TableDefinition) Len() int {
	return len(d.columns)
}

// Build maps every frame column through m, in frame order. The first dtype the
// mapping rejects aborts the build and no definition is returned.
func Build(f frame.Frame, m *hypertype.Mapping, table TableName) (*TableDefinition, error) {
	if m == nil {
		panic("mapping cannot be nil")
	}

	frameColumns := f.Columns()
	columns := make([]ColumnDefinition, 0, len(frameColumns))
	for _, fc := range frameColumns {
		ct, err := m.Lookup(fc.DType)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", fc.Name, err)
		}
		columns = append(columns, ColumnDefinition{
			Name:        fc.Name,
			Type:        ct.Type,
			Nullability: ct.Nullability,
		})
	}

	return NewTableDefinition(table, columns...), nil
}

// WidenToText returns a copy of def where the named columns are nullable TEXT.
// Used to relax columns the engine refused to parse. Unknown names are an error.
func WidenToText(def *TableDefinition, names ...string) (*TableDefinition, error) {
	columns := def.Columns()
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	for i := range columns {
		if want[columns[i].Name] {
			columns[i].Type = hypertype.Text
			columns[i].Nullability = hypertype.Nullable
			delete(want, columns[i].Name)
		}
	}

	if len(want) > 0 {
		var missing []string
		for _, n := range names {
			if want[n] {
				missing = append(missing, n)
			}
		}
		return nil, fmt.Errorf("cannot widen unknown column(s) %s: %w",
			strings.Join(missing, ", "), csv2hyper.ErrInvalidConfig)
	}

	return NewTableDefinition(def.name, columns...), nil
}

// CreateTableSQL renders the CREATE TABLE statement for def.
func (d *TableDefinition) CreateTableSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(d.name.String())
	b.WriteString(" (")
	for i, c := range d.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgx.Identifier{c.Name}.Sanitize())
		b.WriteByte(' ')
		b.WriteString(string(c.Type))
		if c.Nullability == hypertype.NotNullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")")
	return b.String()
}

// CreateSchemaSQL renders CREATE SCHEMA IF NOT EXISTS for the table's schema,
// or "" when the table is unqualified.
func (d *TableDefinition) CreateSchemaSQL() string {
	if d.name.Schema == "" {
		return ""
	}
	return "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{d.name.Schema}.Sanitize()
}
