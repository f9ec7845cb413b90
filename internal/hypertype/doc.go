// Package hypertype maps dataframe dtype names onto Hyper column types.
//
// A Mapping is built once for a dtype-system version and never changes afterwards:
//
//	m, err := hypertype.NewMapping("1.0.0")
//	ct, err := m.Lookup("Int64") // BIGINT, nullable
//	dtype, err := m.DType(hypertype.ColumnType{Type: hypertype.Date, Nullability: hypertype.Nullable}) // "date"
//
// Version 1.0.0 and later add the "string" and "boolean" extension dtypes.
package hypertype
