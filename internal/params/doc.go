// Package params parses the name=value lists that csv2hyper accepts on the
// command line and in files: dtype overrides (--dtype, --dtype-file) and
// engine process settings (--engine-param).
//
// Both forms split on the first '=' so values may themselves contain '='.
// Later assignments for the same name win.
package params
