// Package logging provides concrete implementations of the csv2hyper.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: zerolog console writer on stderr, debug level when verbose
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
