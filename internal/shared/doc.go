// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides a buffered slog handler for asserting on
// log output and small market fixtures (price rows and CSV files) for tests
// of the parsing, service and HTTP layers.
package shared
