// Package shared holds helpers used across packages that belong to no
// single domain layer.
//
// testutil provides a capturing slog handler so tests can assert on the
// warnings the ingestion and aggregation stages emit.
package shared
