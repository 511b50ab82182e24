// Package app wires configuration, logging, telemetry, the report pipeline
// and the HTTP surface into one Application and manages its lifecycle.
//
// Middleware runs in the order RequestID, RealIP, OTel, StructuredLogger,
// Recoverer, SecurityHeaders and, when enabled, the rate limiter. Report
// uploads are additionally bounded by MaxBodySize and restricted to
// multipart/form-data.
//
// Run blocks until SIGINT or SIGTERM, then shuts the server down within
// Server.ShutdownTimeout and flushes telemetry providers.
package app
