// Package services sits between the transport adapters and the report
// pipeline. It owns cross-cutting request policy such as generation
// timeouts, export to disk and readiness checks, so HTTP handlers and the
// CLI share one code path.
package services
