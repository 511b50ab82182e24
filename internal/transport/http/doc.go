// Package http implements the HTTP adapter of the newsletter generator.
// Handlers stay thin: they parse multipart uploads, delegate to the
// services package and render results with chi/render.
//
// # Routes
//
//	POST /api/reports              generate reports, JSON response
//	POST /api/reports/summary.csv  generate reports, summary CSV attachment
//	GET  /api/health               liveness, readiness and version
//	GET  /metrics                  Prometheus exposition
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details. Ingestion failures such as a
// missing header row or an unreadable reporting period are 422 responses
// whose extensions name the offending file:
//
//	{
//	    "type": "/errors/ingest/header-not-found",
//	    "title": "Header Row Not Found",
//	    "status": 422,
//	    "file": "ratings.csv",
//	    "attempted_offsets": 16
//	}
package http
