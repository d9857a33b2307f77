// Package http serves the feed proxy.
//
// Handlers are thin: they decode and validate the request, call a service
// and render the result with go-chi/render. Every failure goes through
// errors.ErrorHandler so clients always receive the same body:
//
//	{"success": false, "error": {"status_code": 502, "error_code": "CONTRACT", "message": "..."}}
//
// Routes:
//
//	POST /api/v1/feeds   typed feed request, answers {"data": [...]}
//	GET  /healthz        data directory checks
//	GET  /version
//	GET  /metrics        Prometheus exposition
package http
