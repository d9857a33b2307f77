// Package tracking persists resume cursors so repeated runs only handle
// what is still missing.
//
// DownloadTracker keeps the report downloader state:
//
//	{"failed": {"2023-01-03": {"url": "...", "response_code": 404}}, "latest_downloaded_date": "2023-01-05"}
//
// EntityTracker keeps one cursor per entity for the feed pipeline:
//
//	{"DL": {"last_fetched": "2023-01-05"}}
//
// Ledger keeps every processed report date, so a report that arrives after
// later dates were processed is still picked up:
//
//	{"processed": {"2023-01-05": {"rows": 412, "processed_at": "..."}}, "failed": {"2023-01-03": {"file": "...", "error_type": "SHAPE", "error": "..."}}}
//
// Cursors only move forward. Pending ranges end LagDays before the as-of
// date. Flush replaces the file atomically, so a crash mid-write keeps the
// previous state.
package tracking
