// Package files handles report files on disk.
//
// Discovery finds date-stamped report files (dgr2-YYYY-MM-DD.<ext>) and keeps
// one per date, preferring pre-extracted CSV grids. Archive keeps downloaded
// reports in one zip per year with entries named <year>/<format>/<file>, so a
// download that is already archived can be skipped. S3Mirror copies those
// archives to an S3 bucket when one is configured.
//
// WriteFileAtomic is used for state files that must never be left half
// written.
package files
