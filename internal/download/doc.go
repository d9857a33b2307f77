// Package download fetches the daily generation reports from the publisher.
//
// The downloader asks the download tracker for pending dates, skips reports
// already held in the yearly archive, saves the raw file under
// <raw_dir>/<format>/ and adds it to the archive. Tracking state is flushed
// after every date so an interrupted run resumes where it stopped.
package download
