package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical date rendering used in file names, CSV
// columns and tracking files.
const DateLayout = "2006-01-02"

// SourceFormat identifies how a daily report was published
type SourceFormat string

const (
	FormatXLS SourceFormat = "xls"
	FormatPDF SourceFormat = "pdf"
)

// PDFCutover is the first date reports were published as spreadsheets.
// Earlier dates exist only as PDF bulletins.
var PDFCutover = time.Date(2018, time.March, 31, 0, 0, 0, 0, time.UTC)

// FormatForDate returns the format the publisher used on the given date
func FormatForDate(date time.Time) SourceFormat {
	if Day(date).Before(PDFCutover) {
		return FormatPDF
	}
	return FormatXLS
}

// ParseSourceFormat converts a string to a SourceFormat
func ParseSourceFormat(s string) (SourceFormat, error) {
	switch SourceFormat(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case FormatXLS, "xlsx":
		return FormatXLS, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown source format %q", s)
	}
}

// Report is one source file for one calendar date
type Report struct {
	Date   time.Time    `json:"date"`
	Format SourceFormat `json:"format" validate:"required,oneof=xls pdf"`
	Path   string       `json:"path"`
	Grid   Grid         `json:"-"`
}

// DateString returns the report date as YYYY-MM-DD
func (r *Report) DateString() string {
	return r.Date.Format(DateLayout)
}

// Day truncates t to its calendar date in UTC, keeping the wall clock date
// of t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a calendar date
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// ReportNamePrefix starts every published report file name
const ReportNamePrefix = "dgr2-"

var reportNamePattern = regexp.MustCompile(`^dgr2-(\d{4}-\d{2}-\d{2})\.(xlsx|xls|pdf|csv)$`)

// ReportFileName returns the published file name for date in format
func ReportFileName(date time.Time, format SourceFormat) string {
	return ReportNamePrefix + date.Format(DateLayout) + "." + string(format)
}

// ParseReportFileName extracts the report date and extension from a file
// name such as dgr2-2018-04-01.xls. ok is false for anything else.
func ParseReportFileName(name string) (date time.Time, ext string, ok bool) {
	m := reportNamePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return time.Time{}, "", false
	}
	date, err := ParseDay(m[1])
	if err != nil {
		return time.Time{}, "", false
	}
	return date, m[2], true
}
