package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridcli/internal/dataprocessing"
	apperrors "gridcli/internal/errors"
	"gridcli/internal/download"
	"gridcli/internal/exporter"
	"gridcli/internal/files"
	"gridcli/internal/infrastructure"
	"gridcli/internal/operations"
	"gridcli/internal/tracking"
	"gridcli/pkg/contracts/domain"
)

func day(s string) time.Time {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func reportRow(label, unitNo, typ, sector, tag string) []string {
	row := make([]string, 15)
	row[0], row[1], row[2], row[3] = label, unitNo, typ, sector
	if tag != "" {
		for i := 4; i < 15; i++ {
			row[i] = fmt.Sprintf("%d", i)
		}
	}
	return row
}

// sampleReport has one row of every level and nine output rows
func sampleReport() [][]string {
	return [][]string{
		reportRow("Daily Generation Report", "", "", "", ""),
		reportRow("NORTHERN", "", "", "", ""),
		reportRow("REGION TOTAL", "", "", "", "m"),
		reportRow("Delhi", "", "", "", ""),
		reportRow("STATE TOTAL", "", "", "", "m"),
		reportRow("SECTOR: CENTRAL", "", "", "CENTRAL", "m"),
		reportRow("TYPE: THERMAL", "", "THERMAL", "", "m"),
		reportRow("Badarpur TPS", "", "", "", "m"),
		reportRow("Unit", "1", "", "", "m"),
		reportRow("Unit", "2.0", "", "", "m"),
		reportRow("WESTERN", "", "", "", "m"),
		reportRow("REGION TOTAL", "", "", "", "m"),
	}
}

func writeReport(t *testing.T, dir, name string, records [][]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, csv.NewWriter(f).WriteAll(records))
}

type reportFixture struct {
	raw     string
	out     string
	ledger  *tracking.Ledger
	mirror  *exporter.SQLiteMirror
	service *ReportService
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()
	dir := t.TempDir()
	f := &reportFixture{
		raw: filepath.Join(dir, "raw"),
		out: filepath.Join(dir, "output"),
	}

	processor, err := dataprocessing.NewProcessor(dataprocessing.ProcessorOptions{
		DataStartSentinel: "NORTHERN",
		ExpectedWidths: map[domain.SourceFormat]int{
			domain.FormatXLS: 15,
			domain.FormatPDF: 12,
		},
	}, dataprocessing.NewExtractor("", nil), nil)
	require.NoError(t, err)

	mirror, err := exporter.OpenSQLiteMirror(filepath.Join(dir, "grid.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mirror.Close() })
	f.mirror = mirror

	f.ledger = tracking.NewLedger(filepath.Join(f.out, ProcessingLedgerName), nil)
	f.service = NewReportService(ReportServiceOptions{
		Processor: processor,
		Writer:    exporter.NewDatasetWriter(f.out, nil),
		Mirror:    mirror,
		Ledger:    f.ledger,
		Pool:      operations.NewPool(2, nil),
		RawDir:    f.raw,
		BatchSize: 1,
	}, nil)
	return f
}

func TestReportService_Process(t *testing.T) {
	f := newReportFixture(t)
	writeReport(t, filepath.Join(f.raw, "xls"), "dgr2-2019-01-01.csv", sampleReport())
	writeReport(t, f.raw, "dgr2-2019-01-02.csv", [][]string{{"SOUTHERN", "1"}, {"REGION TOTAL", "2"}})

	summary, err := f.service.Process(context.Background(), ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Found)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 9, summary.Rows)
	assert.Equal(t, []string{"2019-01-02"}, summary.FailedDates)
	assert.Equal(t, 9, summary.Files[exporter.CombinedFileName])

	records, err := exporter.ReadCSV(filepath.Join(f.out, exporter.CombinedFileName))
	require.NoError(t, err)
	assert.Len(t, records, 10)
	assert.Equal(t, domain.Columns(), records[0])

	n, err := f.mirror.Count()
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	assert.True(t, f.ledger.Done(day("2019-01-01")))
	assert.False(t, f.ledger.Done(day("2019-01-02")))

	reloaded := tracking.NewLedger(filepath.Join(f.out, ProcessingLedgerName), nil)
	require.NoError(t, reloaded.Load())
	failed := reloaded.Failed()
	require.Contains(t, failed, "2019-01-02")
	assert.Equal(t, string(apperrors.ErrTypeNotFound), failed["2019-01-02"].ErrorType)
	assert.Equal(t, filepath.Join(f.raw, "dgr2-2019-01-02.csv"), failed["2019-01-02"].File)
}

func TestReportService_ProcessesEarlierDateFoundLater(t *testing.T) {
	f := newReportFixture(t)
	writeReport(t, f.raw, "dgr2-2019-01-02.csv", sampleReport())

	first, err := f.service.Process(context.Background(), ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Processed)
	assert.Equal(t, 9, first.Rows)

	// the downloader retried 2019-01-01 after 2019-01-02 was processed
	writeReport(t, f.raw, "dgr2-2019-01-01.csv", sampleReport())

	second, err := f.service.Process(context.Background(), ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Found)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 1, second.Processed)
	assert.Equal(t, 9, second.Rows)

	records, err := exporter.ReadCSV(filepath.Join(f.out, exporter.CombinedFileName))
	require.NoError(t, err)
	assert.Len(t, records, 19)
	assert.True(t, f.ledger.Done(day("2019-01-01")))
}

func TestReportService_FailedWriteKeepsDatePending(t *testing.T) {
	f := newReportFixture(t)
	writeReport(t, f.raw, "dgr2-2019-01-01.csv", sampleReport())
	require.NoError(t, os.MkdirAll(filepath.Join(f.out, "unit.csv"), 0755))

	_, err := f.service.Process(context.Background(), ProcessOptions{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeStorage, apperrors.TypeOf(err))
	assert.NoFileExists(t, filepath.Join(f.out, exporter.CombinedFileName))
	assert.NoFileExists(t, filepath.Join(f.out, "region.csv"))
	assert.False(t, f.ledger.Done(day("2019-01-01")))

	n, err := f.mirror.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, os.Remove(filepath.Join(f.out, "unit.csv")))
	summary, err := f.service.Process(context.Background(), ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)

	records, err := exporter.ReadCSV(filepath.Join(f.out, exporter.CombinedFileName))
	require.NoError(t, err)
	assert.Len(t, records, 10)
}

func TestReportService_SkipsProcessedDates(t *testing.T) {
	f := newReportFixture(t)
	writeReport(t, f.raw, "dgr2-2019-01-01.csv", sampleReport())
	writeReport(t, f.raw, "dgr2-2019-01-02.csv", [][]string{{"SOUTHERN", "1"}, {"REGION TOTAL", "2"}})

	_, err := f.service.Process(context.Background(), ProcessOptions{})
	require.NoError(t, err)

	second, err := f.service.Process(context.Background(), ProcessOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 1, second.Failed, "failed dates are retried")

	records, err := exporter.ReadCSV(filepath.Join(f.out, exporter.CombinedFileName))
	require.NoError(t, err)
	assert.Len(t, records, 10, "processed dates are not appended twice")

	third, err := f.service.Process(context.Background(), ProcessOptions{Reprocess: true})
	require.NoError(t, err)
	assert.Equal(t, 0, third.Skipped)
	assert.Equal(t, 1, third.Processed)
}

func TestReportService_DateRange(t *testing.T) {
	f := newReportFixture(t)
	writeReport(t, f.raw, "dgr2-2019-01-01.csv", sampleReport())
	writeReport(t, f.raw, "dgr2-2019-01-05.csv", sampleReport())

	summary, err := f.service.Process(context.Background(), ProcessOptions{From: day("2019-01-03")})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Found)
	assert.Equal(t, 1, summary.Processed)

	_, err = f.service.Process(context.Background(), ProcessOptions{To: day("2018-12-31")})
	assert.True(t, errors.Is(err, ErrNoReportsFound))
}

func TestReportService_FromArchiveRequiresArchive(t *testing.T) {
	f := newReportFixture(t)
	_, err := f.service.Process(context.Background(), ProcessOptions{FromArchive: true})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeConfig, apperrors.TypeOf(err))
}

func TestDownloadService_Run(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("report"))
	}))
	defer server.Close()

	dir := t.TempDir()
	tracker := tracking.NewDownloadTracker(filepath.Join(dir, "track.json"), tracking.Options{
		Epoch:       day("2023-01-01"),
		LagDays:     tracking.DefaultLagDays,
		RetryWindow: tracking.DefaultRetryWindow,
	}, nil)
	downloader := download.New(download.Options{
		BaseURL: server.URL + "/",
		RawDir:  filepath.Join(dir, "raw"),
		Client:  infrastructure.NewHTTPClient(infrastructure.HTTPClientOptions{Timeout: 5 * time.Second}, nil),
		Tracker: tracker,
		Archive: files.NewArchive(filepath.Join(dir, "archive")),
	}, nil)

	svc := NewDownloadService(downloader, tracker, time.UTC, nil)
	summary, err := svc.Run(context.Background(), day("2023-01-04"))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Downloaded)

	latest, ok := tracker.Latest()
	require.True(t, ok)
	assert.Equal(t, "2023-01-02", latest.Format(domain.DateLayout))
}

type stubSource struct {
	rows []domain.FeedRow
	err  error
}

func (s stubSource) Fetch(context.Context, domain.FeedRequest) ([]domain.FeedRow, error) {
	return s.rows, s.err
}

func TestFeedService_Fetch(t *testing.T) {
	tests := []struct {
		name    string
		source  stubSource
		rows    int
		errType apperrors.ErrorType
	}{
		{name: "rows", source: stubSource{rows: []domain.FeedRow{{"StateCode": "DL"}}}, rows: 1},
		{name: "contract", source: stubSource{err: apperrors.NewContractError("no data key", nil)}, errType: apperrors.ErrTypeContract},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFeedService(nil, tt.source, nil, nil, nil)
			rows, err := svc.Fetch(context.Background(), domain.FeedRequest{Type: domain.FeedCurrentState})
			if tt.errType != "" {
				require.Error(t, err)
				assert.Equal(t, tt.errType, apperrors.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Len(t, rows, tt.rows)
		})
	}
}

func TestFeedService_RunWithoutRunner(t *testing.T) {
	svc := NewFeedService(nil, stubSource{}, nil, nil, nil)
	_, err := svc.Run(context.Background(), domain.FeedCurrentIndia, time.Time{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeConfig, apperrors.TypeOf(err))
}

func TestHealthService_HealthCheck(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	tests := []struct {
		name   string
		dirs   map[string]string
		status string
		checks map[string]string
	}{
		{name: "healthy", dirs: map[string]string{"output": dir}, status: "ok", checks: map[string]string{"output": "ok"}},
		{
			name:   "missing",
			dirs:   map[string]string{"output": dir, "raw": filepath.Join(dir, "absent")},
			status: "degraded",
			checks: map[string]string{"output": "ok", "raw": "missing"},
		},
		{name: "not a directory", dirs: map[string]string{"archive": file}, status: "degraded", checks: map[string]string{"archive": "invalid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := NewHealthService("1.2.3", tt.dirs, nil).HealthCheck(context.Background())
			assert.Equal(t, tt.status, status.Status)
			assert.Equal(t, "1.2.3", status.Version)
			got := make(map[string]string)
			for name, c := range status.Checks {
				got[name] = c.Status
			}
			assert.Equal(t, tt.checks, got)
		})
	}
}
