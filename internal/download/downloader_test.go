package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridcli/internal/files"
	"gridcli/internal/infrastructure"
	"gridcli/internal/tracking"
	"gridcli/pkg/contracts/domain"
)

type recordingUploader struct {
	mu    sync.Mutex
	paths []string
}

func (u *recordingUploader) Upload(_ context.Context, path string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, path)
	return nil
}

func day(s string) time.Time {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	dir      string
	server   *httptest.Server
	tracker  *tracking.DownloadTracker
	archive  *files.Archive
	uploader *recordingUploader
	hits     map[string]int
	mu       sync.Mutex
}

func newFixture(t *testing.T, missing ...string) *fixture {
	t.Helper()
	f := &fixture{
		dir:      t.TempDir(),
		uploader: &recordingUploader{},
		hits:     make(map[string]int),
	}
	absent := make(map[string]bool)
	for _, m := range missing {
		absent[m] = true
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		f.mu.Unlock()
		if absent[r.URL.Path] {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("report " + r.URL.Path))
	}))
	t.Cleanup(f.server.Close)

	f.tracker = tracking.NewDownloadTracker(filepath.Join(f.dir, "track.json"), tracking.Options{
		Epoch:       day("2023-01-01"),
		LagDays:     tracking.DefaultLagDays,
		RetryWindow: tracking.DefaultRetryWindow,
	}, nil)
	f.archive = files.NewArchive(filepath.Join(f.dir, "archive"))
	return f
}

func (f *fixture) downloader() *Downloader {
	return New(Options{
		BaseURL:  f.server.URL + "/dgr/",
		RawDir:   filepath.Join(f.dir, "raw"),
		Client:   infrastructure.NewHTTPClient(infrastructure.HTTPClientOptions{Timeout: 5 * time.Second}, nil),
		Tracker:  f.tracker,
		Archive:  f.archive,
		Uploader: f.uploader,
	}, nil)
}

func TestReportURL(t *testing.T) {
	tests := []struct {
		date     string
		expected string
	}{
		{"2023-01-05", "https://npp.gov.in/public-reports/cea/daily/dgr/05-01-2023/dgr2-2023-01-05.xls"},
		{"2017-12-31", "https://npp.gov.in/public-reports/cea/daily/dgr/31-12-2017/dgr2-2017-12-31.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d := day(tt.date)
			got := ReportURL("https://npp.gov.in/public-reports/cea/daily/dgr/", d, domain.FormatForDate(d))
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDownloader_Run(t *testing.T) {
	f := newFixture(t, "/dgr/02-01-2023/dgr2-2023-01-02.xls")

	summary, err := f.downloader().Run(context.Background(), day("2023-01-05"))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Downloaded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, []string{f.archive.Path(2023)}, summary.Archives)
	assert.Equal(t, summary.Archives, f.uploader.paths)

	raw, err := os.ReadFile(filepath.Join(f.dir, "raw", "xls", "dgr2-2023-01-03.xls"))
	require.NoError(t, err)
	assert.Equal(t, "report /dgr/03-01-2023/dgr2-2023-01-03.xls", string(raw))

	entries, err := f.archive.List(2023)
	require.NoError(t, err)
	assert.Equal(t, []string{"2023/xls/dgr2-2023-01-01.xls", "2023/xls/dgr2-2023-01-03.xls"}, entries)

	failed := f.tracker.Failed()
	require.Contains(t, failed, "2023-01-02")
	assert.Equal(t, http.StatusNotFound, failed["2023-01-02"].ResponseCode)
	latest, ok := f.tracker.Latest()
	require.True(t, ok)
	assert.Equal(t, "2023-01-03", latest.Format(domain.DateLayout))

	reloaded := tracking.NewDownloadTracker(filepath.Join(f.dir, "track.json"), tracking.Options{Epoch: day("2023-01-01"), LagDays: 2, RetryWindow: tracking.DefaultRetryWindow}, nil)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, f.tracker.Failed(), reloaded.Failed(), "tracking is flushed during the run")
}

func TestDownloader_RetriesFailuresAndSkipsArchived(t *testing.T) {
	f := newFixture(t, "/dgr/02-01-2023/dgr2-2023-01-02.xls")
	_, err := f.downloader().Run(context.Background(), day("2023-01-05"))
	require.NoError(t, err)

	// the archive already holds 2023-01-04, so it is skipped without a request
	src := filepath.Join(f.dir, "seed.xls")
	require.NoError(t, os.WriteFile(src, []byte("seed"), 0644))
	require.NoError(t, f.archive.Add(2023, "2023/xls/dgr2-2023-01-04.xls", src))

	summary, err := f.downloader().Run(context.Background(), day("2023-01-06"))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed, "2023-01-02 is retried and still missing")
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Downloaded)
	assert.Equal(t, 2, f.hits["/dgr/02-01-2023/dgr2-2023-01-02.xls"])
	assert.Zero(t, f.hits["/dgr/04-01-2023/dgr2-2023-01-04.xls"])

	latest, _ := f.tracker.Latest()
	assert.Equal(t, "2023-01-04", latest.Format(domain.DateLayout))
}

func TestDownloader_Cancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.downloader().Run(ctx, day("2023-01-05"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.hits)
}
