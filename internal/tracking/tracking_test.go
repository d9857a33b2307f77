package tracking

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gridcli/internal/errors"
	"gridcli/pkg/contracts/domain"
)

func day(s string) time.Time {
	d, err := domain.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func days(ds []time.Time) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Format(domain.DateLayout)
	}
	return out
}

func testOptions() Options {
	return Options{
		Epoch:       day("2017-06-01"),
		LagDays:     DefaultLagDays,
		RetryWindow: DefaultRetryWindow,
	}
}

func TestEntityTracker_NextPendingAndMonotonic(t *testing.T) {
	tr := NewEntityTracker(filepath.Join(t.TempDir(), "track.json"), testOptions(), nil)
	require.True(t, tr.RecordSuccess("DL", day("2023-01-05")))

	pending := tr.NextPending("DL", day("2023-01-10"))
	assert.Equal(t, []string{"2023-01-06", "2023-01-07", "2023-01-08"}, days(pending))

	assert.True(t, tr.RecordSuccess("DL", day("2023-01-07")))
	assert.False(t, tr.RecordSuccess("DL", day("2023-01-06")))
	assert.False(t, tr.RecordSuccess("DL", day("2023-01-07")))

	last, ok := tr.Last("DL")
	require.True(t, ok)
	assert.Equal(t, "2023-01-07", last.Format(domain.DateLayout))
}

func TestEntityTracker_EpochForNewEntity(t *testing.T) {
	opts := testOptions()
	opts.Epoch = day("2023-01-01")
	tr := NewEntityTracker(filepath.Join(t.TempDir(), "track.json"), opts, nil)

	assert.Equal(t, []string{"2023-01-01", "2023-01-02"}, days(tr.NextPending("KA", day("2023-01-04"))))
	assert.Empty(t, tr.NextPending("KA", day("2023-01-02")))
}

func TestEntityTracker_RecordBatchTakesMax(t *testing.T) {
	tr := NewEntityTracker(filepath.Join(t.TempDir(), "track.json"), testOptions(), nil)
	tr.RecordSuccess("MH", day("2023-02-01"))

	// completion order is arbitrary
	tr.RecordBatch([]domain.WorkItem{
		{Key: "DL", Date: "2023-01-03"},
		{Key: "DL", Date: "2023-01-05"},
		{Key: "DL", Date: "2023-01-04"},
		{Key: "MH", Date: "2023-01-20"},
		{Key: "KA", Date: "not-a-date"},
	})

	snap := tr.Snapshot()
	assert.Equal(t, "2023-01-05", snap["DL"].LastFetched)
	assert.Equal(t, "2023-02-01", snap["MH"].LastFetched)
	_, ok := snap["KA"]
	assert.False(t, ok)
}

func TestEntityTracker_Pending(t *testing.T) {
	tr := NewEntityTracker(filepath.Join(t.TempDir(), "track.json"), testOptions(), nil)
	tr.RecordSuccess("DL", day("2023-01-06"))
	tr.RecordSuccess("KA", day("2023-01-07"))

	items := tr.Pending([]string{"DL", "KA"}, day("2023-01-10"))
	assert.Equal(t, []domain.WorkItem{
		{Key: "DL", Date: "2023-01-07"},
		{Key: "DL", Date: "2023-01-08"},
		{Key: "KA", Date: "2023-01-08"},
	}, items)
}

func TestEntityTracker_FlushAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds", "track.json")
	tr := NewEntityTracker(path, testOptions(), nil)
	tr.RecordSuccess("DL", day("2023-01-05"))
	require.NoError(t, tr.Flush())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, "2023-01-05", onDisk["DL"]["last_fetched"])

	reloaded := NewEntityTracker(path, testOptions(), nil)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, []string{"DL"}, reloaded.Keys())
}

func TestEntityTracker_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	err := NewEntityTracker(path, testOptions(), nil).Load()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeStorage, apperrors.TypeOf(err))
}

func TestDownloadTracker_NextPending(t *testing.T) {
	tests := []struct {
		name     string
		latest   string
		failed   []string
		asOf     string
		expected []string
	}{
		{
			name:     "range after latest",
			latest:   "2023-01-05",
			asOf:     "2023-01-10",
			expected: []string{"2023-01-06", "2023-01-07", "2023-01-08"},
		},
		{
			name:     "failed dates first, oldest first",
			latest:   "2023-01-05",
			failed:   []string{"2023-01-04", "2023-01-02"},
			asOf:     "2023-01-08",
			expected: []string{"2023-01-02", "2023-01-04", "2023-01-06"},
		},
		{
			name:     "failed dates are not repeated",
			latest:   "2023-01-05",
			failed:   []string{"2023-01-07"},
			asOf:     "2023-01-10",
			expected: []string{"2023-01-07", "2023-01-06", "2023-01-08"},
		},
		{
			name:     "old failures expire",
			latest:   "2023-03-01",
			failed:   []string{"2023-01-01", "2023-02-20"},
			asOf:     "2023-03-04",
			expected: []string{"2023-02-20", "2023-03-02"},
		},
		{
			name:     "nothing pending inside the lag",
			latest:   "2023-01-08",
			asOf:     "2023-01-10",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewDownloadTracker(filepath.Join(t.TempDir(), "track.json"), testOptions(), nil)
			tr.RecordSuccess(day(tt.latest))
			for _, f := range tt.failed {
				tr.RecordFailure(day(f), "https://example.test/"+f, 404)
			}
			assert.Equal(t, tt.expected, days(tr.NextPending(day(tt.asOf))))
		})
	}
}

func TestDownloadTracker_StartsAtEpoch(t *testing.T) {
	opts := testOptions()
	opts.Epoch = day("2017-09-01")
	tr := NewDownloadTracker(filepath.Join(t.TempDir(), "track.json"), opts, nil)

	pending := tr.NextPending(day("2017-09-05"))
	assert.Equal(t, []string{"2017-09-01", "2017-09-02", "2017-09-03"}, days(pending))
}

func TestDownloadTracker_SuccessClearsFailure(t *testing.T) {
	tr := NewDownloadTracker(filepath.Join(t.TempDir(), "track.json"), testOptions(), nil)
	tr.RecordSuccess(day("2023-01-07"))
	tr.RecordFailure(day("2023-01-05"), "u", 500)

	latest, _ := tr.Latest()
	assert.Equal(t, "2023-01-07", latest.Format(domain.DateLayout), "a failure does not move latest")

	tr.RecordSuccess(day("2023-01-05"))
	assert.Empty(t, tr.Failed())
	latest, _ = tr.Latest()
	assert.Equal(t, "2023-01-07", latest.Format(domain.DateLayout))
}

func TestDownloadTracker_FlushAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "track.json")
	tr := NewDownloadTracker(path, testOptions(), nil)
	tr.RecordSuccess(day("2023-01-05"))
	tr.RecordFailure(day("2023-01-03"), "https://npp.gov.in/x", 404)
	require.NoError(t, tr.Flush())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk struct {
		Failed map[string]struct {
			URL          string `json:"url"`
			ResponseCode int    `json:"response_code"`
		} `json:"failed"`
		Latest string `json:"latest_downloaded_date"`
	}
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, "2023-01-05", onDisk.Latest)
	assert.Equal(t, 404, onDisk.Failed["2023-01-03"].ResponseCode)

	reloaded := NewDownloadTracker(path, testOptions(), nil)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, tr.Failed(), reloaded.Failed())
	latest, ok := reloaded.Latest()
	require.True(t, ok)
	assert.Equal(t, "2023-01-05", latest.Format(domain.DateLayout))
}

func TestDownloadTracker_LoadMissingFile(t *testing.T) {
	tr := NewDownloadTracker(filepath.Join(t.TempDir(), "absent.json"), testOptions(), nil)
	require.NoError(t, tr.Load())
	_, ok := tr.Latest()
	assert.False(t, ok)
}

func TestDateRange(t *testing.T) {
	assert.Len(t, DateRange(day("2020-02-27"), day("2020-03-01")), 4)
	assert.Empty(t, DateRange(day("2020-03-02"), day("2020-03-01")))
}

func TestLedger_DoneIsPerDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	l := NewLedger(path, nil)
	l.now = func() time.Time { return time.Date(2023, time.January, 10, 6, 0, 0, 0, time.UTC) }

	l.RecordSuccess(day("2023-01-05"), 412)
	l.RecordFailure(day("2023-01-03"), "dgr2-2023-01-03.xls", apperrors.NewShapeError(13, 15))

	tests := []struct {
		date string
		done bool
	}{
		{"2023-01-01", false},
		{"2023-01-03", false},
		{"2023-01-05", true},
		{"2023-01-06", false},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.done, l.Done(day(tt.date)))
		})
	}

	require.NoError(t, l.Flush())
	reloaded := NewLedger(path, nil)
	require.NoError(t, reloaded.Load())
	assert.True(t, reloaded.Done(day("2023-01-05")))
	failed := reloaded.Failed()
	require.Contains(t, failed, "2023-01-03")
	assert.Equal(t, "SHAPE", failed["2023-01-03"].ErrorType)
	assert.Equal(t, "dgr2-2023-01-03.xls", failed["2023-01-03"].File)

	var raw domain.ProcessingLedger
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, domain.ProcessedReport{Rows: 412, ProcessedAt: "2023-01-10T06:00:00Z"}, raw.Processed["2023-01-05"])
}

func TestLedger_SuccessClearsFailure(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "processed.json"), nil)
	l.RecordFailure(day("2023-01-03"), "dgr2-2023-01-03.csv", apperrors.NewNotFoundError("data start sentinel"))
	l.RecordSuccess(day("2023-01-03"), 9)

	assert.Empty(t, l.Failed())
	assert.True(t, l.Done(day("2023-01-03")))
}

func TestLedger_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	err := NewLedger(path, nil).Load()
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrTypeStorage, apperrors.TypeOf(err))
}
