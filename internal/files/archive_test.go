package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridcli/pkg/contracts/domain"
)

func writeReport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestEntryName(t *testing.T) {
	date := time.Date(2018, time.April, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2018/xls/dgr2-2018-04-01.xls", EntryName(date, domain.FormatXLS, "dgr2-2018-04-01.xls"))
}

func TestArchive_AddListContains(t *testing.T) {
	tmpDir := t.TempDir()
	archive := NewArchive(filepath.Join(tmpDir, "archive"))
	day1 := time.Date(2018, time.April, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	ok, err := archive.Contains(day1, domain.FormatXLS, "dgr2-2018-04-01.xls")
	require.NoError(t, err)
	assert.False(t, ok)

	for _, d := range []time.Time{day1, day2} {
		name := domain.ReportFileName(d, domain.FormatXLS)
		src := writeReport(t, tmpDir, name, "report "+name)
		require.NoError(t, archive.Add(2018, EntryName(d, domain.FormatXLS, name), src))
	}

	entries, err := archive.List(2018)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2018/xls/dgr2-2018-04-01.xls",
		"2018/xls/dgr2-2018-04-02.xls",
	}, entries)

	// a fresh instance reads the zip from disk
	reopened := NewArchive(filepath.Join(tmpDir, "archive"))
	ok, err = reopened.Contains(day2, domain.FormatXLS, "dgr2-2018-04-02.xls")
	require.NoError(t, err)
	assert.True(t, ok)

	years, err := reopened.Years()
	require.NoError(t, err)
	assert.Equal(t, []int{2018}, years)
}

func TestArchive_AddReplacesEntry(t *testing.T) {
	tmpDir := t.TempDir()
	archive := NewArchive(tmpDir)
	entry := "2019/xls/dgr2-2019-01-01.xls"

	require.NoError(t, archive.Add(2019, entry, writeReport(t, tmpDir, "a.xls", "first")))
	require.NoError(t, archive.Add(2019, entry, writeReport(t, tmpDir, "b.xls", "second")))

	entries, err := archive.List(2019)
	require.NoError(t, err)
	assert.Equal(t, []string{entry}, entries)

	out := filepath.Join(tmpDir, "out")
	written, err := archive.Extract(2019, out)
	require.NoError(t, err)
	require.Len(t, written, 1)

	data, err := os.ReadFile(filepath.Join(out, "dgr2-2019-01-01.xls"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestArchive_ExtractSkipsExisting(t *testing.T) {
	tmpDir := t.TempDir()
	archive := NewArchive(filepath.Join(tmpDir, "archive"))
	src := writeReport(t, tmpDir, "dgr2-2017-10-01.pdf", "pdf bytes")
	require.NoError(t, archive.Add(2017, "2017/pdf/dgr2-2017-10-01.pdf", src))

	out := filepath.Join(tmpDir, "out")
	writeReport(t, mustMkdir(t, out), "dgr2-2017-10-01.pdf", "local copy")

	written, err := archive.Extract(2017, out)
	require.NoError(t, err)
	assert.Empty(t, written)

	data, err := os.ReadFile(filepath.Join(out, "dgr2-2017-10-01.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "local copy", string(data))
}

func TestArchive_MissingYear(t *testing.T) {
	archive := NewArchive(t.TempDir())

	entries, err := archive.List(2020)
	require.NoError(t, err)
	assert.Empty(t, entries)

	written, err := archive.Extract(2020, t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, written)
}

func mustMkdir(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	return dir
}
