package files

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "gridcli/internal/errors"
	"gridcli/pkg/contracts/domain"
)

// Archive stores downloaded reports in one zip per year. Entries are named
// <year>/<format>/<file>.
type Archive struct {
	dir string

	mu      sync.Mutex
	entries map[int]map[string]bool
}

// NewArchive creates an archive rooted at dir
func NewArchive(dir string) *Archive {
	return &Archive{
		dir:     dir,
		entries: make(map[int]map[string]bool),
	}
}

// EntryName returns the archive entry for a report file
func EntryName(date time.Time, format domain.SourceFormat, fileName string) string {
	return fmt.Sprintf("%d/%s/%s", date.Year(), format, fileName)
}

// Path returns the zip file for year
func (a *Archive) Path(year int) string {
	return filepath.Join(a.dir, strconv.Itoa(year)+".zip")
}

// Years lists the years that have an archive, oldest first
func (a *Archive) Years() ([]int, error) {
	matches, err := filepath.Glob(filepath.Join(a.dir, "*.zip"))
	if err != nil {
		return nil, err
	}
	var years []int
	for _, m := range matches {
		year, err := strconv.Atoi(strings.TrimSuffix(filepath.Base(m), ".zip"))
		if err != nil {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

// List returns the sorted entry names of the archive for year. A missing
// archive has no entries.
func (a *Archive) List(year int) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	set, err := a.load(year)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Contains reports whether the report for date is already archived
func (a *Archive) Contains(date time.Time, format domain.SourceFormat, fileName string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	set, err := a.load(date.Year())
	if err != nil {
		return false, err
	}
	return set[EntryName(date, format, fileName)], nil
}

// Add stores the file at src under entry name in the archive for year. The
// zip is rewritten to a temp file and renamed into place.
func (a *Archive) Add(year int, name, src string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	set, err := a.load(year)
	if err != nil {
		return err
	}

	path := a.Path(year)
	if err := os.MkdirAll(a.dir, 0755); err != nil {
		return apperrors.NewStorageError("failed to create archive directory", err)
	}
	tmp, err := os.CreateTemp(a.dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.NewStorageError("failed to create archive", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	zw := zip.NewWriter(tmp)
	if err := copyEntries(zw, path, name); err != nil {
		tmp.Close()
		return err
	}
	if err := addEntry(zw, name, src); err != nil {
		tmp.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("failed to finish archive", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperrors.NewStorageError("failed to sync archive", err)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.NewStorageError("failed to close archive", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return apperrors.NewStorageError("failed to replace archive", err)
	}

	set[name] = true
	return nil
}

// Extract writes the entries of the archive for year into dir, keeping only
// the file name of each entry. Files already present are left alone.
// It returns the paths written.
func (a *Archive) Extract(year int, dir string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	zr, err := zip.OpenReader(a.Path(year))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError("failed to open archive", err)
	}
	defer zr.Close()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperrors.NewStorageError("failed to create extract directory", err)
	}

	var written []string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		dst := filepath.Join(dir, filepath.Base(f.Name))
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		if err := extractEntry(f, dst); err != nil {
			return written, err
		}
		written = append(written, dst)
	}
	return written, nil
}

// load returns the cached entry set for year, reading the zip once
func (a *Archive) load(year int) (map[string]bool, error) {
	if set, ok := a.entries[year]; ok {
		return set, nil
	}

	set := make(map[string]bool)
	zr, err := zip.OpenReader(a.Path(year))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, apperrors.NewStorageError("failed to open archive", err)
	default:
		for _, f := range zr.File {
			set[f.Name] = true
		}
		zr.Close()
	}

	a.entries[year] = set
	return set, nil
}

// copyEntries copies every entry of the zip at path except skip into zw
func copyEntries(zw *zip.Writer, path, skip string) error {
	zr, err := zip.OpenReader(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperrors.NewStorageError("failed to open archive", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name == skip {
			continue
		}
		if err := zw.Copy(f); err != nil {
			return apperrors.NewStorageError("failed to copy archive entry "+f.Name, err)
		}
	}
	return nil
}

func addEntry(zw *zip.Writer, name, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return apperrors.NewStorageError("failed to open "+src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return apperrors.NewStorageError("failed to stat "+src, err)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return apperrors.NewStorageError("failed to build entry header", err)
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return apperrors.NewStorageError("failed to create entry "+name, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return apperrors.NewStorageError("failed to write entry "+name, err)
	}
	return nil
}

func extractEntry(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return apperrors.NewStorageError("failed to open entry "+f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return apperrors.NewStorageError("failed to create "+dst, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return apperrors.NewStorageError("failed to extract "+f.Name, err)
	}
	return out.Close()
}
