package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gridcli/pkg/contracts/domain"
)

// ReportFile is a date-stamped report found on disk
type ReportFile struct {
	Path    string
	Name    string
	Date    time.Time
	Ext     string
	Size    int64
	ModTime time.Time
}

// extPriority ranks the files kept when one date has several. Pre-extracted
// grids win since they need no further conversion.
var extPriority = map[string]int{
	"csv":  0,
	"xlsx": 1,
	"xls":  2,
	"pdf":  3,
}

// Discovery provides file discovery operations
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindReports returns one report file per date in dir, oldest date first.
// Files that do not follow the report naming scheme are ignored.
func (d *Discovery) FindReports(dir string) ([]ReportFile, error) {
	fullPath := dir
	if !filepath.IsAbs(dir) {
		fullPath = filepath.Join(d.basePath, dir)
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", fullPath, err)
	}

	byDate := make(map[string]ReportFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		date, ext, ok := domain.ParseReportFileName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		file := ReportFile{
			Path:    filepath.Join(fullPath, entry.Name()),
			Name:    entry.Name(),
			Date:    date,
			Ext:     ext,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		key := date.Format(domain.DateLayout)
		if existing, seen := byDate[key]; !seen || extPriority[ext] < extPriority[existing.Ext] {
			byDate[key] = file
		}
	}

	files := make([]ReportFile, 0, len(byDate))
	for _, f := range byDate {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Date.Before(files[j].Date)
	})

	return files, nil
}

// FindReportsIn merges the reports of several directories, keeping one
// file per date by the same preference as FindReports. Missing directories
// are skipped.
func (d *Discovery) FindReportsIn(dirs ...string) ([]ReportFile, error) {
	byDate := make(map[string]ReportFile)
	for _, dir := range dirs {
		found, err := d.FindReports(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for _, f := range found {
			key := f.Date.Format(domain.DateLayout)
			if existing, seen := byDate[key]; !seen || extPriority[f.Ext] < extPriority[existing.Ext] {
				byDate[key] = f
			}
		}
	}

	files := make([]ReportFile, 0, len(byDate))
	for _, f := range byDate {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].Date.Before(files[j].Date)
	})
	return files, nil
}

// FilterReportsByDateRange keeps reports dated within [from, to]. A zero
// bound is open.
func FilterReportsByDateRange(files []ReportFile, from, to time.Time) []ReportFile {
	var filtered []ReportFile
	for _, file := range files {
		if !from.IsZero() && file.Date.Before(from) {
			continue
		}
		if !to.IsZero() && file.Date.After(to) {
			continue
		}
		filtered = append(filtered, file)
	}
	return filtered
}

// ReportPaths returns the paths of files in order
func ReportPaths(files []ReportFile) []string {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}
