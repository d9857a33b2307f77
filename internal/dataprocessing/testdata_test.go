package dataprocessing

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gridcli/pkg/contracts/domain"
)

const testWidth = 15

// measures returns eleven distinct measure values tagged with tag
func measures(tag string) []string {
	out := make([]string, 11)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", tag, i)
	}
	return out
}

// xlsRow builds a 15-column spreadsheet row: label, unit no, type, sector, measures
func xlsRow(label, unitNo, typ, sector string, m []string) []string {
	row := make([]string, testWidth)
	row[0], row[1], row[2], row[3] = label, unitNo, typ, sector
	copy(row[4:], m)
	return row
}

// reportRecords is a small report with one of each level in order, followed
// by the start of a second region.
func reportRecords() [][]string {
	return [][]string{
		xlsRow("Daily Generation Report", "", "", "", nil),
		xlsRow("NORTHERN", "", "", "", nil),
		xlsRow("REGION TOTAL", "", "", "", measures("region")),
		xlsRow("Delhi", "", "", "", nil),
		xlsRow("STATE TOTAL", "", "", "", measures("state")),
		xlsRow("SECTOR: CENTRAL", "", "", "CENTRAL", measures("sector")),
		xlsRow("TYPE: THERMAL", "", "THERMAL", "", measures("type")),
		xlsRow("Badarpur TPS", "", "", "", measures("station")),
		xlsRow("Unit", "1", "", "", measures("unit1")),
		xlsRow("Unit", "2.0", "", "", measures("unit2")),
		xlsRow("WESTERN", "", "", "", measures("western")),
		xlsRow("REGION TOTAL", "", "", "", measures("region2")),
	}
}

func reportGrid() domain.Grid {
	return domain.NewGrid(reportRecords())
}

func writeCSVGrid(t *testing.T, dir, name string, records [][]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(records))
	return path
}
