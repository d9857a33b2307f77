package dataprocessing

import (
	"strings"

	"gridcli/pkg/contracts/domain"
)

// AlignPDF repairs the column drift PDF extraction introduces on unit rows.
// A null Outage Type column is inserted at index 1. On unit rows the
// annotation the extractor left in the following cell moves into it and the
// rest of the row shifts left. The trailing column is dropped, so the width
// is unchanged.
func AlignPDF(grid domain.Grid) domain.Grid {
	out := make(domain.Grid, len(grid))
	for i, row := range grid {
		out[i] = alignRow(row)
	}
	return out
}

func alignRow(row domain.Row) domain.Row {
	if len(row) < 2 {
		return append(domain.Row(nil), row...)
	}

	shifted := make(domain.Row, 0, len(row)+1)
	shifted = append(shifted, row[0], domain.Null)
	shifted = append(shifted, row[1:]...)

	if row[0].HasPrefix(UnitPrefix) {
		shifted[0] = domain.Text(normalizeUnitLabel(row[0].Value))
		shifted[1] = shifted[2]
		copy(shifted[2:], shifted[3:])
		shifted[len(shifted)-1] = domain.Null
	}

	return shifted[:len(shifted)-1]
}

// normalizeUnitLabel turns "Unit1" into "Unit 1"
func normalizeUnitLabel(label string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(label, UnitPrefix))
	if rest == "" {
		return UnitPrefix
	}
	return UnitPrefix + " " + rest
}
