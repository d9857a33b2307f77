package dataprocessing

import (
	"strings"

	apperrors "gridcli/internal/errors"
	"gridcli/pkg/contracts/domain"
)

// nullLiteral is what some extractors write for a missing value
const nullLiteral = "nan"

// Cleaner normalizes an extracted grid and trims it to the data section
type Cleaner struct {
	sentinel string
	denylist []string
}

// NewCleaner creates a cleaner that keeps rows from the first row holding
// sentinel and drops rows containing any denylist fragment.
func NewCleaner(sentinel string, denylist []string) *Cleaner {
	return &Cleaner{
		sentinel: sentinel,
		denylist: append([]string(nil), denylist...),
	}
}

// Clean returns a normalized copy of grid starting at the data-start row.
// The input is not modified. Clean is idempotent.
func (c *Cleaner) Clean(grid domain.Grid) (domain.Grid, error) {
	g := normalize(grid)
	g = c.dropDenylisted(g)
	g = dropEmptyRows(g)
	g = dropEmptyColumns(g)

	start := -1
	for i, row := range g {
		if c.isDataStart(row) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, apperrors.NewNotFoundError("data start sentinel " + c.sentinel)
	}

	return dropEmptyColumns(g[start:]), nil
}

func (c *Cleaner) isDataStart(row domain.Row) bool {
	for _, cell := range row {
		if cell.Equals(c.sentinel) {
			return true
		}
	}
	return false
}

func (c *Cleaner) dropDenylisted(g domain.Grid) domain.Grid {
	if len(c.denylist) == 0 {
		return g
	}
	out := g[:0:0]
	for _, row := range g {
		if !c.denylisted(row) {
			out = append(out, row)
		}
	}
	return out
}

func (c *Cleaner) denylisted(row domain.Row) bool {
	for _, cell := range row {
		if cell.IsNull() {
			continue
		}
		for _, fragment := range c.denylist {
			if strings.Contains(cell.Value, fragment) {
				return true
			}
		}
	}
	return false
}

// normalize collapses whitespace, nulls empty cells and pads ragged rows
func normalize(grid domain.Grid) domain.Grid {
	width := grid.Width()
	out := make(domain.Grid, len(grid))
	for i, row := range grid {
		clean := make(domain.Row, width)
		for j, cell := range row {
			clean[j] = normalizeCell(cell)
		}
		out[i] = clean
	}
	return out
}

func normalizeCell(cell domain.Cell) domain.Cell {
	if cell.IsNull() {
		return domain.Null
	}
	s := strings.Join(strings.Fields(cell.Value), " ")
	if s == "" || s == nullLiteral {
		return domain.Null
	}
	return domain.Text(s)
}

func dropEmptyRows(g domain.Grid) domain.Grid {
	out := g[:0:0]
	for _, row := range g {
		if !row.IsEmpty() {
			out = append(out, row)
		}
	}
	return out
}

func dropEmptyColumns(g domain.Grid) domain.Grid {
	width := g.Width()
	keep := make([]int, 0, width)
	for col := 0; col < width; col++ {
		for _, row := range g {
			if !row.At(col).IsNull() {
				keep = append(keep, col)
				break
			}
		}
	}
	if len(keep) == width {
		return g
	}

	out := make(domain.Grid, len(g))
	for i, row := range g {
		trimmed := make(domain.Row, len(keep))
		for j, col := range keep {
			trimmed[j] = row.At(col)
		}
		out[i] = trimmed
	}
	return out
}
