package dataprocessing

import (
	"fmt"
	"sort"

	apperrors "gridcli/internal/errors"
	"gridcli/pkg/contracts/domain"
)

// absent marks a measure a layout does not carry
const absent = -1

// Layout maps the columns of one report variant. Sector and Type may point at
// the same column in variants where the two were merged.
type Layout struct {
	Format domain.SourceFormat
	Width  int
	Label  int
	UnitNo int
	Type   int
	Sector int
	// Measures holds one column index per domain.MeasureColumns entry
	Measures []int
}

// MeasureCells picks the measurement cells of row in output order
func (l Layout) MeasureCells(row domain.Row) []domain.Cell {
	cells := make([]domain.Cell, len(domain.MeasureColumns))
	for i := range cells {
		if i < len(l.Measures) && l.Measures[i] != absent {
			cells[i] = row.At(l.Measures[i])
		}
	}
	return cells
}

func (l Layout) validate() error {
	if len(l.Measures) != len(domain.MeasureColumns) {
		return fmt.Errorf("layout %s/%d maps %d measures, want %d",
			l.Format, l.Width, len(l.Measures), len(domain.MeasureColumns))
	}
	for _, idx := range append([]int{l.Label, l.UnitNo, l.Type, l.Sector}, l.Measures...) {
		if idx >= l.Width {
			return fmt.Errorf("layout %s/%d references column %d", l.Format, l.Width, idx)
		}
	}
	return nil
}

// sequence returns count consecutive indices starting at from, padded with
// absent up to the measure count.
func sequence(from, count int) []int {
	out := make([]int, len(domain.MeasureColumns))
	for i := range out {
		if i < count {
			out[i] = from + i
		} else {
			out[i] = absent
		}
	}
	return out
}

// DefaultLayouts returns the known report variants
func DefaultLayouts() []Layout {
	return []Layout{
		{
			Format: domain.FormatXLS, Width: 15,
			Label: 0, UnitNo: 1, Type: 2, Sector: 3,
			Measures: sequence(4, 11),
		},
		{
			// later spreadsheets merge the sector and type columns
			Format: domain.FormatXLS, Width: 14,
			Label: 0, UnitNo: 1, Type: 2, Sector: 2,
			Measures: sequence(3, 11),
		},
		{
			Format: domain.FormatPDF, Width: 12,
			Label: 0, UnitNo: 2, Type: 3, Sector: 3,
			Measures: []int{1, 4, 5, 6, 7, 8, absent, 9, 10, 11, absent},
		},
		{
			Format: domain.FormatPDF, Width: 11,
			Label: 0, UnitNo: 2, Type: 3, Sector: 3,
			Measures: []int{1, 4, 5, 6, 7, 8, absent, 9, 10, absent, absent},
		},
	}
}

type layoutKey struct {
	format domain.SourceFormat
	width  int
}

// LayoutTable resolves {format, width} to a Layout
type LayoutTable struct {
	layouts map[layoutKey]Layout
}

// NewLayoutTable indexes layouts, rejecting inconsistent or duplicate entries
func NewLayoutTable(layouts []Layout) (*LayoutTable, error) {
	t := &LayoutTable{layouts: make(map[layoutKey]Layout, len(layouts))}
	for _, l := range layouts {
		if err := l.validate(); err != nil {
			return nil, err
		}
		key := layoutKey{l.Format, l.Width}
		if _, dup := t.layouts[key]; dup {
			return nil, fmt.Errorf("duplicate layout %s/%d", l.Format, l.Width)
		}
		t.layouts[key] = l
	}
	return t, nil
}

// Resolve returns the layout for a validated report width
func (t *LayoutTable) Resolve(format domain.SourceFormat, width int) (Layout, error) {
	l, ok := t.layouts[layoutKey{format, width}]
	if !ok {
		return Layout{}, apperrors.NewUnparsableError(
			fmt.Sprintf("no %s layout for width %d (known: %v)", format, width, t.widths(format)), nil)
	}
	return l, nil
}

func (t *LayoutTable) widths(format domain.SourceFormat) []int {
	var out []int
	for k := range t.layouts {
		if k.format == format {
			out = append(out, k.width)
		}
	}
	sort.Ints(out)
	return out
}
