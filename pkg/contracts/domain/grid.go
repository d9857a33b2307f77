package domain

import (
	"math"
	"strconv"
	"strings"
)

// Cell is a single extracted table value. A cell is either text (numbers are
// carried as their textual rendering) or the null marker.
type Cell struct {
	Value string
	Valid bool
}

// Null is the missing-value marker
var Null = Cell{}

// Text wraps s as a non-null cell
func Text(s string) Cell {
	return Cell{Value: s, Valid: true}
}

// IsNull reports whether the cell holds no value
func (c Cell) IsNull() bool {
	return !c.Valid
}

// String returns the cell text, or "" for null cells
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	return c.Value
}

// Float parses the cell as a number. Thousands separators are ignored.
func (c Cell) Float() (float64, bool) {
	if !c.Valid {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(c.Value), ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// HasPrefix reports whether a non-null cell starts with prefix
func (c Cell) HasPrefix(prefix string) bool {
	return c.Valid && strings.HasPrefix(c.Value, prefix)
}

// Equals reports whether a non-null cell holds exactly s
func (c Cell) Equals(s string) bool {
	return c.Valid && c.Value == s
}

// Row is one physical line of an extracted table
type Row []Cell

// At returns the cell at index i, or Null when i is out of range
func (r Row) At(i int) Cell {
	if i < 0 || i >= len(r) {
		return Null
	}
	return r[i]
}

// IsEmpty reports whether every cell is null
func (r Row) IsEmpty() bool {
	for _, c := range r {
		if c.Valid {
			return false
		}
	}
	return true
}

// Strings renders the row as plain strings, nulls becoming ""
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.String()
	}
	return out
}

// Grid is a 2-D table of cells, one Row per physical table row
type Grid []Row

// NewGrid builds a grid from raw string records. Every value is kept as text;
// the cleaner decides what counts as empty.
func NewGrid(records [][]string) Grid {
	g := make(Grid, len(records))
	for i, rec := range records {
		row := make(Row, len(rec))
		for j, v := range rec {
			row[j] = Text(v)
		}
		g[i] = row
	}
	return g
}

// Width returns the length of the longest row
func (g Grid) Width() int {
	w := 0
	for _, r := range g {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// Clone returns a deep copy of the grid
func (g Grid) Clone() Grid {
	out := make(Grid, len(g))
	for i, r := range g {
		out[i] = append(Row(nil), r...)
	}
	return out
}
