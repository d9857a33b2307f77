package dataprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "gridcli/internal/errors"
	"gridcli/pkg/contracts/domain"
)

// Row sentinels
const (
	RegionTotal  = "REGION TOTAL"
	StateTotal   = "STATE TOTAL"
	SectorPrefix = "SECTOR:"
	TypePrefix   = "TYPE:"
	UnitPrefix   = "Unit"
)

// Step is the outcome of classifying one row
type Step struct {
	Context domain.HierarchyContext
	Class   domain.RowClass
	Unit    string
}

// Classify decides the role of row given the context built so far and the
// row before it. It has no side effects; the returned context replaces ctx
// for the next row. Unclassified rows return ctx unchanged.
func Classify(ctx domain.HierarchyContext, prev, row domain.Row, layout Layout) (Step, error) {
	label := row.At(layout.Label)
	if label.IsNull() {
		return Step{}, apperrors.NewUnparsableError("row has no value in the label column", nil)
	}

	switch {
	case label.Equals(RegionTotal):
		name, err := labelAbove(prev, layout, RegionTotal)
		if err != nil {
			return Step{}, err
		}
		return Step{Context: ctx.EnterRegion(name), Class: domain.ClassRegion}, nil

	case label.Equals(StateTotal):
		name, err := labelAbove(prev, layout, StateTotal)
		if err != nil {
			return Step{}, err
		}
		return Step{Context: ctx.EnterState(name), Class: domain.ClassState}, nil

	case label.HasPrefix(SectorPrefix):
		name := namedCell(row, layout.Sector, label.Value, SectorPrefix)
		return Step{Context: ctx.EnterSector(name), Class: domain.ClassSector}, nil

	case label.HasPrefix(TypePrefix):
		name := namedCell(row, layout.Type, label.Value, TypePrefix)
		return Step{Context: ctx.EnterStationType(name), Class: domain.ClassStationType}, nil

	case isStationRow(ctx, label):
		return Step{Context: ctx.EnterStation(label.Value), Class: domain.ClassStation}, nil

	case isUnitRow(ctx, label):
		unit, err := unitID(label.Value, row.At(layout.UnitNo))
		if err != nil {
			return Step{}, err
		}
		return Step{Context: ctx, Class: domain.ClassUnit, Unit: unit}, nil
	}

	return Step{Context: ctx, Class: domain.ClassUnclassified}, nil
}

// isStationRow: a station type is active and the row either opens the first
// station under it or is any non-unit row after a station.
func isStationRow(ctx domain.HierarchyContext, label domain.Cell) bool {
	if ctx.StationType == "" {
		return false
	}
	return ctx.Station == "" || !label.HasPrefix(UnitPrefix)
}

func isUnitRow(ctx domain.HierarchyContext, label domain.Cell) bool {
	return ctx.Station != "" && label.HasPrefix(UnitPrefix)
}

// labelAbove reads a total row's name from the label cell of the row before it
func labelAbove(prev domain.Row, layout Layout, sentinel string) (string, error) {
	name := prev.At(layout.Label)
	if name.IsNull() {
		return "", apperrors.NewUnparsableError(fmt.Sprintf("%s row without a label row above it", sentinel), nil)
	}
	return name.Value, nil
}

// namedCell reads a level name from its own column, falling back to the text
// after the prefix in the label when that column is empty.
func namedCell(row domain.Row, col int, label, prefix string) string {
	if cell := row.At(col); !cell.IsNull() && cell.Value != label {
		return cell.Value
	}
	return strings.TrimSpace(strings.TrimPrefix(label, prefix))
}

func unitID(label string, number domain.Cell) (string, error) {
	n, ok := number.Float()
	if !ok {
		return "", apperrors.NewMalformedUnitError(label, fmt.Errorf("unit number %q is not numeric", number.String()))
	}
	if n != math.Trunc(n) {
		return "", apperrors.NewMalformedUnitError(label, fmt.Errorf("unit number %v is not an integer", n))
	}
	return label + " " + strconv.FormatInt(int64(n), 10), nil
}

// Reconstruct walks a cleaned, validated grid top to bottom and emits one
// denormalized row per classified row. Rows before the first region are
// dropped. Any malformed row aborts the whole report.
func Reconstruct(report *domain.Report, grid domain.Grid, layout Layout) ([]domain.DenormalizedRow, error) {
	var (
		ctx  domain.HierarchyContext
		prev domain.Row
		out  = make([]domain.DenormalizedRow, 0, len(grid))
		date = report.DateString()
	)

	for i, row := range grid {
		step, err := Classify(ctx, prev, row, layout)
		if err != nil {
			if appErr, ok := err.(*apperrors.AppError); ok {
				appErr.WithContext("row", i)
			}
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		prev = row

		if step.Class == domain.ClassUnclassified {
			continue
		}
		ctx = step.Context
		if ctx.Region == "" {
			continue
		}

		out = append(out, domain.DenormalizedRow{
			Class:    step.Class,
			Context:  ctx,
			Unit:     step.Unit,
			Date:     date,
			Format:   report.Format,
			Measures: layout.MeasureCells(row),
		})
	}

	return out, nil
}
