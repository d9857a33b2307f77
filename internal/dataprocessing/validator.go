package dataprocessing

import (
	apperrors "gridcli/internal/errors"
	"gridcli/pkg/contracts/domain"
)

// WidthTolerance is how many columns narrower than expected a report may be.
// Later bulletins merged two columns into one.
const WidthTolerance = 1

// Validate checks a row against the expected width for its source format
func Validate(row domain.Row, expectedWidth int) error {
	return validateWidth(len(row), expectedWidth)
}

// ValidateGrid checks every row of a cleaned grid and returns the grid width
func ValidateGrid(grid domain.Grid, expectedWidth int) (int, error) {
	for _, row := range grid {
		if err := Validate(row, expectedWidth); err != nil {
			return len(row), err
		}
	}
	return grid.Width(), nil
}

func validateWidth(width, expected int) error {
	if width == expected || width == expected-WidthTolerance {
		return nil
	}
	return apperrors.NewShapeError(width, expected)
}
