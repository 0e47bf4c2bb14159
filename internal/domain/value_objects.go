package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPercentage is returned for values outside 0-100.
var ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")

// Percentage represents a coverage percentage value.
// It is a value object that keeps coverage values within 0-100.
type Percentage struct {
	value float64
}

// NewPercentage creates a new Percentage.
// Returns an error if the value is not between 0 and 100.
func NewPercentage(value float64) (Percentage, error) {
	if math.IsNaN(value) || value < 0 || value > 100 {
		return Percentage{}, ErrInvalidPercentage
	}
	return Percentage{value: value}, nil
}

// PercentageFromRatio calculates a percentage from a covered/total ratio.
func PercentageFromRatio(covered, total int) Percentage {
	if total == 0 {
		return Percentage{value: 0}
	}
	return Percentage{value: float64(covered) / float64(total) * 100}
}

// AveragePercentage returns the mean of the given values, 0 for none.
func AveragePercentage(values []float64) Percentage {
	if len(values) == 0 {
		return Percentage{}
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return Percentage{value: sum / float64(len(values))}
}

// Value returns the raw percentage value.
func (p Percentage) Value() float64 {
	return p.value
}

// Rounded returns the value rounded to two decimal places.
func (p Percentage) Rounded() float64 {
	return Round2(p.value)
}

// String returns a formatted string representation.
func (p Percentage) String() string {
	return fmt.Sprintf("%.2f%%", p.value)
}

// IsZero returns true if the percentage is zero.
func (p Percentage) IsZero() bool {
	return p.value == 0
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
