package valuation

import (
	"math"

	"github.com/oskarw/folio/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// AxisBounds returns stable y-axis bounds for charting the value series:
// the maximum padded up 5% and the minimum padded down 5%, each rounded
// outward to the given magnitude (e.g. 10000) so axis labels do not jitter
// between recomputes.
func AxisBounds(series []domain.ValuePoint, magnitude float64) (yMin, yMax float64) {
	if len(series) == 0 || magnitude <= 0 {
		return 0, 0
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}

	max := floats.Max(values)
	min := floats.Min(values)

	yMax = math.Ceil(max * 1.05 / magnitude) * magnitude
	yMin = math.Floor(min * 0.95 / magnitude) * magnitude
	return yMin, yMax
}
