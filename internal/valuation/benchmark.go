package valuation

import (
	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/marketdata"
)

// BenchmarkOverlay rescales an external index series onto the portfolio's
// date axis for charting:
//
//	overlay[i] = indexPrice[i] * referenceValue / indexPrice[0]
//
// where referenceValue is the portfolio's own starting value. The result is
// a comparably-scaled line, not a return series. Index prices are aligned to
// the axis by as-of lookup (forward fill over non-trading days); axis points
// before the index's first known price fall back to that first price so the
// overlay has no leading gap.
func BenchmarkOverlay(index *marketdata.Series, axis []domain.ValuePoint, referenceValue float64) []float64 {
	if index == nil || index.Len() == 0 || len(axis) == 0 {
		return nil
	}

	aligned := make([]float64, len(axis))
	for i, point := range axis {
		price, ok := index.AsOf(point.Date)
		if !ok {
			// Before the index series begins: back-fill with its first price.
			first, _ := index.First()
			price, _ = index.AsOf(first)
		}
		aligned[i] = price
	}

	base := aligned[0]
	if base == 0 {
		return nil
	}

	overlay := make([]float64, len(aligned))
	for i, price := range aligned {
		overlay[i] = price * referenceValue / base
	}
	return overlay
}
