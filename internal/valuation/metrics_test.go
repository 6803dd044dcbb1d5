package valuation

import (
	"testing"
	"time"

	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func vp(date string, value float64) domain.ValuePoint {
	return domain.ValuePoint{Date: day(date), Value: value}
}

func TestPercentChange(t *testing.T) {
	series := []domain.ValuePoint{
		vp("2025-02-10", 1000),
		vp("2025-02-15", 1100),
		vp("2025-02-20", 1200),
	}

	// Baseline lands exactly on a point.
	change := PercentChange(series, day("2025-02-15"), 1200)
	require.NotNil(t, change)
	assert.InDelta(t, 9.0909, *change, 0.001) // (1200-1100)/1100

	// Baseline between points uses the latest point at or before it.
	change = PercentChange(series, day("2025-02-17"), 1200)
	require.NotNil(t, change)
	assert.InDelta(t, 9.0909, *change, 0.001)

	// Baseline before the first point: undefined, not zero.
	assert.Nil(t, PercentChange(series, day("2025-02-01"), 1200))

	// Zero baseline value: undefined, division is never attempted.
	flat := []domain.ValuePoint{vp("2025-02-10", 0)}
	assert.Nil(t, PercentChange(flat, day("2025-02-10"), 500))

	assert.Nil(t, PercentChange(nil, day("2025-02-10"), 500))
}

func TestWindows(t *testing.T) {
	series := []domain.ValuePoint{
		vp("2024-12-31", 1000),
		vp("2025-01-01", 1000),
		vp("2025-02-01", 1100),
		vp("2025-02-11", 1150),
		vp("2025-02-18", 1200),
	}

	windows := Windows(series, day("2025-02-18"))

	require.NotNil(t, windows[WindowWeek]) // Baseline 2025-02-11
	assert.InDelta(t, 4.3478, *windows[WindowWeek], 0.001)

	require.NotNil(t, windows[WindowMonth]) // Baseline 2025-02-01
	assert.InDelta(t, 9.0909, *windows[WindowMonth], 0.001)

	require.NotNil(t, windows[WindowYear]) // Baseline 2025-01-01
	assert.InDelta(t, 20.0, *windows[WindowYear], 0.001)

	require.NotNil(t, windows[WindowAllTime])
	assert.InDelta(t, 20.0, *windows[WindowAllTime], 0.001)
}

func TestWindows_ShortHistory(t *testing.T) {
	// A series that began this week: week window defined, year window too
	// (baseline clamps to nothing before the series, so it is undefined).
	series := []domain.ValuePoint{
		vp("2025-02-17", 1000),
		vp("2025-02-18", 1050),
	}

	windows := Windows(series, day("2025-02-18"))

	assert.Nil(t, windows[WindowWeek]) // 2025-02-11 precedes the series
	assert.Nil(t, windows[WindowYear])
	require.NotNil(t, windows[WindowAllTime])
	assert.InDelta(t, 5.0, *windows[WindowAllTime], 0.001)
}

func TestWindows_Empty(t *testing.T) {
	windows := Windows(nil, day("2025-02-18"))
	assert.Len(t, windows, 4)
	for name, w := range windows {
		assert.Nil(t, w, name)
	}
}

func TestBenchmarkOverlay(t *testing.T) {
	index := marketdata.NewSeries("^OMX")
	index.Append(day("2025-02-17"), 2500)
	index.Append(day("2025-02-19"), 2600)

	axis := []domain.ValuePoint{
		vp("2025-02-17", 10000),
		vp("2025-02-18", 10100),
		vp("2025-02-19", 10400),
	}

	overlay := BenchmarkOverlay(index, axis, 10000)
	require.Len(t, overlay, 3)
	assert.InDelta(t, 10000, overlay[0], 1e-9)
	assert.InDelta(t, 10000, overlay[1], 1e-9) // Forward fill over the gap
	assert.InDelta(t, 10400, overlay[2], 1e-9) // 2600/2500 x 10000
}

func TestBenchmarkOverlay_BackFillsLeadingGap(t *testing.T) {
	index := marketdata.NewSeries("^OMX")
	index.Append(day("2025-02-19"), 2600)

	axis := []domain.ValuePoint{
		vp("2025-02-17", 10000),
		vp("2025-02-19", 10400),
	}

	overlay := BenchmarkOverlay(index, axis, 10000)
	require.Len(t, overlay, 2)
	// Both points resolve to the index's first price: a flat lead-in, no gap.
	assert.InDelta(t, 10000, overlay[0], 1e-9)
	assert.InDelta(t, 10000, overlay[1], 1e-9)
}

func TestBenchmarkOverlay_DegenerateInputs(t *testing.T) {
	axis := []domain.ValuePoint{vp("2025-02-17", 10000)}

	assert.Nil(t, BenchmarkOverlay(nil, axis, 10000))
	assert.Nil(t, BenchmarkOverlay(marketdata.NewSeries("^OMX"), axis, 10000))

	index := marketdata.NewSeries("^OMX")
	index.Append(day("2025-02-17"), 2500)
	assert.Nil(t, BenchmarkOverlay(index, nil, 10000))

	// A zero base price cannot be rescaled.
	zero := marketdata.NewSeries("^OMX")
	zero.Append(day("2025-02-17"), 0)
	assert.Nil(t, BenchmarkOverlay(zero, axis, 10000))
}

func TestAxisBounds(t *testing.T) {
	series := []domain.ValuePoint{
		vp("2025-02-17", 95000),
		vp("2025-02-18", 112000),
	}

	yMin, yMax := AxisBounds(series, 10000)
	assert.Equal(t, 90000.0, yMin)  // floor(95000 x 0.95 / 10000) x 10000
	assert.Equal(t, 120000.0, yMax) // ceil(112000 x 1.05 / 10000) x 10000
}

func TestAxisBounds_DegenerateInputs(t *testing.T) {
	yMin, yMax := AxisBounds(nil, 10000)
	assert.Zero(t, yMin)
	assert.Zero(t, yMax)

	yMin, yMax = AxisBounds([]domain.ValuePoint{vp("2025-02-17", 100)}, 0)
	assert.Zero(t, yMin)
	assert.Zero(t, yMax)
}
