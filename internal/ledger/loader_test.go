package ledger

import (
	"strings"
	"testing"

	"github.com/oskarw/folio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader() *Loader {
	return NewLoader(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestLoad_ParsesAndSortsByDate(t *testing.T) {
	input := "Ticker;Date;Type;Amount;Price\n" +
		"MSFT;2025-03-03;Buy;5\n" +
		"aapl;2025-02-18;Buy;10;101.5\n" +
		"AAPL;2025-02-20;Sell;4\n"

	led, err := testLoader().Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, led.Transactions, 3)

	// Date order, regardless of file order
	assert.Equal(t, "AAPL", led.Transactions[0].Ticker)
	assert.Equal(t, "2025-02-18", domain.FormatDate(led.Transactions[0].Date))
	assert.Equal(t, domain.Buy, led.Transactions[0].Side)
	assert.Equal(t, 10, led.Transactions[0].Quantity)
	require.NotNil(t, led.Transactions[0].Price)
	assert.Equal(t, 101.5, *led.Transactions[0].Price)

	assert.Equal(t, "AAPL", led.Transactions[1].Ticker)
	assert.Equal(t, domain.Sell, led.Transactions[1].Side)
	assert.Nil(t, led.Transactions[1].Price)

	assert.Equal(t, "MSFT", led.Transactions[2].Ticker)
}

func TestLoad_PreservesFileOrderWithinDate(t *testing.T) {
	input := "Ticker;Date;Type;Amount\n" +
		"AAA;2025-02-18;Buy;10\n" +
		"AAA;2025-02-18;Sell;10\n"

	led, err := testLoader().Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, led.Transactions, 2)
	assert.Equal(t, domain.Buy, led.Transactions[0].Side)
	assert.Equal(t, domain.Sell, led.Transactions[1].Side)
}

func TestLoad_WeightedAverageStatedPrice(t *testing.T) {
	// Two buys on the same day at different prices: 10@100 and 30@120
	// should collapse to a single stated price of 115.
	input := "Ticker;Date;Type;Amount;Price\n" +
		"AAA;2025-02-18;Buy;10;100\n" +
		"AAA;2025-02-18;Buy;30;120\n"

	led, err := testLoader().Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, led.StatedPrices, 1)
	assert.Equal(t, "AAA", led.StatedPrices[0].Ticker)
	assert.Equal(t, "2025-02-18", led.StatedPrices[0].Date)
	assert.InDelta(t, 115.0, led.StatedPrices[0].Price, 1e-9)
}

func TestLoad_ParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		field string
	}{
		{"bad date", "AAA;18-02-2025;Buy;10", "date"},
		{"unknown side", "AAA;2025-02-18;Hold;10", "type"},
		{"non-integer quantity", "AAA;2025-02-18;Buy;ten", "amount"},
		{"zero quantity", "AAA;2025-02-18;Buy;0", "amount"},
		{"negative quantity", "AAA;2025-02-18;Buy;-5", "amount"},
		{"empty ticker", ";2025-02-18;Buy;10", "ticker"},
		{"too few fields", "AAA;2025-02-18;Buy", "record"},
		{"bad price", "AAA;2025-02-18;Buy;10;abc", "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "Ticker;Date;Type;Amount;Price\n" + tt.line + "\n"
			_, err := testLoader().Load(strings.NewReader(input))
			require.Error(t, err)

			var parseErr *domain.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, 2, parseErr.Line)
			assert.Equal(t, tt.field, parseErr.Field)
		})
	}
}

func TestLoad_AbortsOnFirstBadLine(t *testing.T) {
	// A valid line after the bad one must not survive the failed load.
	input := "Ticker;Date;Type;Amount\n" +
		"AAA;not-a-date;Buy;10\n" +
		"BBB;2025-02-18;Buy;5\n"

	led, err := testLoader().Load(strings.NewReader(input))
	require.Error(t, err)
	assert.Nil(t, led)
}

func TestLoad_RejectsOversell(t *testing.T) {
	input := "Ticker;Date;Type;Amount\n" +
		"AAA;2025-02-18;Buy;10\n" +
		"AAA;2025-02-20;Sell;15\n"

	_, err := testLoader().Load(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds held position")
}

func TestLoad_SellBeforeBuyRejected(t *testing.T) {
	input := "Ticker;Date;Type;Amount\n" +
		"AAA;2025-02-18;Sell;1\n"

	_, err := testLoader().Load(strings.NewReader(input))
	require.Error(t, err)
}

func TestLoad_EmptyInput(t *testing.T) {
	led, err := testLoader().Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, led.Transactions)
}

func TestLoad_IgnoresNonPositiveStatedPrice(t *testing.T) {
	input := "Ticker;Date;Type;Amount;Price\n" +
		"AAA;2025-02-18;Buy;10;0\n"

	led, err := testLoader().Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, led.Transactions, 1)
	assert.Nil(t, led.Transactions[0].Price)
	assert.Empty(t, led.StatedPrices)
}

func TestTickers_DistinctSorted(t *testing.T) {
	input := "Ticker;Date;Type;Amount\n" +
		"MSFT;2025-02-18;Buy;1\n" +
		"AAPL;2025-02-19;Buy;1\n" +
		"MSFT;2025-02-20;Buy;1\n"

	led, err := testLoader().Load(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, led.Tickers())
}
