// Package dividends applies dividend cash to the reconstructed timeline
// based on point-in-time share counts.
package dividends

import (
	"errors"

	"github.com/oskarw/folio/internal/domain"
	"github.com/oskarw/folio/internal/fx"
	"github.com/rs/zerolog"
)

// Attributor turns dividend events into base-currency cash amounts.
//
// Attribution runs inline during day-stepping: the engine hands each event
// the share count reconstructed after that day's transactions, so a same-day
// buy participates in the dividend (deliberate tie-break). Applying the cash
// on the payment date and carrying it through the running balance is
// equivalent to a forward-propagation pass over all later dates.
type Attributor struct {
	converter *fx.Converter
	log       zerolog.Logger
}

// NewAttributor creates a new dividend attributor
func NewAttributor(converter *fx.Converter, log zerolog.Logger) *Attributor {
	return &Attributor{
		converter: converter,
		log:       log.With().Str("component", "dividend_attribution").Logger(),
	}
}

// CashFor returns the cash contribution of one dividend event given the
// shares held as of the payment date. ErrNoDividendTarget when there is no
// eligible holder; the caller skips the event.
//
// Cross-currency amounts convert at the payment date's rate, forward-filled
// from the nearest prior date when the rate is missing that day.
func (a *Attributor) CashFor(event domain.DividendEvent, sharesHeld int) (float64, error) {
	if sharesHeld <= 0 {
		return 0, domain.ErrNoDividendTarget
	}

	total := float64(sharesHeld) * event.Amount

	converted, err := a.converter.Convert(total, event.Currency, event.Date)
	if err != nil {
		return 0, err
	}

	a.log.Debug().
		Str("ticker", event.Ticker).
		Str("date", domain.FormatDate(event.Date)).
		Int("shares", sharesHeld).
		Float64("per_share", event.Amount).
		Float64("cash", converted).
		Msg("Dividend attributed")

	return converted, nil
}

// IsSkippable reports whether an attribution error is the expected
// no-eligible-holder case rather than a real failure.
func IsSkippable(err error) bool {
	return errors.Is(err, domain.ErrNoDividendTarget)
}
