package domain

import (
	"fmt"
	"strings"
)

// Instrument identifies a tradable currency pair, e.g. BTC quoted in USD.
type Instrument struct {
	Base  string `json:"base"`
	Quote string `json:"quote"`
}

// NewInstrument creates an instrument from base and quote symbols.
func NewInstrument(base, quote string) Instrument {
	return Instrument{
		Base:  strings.ToUpper(base),
		Quote: strings.ToUpper(quote),
	}
}

// ParseInstrument parses the dash notation used throughout configuration
// and exchange REST paths (e.g. "BTC-USD").
func ParseInstrument(s string) (Instrument, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Instrument{}, fmt.Errorf("%w: %q", ErrInvalidInstrument, s)
	}
	return NewInstrument(parts[0], parts[1]), nil
}

// IsZero reports whether the instrument is unset.
func (i Instrument) IsZero() bool {
	return i.Base == "" && i.Quote == ""
}

func (i Instrument) String() string {
	return i.Base + "-" + i.Quote
}
