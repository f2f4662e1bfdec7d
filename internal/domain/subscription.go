package domain

// Subscription declares interest in one instrument's quotes on one or both
// book sides. Subscriptions compare by value and are immutable while a
// monitor is running.
type Subscription struct {
	Instrument Instrument
	Sides      Side
}

func (s Subscription) String() string {
	return s.Instrument.String() + "/" + s.Sides.String()
}
