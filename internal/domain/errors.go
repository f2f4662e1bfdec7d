package domain

import "errors"

// RetriableError defines an interface for errors that can be retried
type RetriableError interface {
	error
	IsRetriable() bool
}

// IsRetriable checks if an error is retriable
func IsRetriable(err error) bool {
	var re RetriableError
	if errors.As(err, &re) {
		return re.IsRetriable()
	}
	return false
}

// NetworkError represents a network-related error that may be retriable
type NetworkError struct {
	Op        string // Operation that failed (e.g., "dial", "fetch", "write")
	Err       error  // Underlying error
	Retriable bool   // Whether this error is retriable
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) IsRetriable() bool {
	return e.Retriable
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new retriable network error
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: true}
}

// NewFatalNetworkError creates a non-retriable network error
func NewFatalNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err, Retriable: false}
}

// StateError reports a precondition violation: the caller attempted an
// operation that the current monitor/feed state forbids (starting twice,
// mutating subscriptions mid-run). Never retriable; the caller must change
// state first.
type StateError struct {
	Op     string // Operation that was rejected
	Reason string
}

func (e *StateError) Error() string {
	return "invalid state [" + e.Op + "]: " + e.Reason
}

func (e *StateError) IsRetriable() bool {
	return false
}

// NewStateError creates a precondition error for the given operation.
func NewStateError(op, reason string) *StateError {
	return &StateError{Op: op, Reason: reason}
}

// ProtocolError reports a feed message that violates the exchange's wire
// protocol (an unrecognized directive tag). Fatal to the parsing unit but
// never to the monitor loop.
type ProtocolError struct {
	Exchange string
	Detail   string
}

func (e *ProtocolError) Error() string {
	return e.Exchange + " protocol violation: " + e.Detail
}

func (e *ProtocolError) IsRetriable() bool {
	return false
}

// ConfigError represents a configuration error (never retriable)
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) IsRetriable() bool {
	return false
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrConnectionFailed is returned when a feed connection fails. It's usually retriable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrInvalidInstrument is returned when an instrument is malformed. Not retriable.
	ErrInvalidInstrument = errors.New("invalid instrument")

	// ErrInvalidSide is returned when a side notation is not recognized.
	ErrInvalidSide = errors.New("invalid side")

	// ErrUnsupportedInstrument is returned when a feed has no channel for an instrument.
	ErrUnsupportedInstrument = errors.New("unsupported instrument")

	// ErrNoOpposingPrice is returned when a market order cannot be converted to a
	// marketable limit order because the opposing book side is empty.
	ErrNoOpposingPrice = errors.New("no opposing best price available")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)
