package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetriable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retriable network error", NewNetworkError("dial", errors.New("refused")), true},
		{"fatal network error", NewFatalNetworkError("fetch", errors.New("401")), false},
		{"state error", NewStateError("On", "monitoring already in progress"), false},
		{"protocol error", &ProtocolError{Exchange: "poloniex", Detail: "tag x"}, false},
		{"config error", &ConfigError{Field: "ws_url", Err: errors.New("empty")}, false},
		{"plain error", errors.New("boom"), false},
		{"wrapped retriable", fmt.Errorf("outer: %w", NewNetworkError("read", errors.New("reset"))), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetriable(tt.err); got != tt.want {
				t.Errorf("IsRetriable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := NewNetworkError("read", inner)

	if !errors.Is(err, inner) {
		t.Error("NetworkError should unwrap to inner error")
	}
}

func TestStateError_Message(t *testing.T) {
	err := NewStateError("Subscribe", "monitoring is in progress")
	want := "invalid state [Subscribe]: monitoring is in progress"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestSentinelErrors(t *testing.T) {
	_, err := ParseInstrument("nope")
	if !errors.Is(err, ErrInvalidInstrument) {
		t.Error("expected ErrInvalidInstrument")
	}

	_, err = ParseSide("nope")
	if !errors.Is(err, ErrInvalidSide) {
		t.Error("expected ErrInvalidSide")
	}
}
