package domain

import (
	"time"
)

// InstrumentInfo represents persisted metadata for a trading instrument
type InstrumentInfo struct {
	Symbol     string    `gorm:"primaryKey" json:"symbol"` // Dash notation, e.g. "BTC-USD"
	Base       string    `json:"base"`
	Quote      string    `json:"quote"`
	TickSize   string    `json:"tick_size"`                // Last tick size seen from the dealer
	IsFavorite bool      `json:"is_favorite" gorm:"index"` // User favorite status
	LastSeenAt time.Time `json:"last_seen_at"`             // Last time a quote was observed
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AppConfig represents user-specific configuration (Key-Value)
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
