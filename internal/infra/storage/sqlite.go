package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"crypto_arbiter/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists the instrument catalog and app-level key/value settings.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens the SQLite database at the default per-user location.
func NewStorage() (*Storage, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB path: %w", err)
	}
	return Open(dbPath)
}

// Open opens the SQLite database at an explicit path and runs migrations.
func Open(dbPath string) (*Storage, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.InstrumentInfo{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "CryptoArbiter", "data", "arbiter.db"), nil
}

// Close releases the underlying database connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Instrument Operations
// ======================================================================================

// UpsertInstrument creates or updates instrument metadata
func (s *Storage) UpsertInstrument(info *domain.InstrumentInfo) error {
	return s.db.Save(info).Error
}

// GetInstrument retrieves instrument metadata by symbol
func (s *Storage) GetInstrument(symbol string) (*domain.InstrumentInfo, error) {
	var info domain.InstrumentInfo
	err := s.db.First(&info, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &info, err
}

// GetAllInstruments retrieves the whole catalog
func (s *Storage) GetAllInstruments() ([]domain.InstrumentInfo, error) {
	var infos []domain.InstrumentInfo
	err := s.db.Find(&infos).Error
	return infos, err
}

// ToggleFavorite toggles the favorite status of an instrument
func (s *Storage) ToggleFavorite(symbol string) (bool, error) {
	var info domain.InstrumentInfo
	if err := s.db.First(&info, "symbol = ?", symbol).Error; err != nil {
		return false, err
	}

	info.IsFavorite = !info.IsFavorite
	err := s.db.Save(&info).Error
	return info.IsFavorite, err
}

// DeleteInstrument removes an instrument from the catalog
func (s *Storage) DeleteInstrument(symbol string) error {
	return s.db.Where("symbol = ?", symbol).Delete(&domain.InstrumentInfo{}).Error
}

// TouchInstrument records that a quote for the instrument was just observed,
// creating the catalog row on first sight.
func (s *Storage) TouchInstrument(instrument domain.Instrument) error {
	info, err := s.GetInstrument(instrument.String())
	if err != nil {
		return err
	}
	if info == nil {
		info = &domain.InstrumentInfo{
			Symbol: instrument.String(),
			Base:   instrument.Base,
			Quote:  instrument.Quote,
		}
	}
	info.LastSeenAt = time.Now().UTC()
	return s.db.Save(info).Error
}

// CachedTickSize returns the last tick size persisted for the instrument.
func (s *Storage) CachedTickSize(instrument domain.Instrument) (decimal.Decimal, bool) {
	info, err := s.GetInstrument(instrument.String())
	if err != nil || info == nil || info.TickSize == "" {
		return decimal.Decimal{}, false
	}
	tick, err := decimal.NewFromString(info.TickSize)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return tick, true
}

// StoreTickSize persists a tick size into the instrument catalog, creating
// the row on first sight.
func (s *Storage) StoreTickSize(instrument domain.Instrument, tick decimal.Decimal) error {
	info, err := s.GetInstrument(instrument.String())
	if err != nil {
		return err
	}
	if info == nil {
		info = &domain.InstrumentInfo{
			Symbol: instrument.String(),
			Base:   instrument.Base,
			Quote:  instrument.Quote,
		}
	}
	info.TickSize = tick.String()
	return s.db.Save(info).Error
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves a user configuration
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// LoadConfigMap loads all user configurations as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}
