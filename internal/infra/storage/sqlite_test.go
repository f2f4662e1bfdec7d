package storage

import (
	"path/filepath"
	"testing"
	"time"

	"crypto_arbiter/internal/domain"

	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *Storage {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testInstrument(t *testing.T) domain.Instrument {
	t.Helper()
	i, err := domain.ParseInstrument("BTC-USD")
	if err != nil {
		t.Fatal(err)
	}
	return i
}

func TestUpsertAndGetInstrument(t *testing.T) {
	s := setupTestDB(t)

	info := &domain.InstrumentInfo{
		Symbol:    "BTC-USD",
		Base:      "BTC",
		Quote:     "USD",
		UpdatedAt: time.Now(),
	}

	if err := s.UpsertInstrument(info); err != nil {
		t.Fatalf("UpsertInstrument failed: %v", err)
	}

	fetched, err := s.GetInstrument("BTC-USD")
	if err != nil {
		t.Fatalf("GetInstrument failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("fetched instrument is nil")
	}
	if fetched.Base != "BTC" || fetched.Quote != "USD" {
		t.Errorf("unexpected instrument: %+v", fetched)
	}
}

func TestUpdateInstrument(t *testing.T) {
	s := setupTestDB(t)
	info := &domain.InstrumentInfo{Symbol: "ETH-USD", TickSize: "0.1"}
	s.UpsertInstrument(info)

	info.TickSize = "0.01"
	if err := s.UpsertInstrument(info); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	fetched, _ := s.GetInstrument("ETH-USD")
	if fetched.TickSize != "0.01" {
		t.Errorf("expected tick size 0.01, got %s", fetched.TickSize)
	}
}

func TestDeleteInstrument(t *testing.T) {
	s := setupTestDB(t)
	s.UpsertInstrument(&domain.InstrumentInfo{Symbol: "DEL-ME"})

	if err := s.DeleteInstrument("DEL-ME"); err != nil {
		t.Fatalf("DeleteInstrument failed: %v", err)
	}

	fetched, err := s.GetInstrument("DEL-ME")
	if err != nil {
		t.Fatalf("GetInstrument after delete failed: %v", err)
	}
	if fetched != nil {
		t.Error("expected instrument to be deleted, but found record")
	}
}

func TestToggleFavorite(t *testing.T) {
	s := setupTestDB(t)
	s.UpsertInstrument(&domain.InstrumentInfo{Symbol: "FAV-USD", IsFavorite: false})

	isFav, err := s.ToggleFavorite("FAV-USD")
	if err != nil {
		t.Fatalf("ToggleFavorite failed: %v", err)
	}
	if !isFav {
		t.Error("expected IsFavorite to be true")
	}

	isFav, _ = s.ToggleFavorite("FAV-USD")
	if isFav {
		t.Error("expected IsFavorite to be false")
	}
}

func TestTouchInstrument(t *testing.T) {
	s := setupTestDB(t)

	if err := s.TouchInstrument(testInstrument(t)); err != nil {
		t.Fatalf("TouchInstrument failed: %v", err)
	}

	info, _ := s.GetInstrument("BTC-USD")
	if info == nil {
		t.Fatal("touching an unseen instrument must create its row")
	}
	if info.LastSeenAt.IsZero() {
		t.Error("LastSeenAt must be recorded")
	}
}

func TestTickSizeCache(t *testing.T) {
	s := setupTestDB(t)

	if _, ok := s.CachedTickSize(testInstrument(t)); ok {
		t.Fatal("an unseen instrument has no cached tick size")
	}

	if err := s.StoreTickSize(testInstrument(t), decimal.RequireFromString("0.01")); err != nil {
		t.Fatalf("StoreTickSize failed: %v", err)
	}

	tick, ok := s.CachedTickSize(testInstrument(t))
	if !ok || tick.String() != "0.01" {
		t.Errorf("cached tick = %s, %v", tick, ok)
	}
}

func TestConfigMap(t *testing.T) {
	s := setupTestDB(t)

	if err := s.SaveConfig("theme", "dark"); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	if err := s.SaveConfig("theme", "light"); err != nil {
		t.Fatalf("SaveConfig update failed: %v", err)
	}

	cfgs, err := s.LoadConfigMap()
	if err != nil {
		t.Fatalf("LoadConfigMap failed: %v", err)
	}
	if cfgs["theme"] != "light" {
		t.Errorf("expected the updated value, got %q", cfgs["theme"])
	}
}
