// Package operator keeps the retail price sheets entered by station operators.
package operator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"fuelpulse/internal/dataprocessing"
	"fuelpulse/pkg/contracts/domain"
)

var (
	// ErrSheetNotFound is returned when a station has no saved sheet
	ErrSheetNotFound = errors.New("operator price sheet not found")
	// ErrInvalidSheet is returned when a sheet fails validation
	ErrInvalidSheet = errors.New("invalid operator price sheet")
)

// Store persists operator price sheets
type Store interface {
	Save(sheet domain.OperatorPriceSheet) (domain.OperatorPriceSheet, error)
	Get(stationID string) (domain.OperatorPriceSheet, error)
	List() []domain.OperatorPriceSheet
	Delete(stationID string) error
}

// MemoryStore is a Store backed by a map. Sheets are copied on the way in
// and out so callers never share the stored price maps.
type MemoryStore struct {
	mu     sync.RWMutex
	sheets map[string]domain.OperatorPriceSheet
	now    func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sheets: make(map[string]domain.OperatorPriceSheet),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Validate normalizes identifiers and rejects sheets with no station, no
// prices, blank product names or negative and non-finite prices
func Validate(sheet domain.OperatorPriceSheet) (domain.OperatorPriceSheet, error) {
	stationID := dataprocessing.NormalizeIdentifier(sheet.StationID)
	if stationID == "" {
		return sheet, fmt.Errorf("%w: station id is required", ErrInvalidSheet)
	}
	if len(sheet.Prices) == 0 {
		return sheet, fmt.Errorf("%w: at least one price is required", ErrInvalidSheet)
	}

	prices := make(map[string]float64, len(sheet.Prices))
	for product, price := range sheet.Prices {
		name := dataprocessing.NormalizeIdentifier(product)
		if name == "" {
			return sheet, fmt.Errorf("%w: product name is required", ErrInvalidSheet)
		}
		if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
			return sheet, fmt.Errorf("%w: price for %q must be a finite, non-negative number", ErrInvalidSheet, name)
		}
		if _, dup := prices[name]; dup {
			return sheet, fmt.Errorf("%w: product %q given more than once", ErrInvalidSheet, name)
		}
		prices[name] = price
	}

	return domain.OperatorPriceSheet{
		StationID: stationID,
		Prices:    prices,
		UpdatedAt: sheet.UpdatedAt,
	}, nil
}

// Save validates and stores sheet, replacing any previous sheet of the
// station, and returns the stored copy
func (s *MemoryStore) Save(sheet domain.OperatorPriceSheet) (domain.OperatorPriceSheet, error) {
	clean, err := Validate(sheet)
	if err != nil {
		return domain.OperatorPriceSheet{}, err
	}
	clean.UpdatedAt = s.now()

	s.mu.Lock()
	s.sheets[clean.StationID] = clean
	s.mu.Unlock()

	return copySheet(clean), nil
}

// Get returns a copy of the station's sheet
func (s *MemoryStore) Get(stationID string) (domain.OperatorPriceSheet, error) {
	id := dataprocessing.NormalizeIdentifier(stationID)

	s.mu.RLock()
	sheet, ok := s.sheets[id]
	s.mu.RUnlock()

	if !ok {
		return domain.OperatorPriceSheet{}, fmt.Errorf("%w: %s", ErrSheetNotFound, id)
	}
	return copySheet(sheet), nil
}

// List returns copies of all sheets ordered by station id
func (s *MemoryStore) List() []domain.OperatorPriceSheet {
	s.mu.RLock()
	out := make([]domain.OperatorPriceSheet, 0, len(s.sheets))
	for _, sheet := range s.sheets {
		out = append(out, copySheet(sheet))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })
	return out
}

// Delete removes the station's sheet
func (s *MemoryStore) Delete(stationID string) error {
	id := dataprocessing.NormalizeIdentifier(stationID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sheets[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, id)
	}
	delete(s.sheets, id)
	return nil
}

func copySheet(sheet domain.OperatorPriceSheet) domain.OperatorPriceSheet {
	prices := make(map[string]float64, len(sheet.Prices))
	for k, v := range sheet.Prices {
		prices[k] = v
	}
	sheet.Prices = prices
	return sheet
}
