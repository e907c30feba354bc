package operator

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelpulse/pkg/contracts/domain"
)

func fixedStore() *MemoryStore {
	s := NewMemoryStore()
	s.now = func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sheet   domain.OperatorPriceSheet
		wantErr bool
	}{
		{"valid", domain.OperatorPriceSheet{StationID: "s1", Prices: map[string]float64{"diesel": 5.9}}, false},
		{"zero price", domain.OperatorPriceSheet{StationID: "s1", Prices: map[string]float64{"diesel": 0}}, false},
		{"blank station", domain.OperatorPriceSheet{StationID: "  ", Prices: map[string]float64{"diesel": 5.9}}, true},
		{"no prices", domain.OperatorPriceSheet{StationID: "s1"}, true},
		{"negative", domain.OperatorPriceSheet{StationID: "s1", Prices: map[string]float64{"diesel": -0.1}}, true},
		{"nan", domain.OperatorPriceSheet{StationID: "s1", Prices: map[string]float64{"diesel": math.NaN()}}, true},
		{"inf", domain.OperatorPriceSheet{StationID: "s1", Prices: map[string]float64{"diesel": math.Inf(1)}}, true},
		{"blank product", domain.OperatorPriceSheet{StationID: "s1", Prices: map[string]float64{" ": 1}}, true},
		{"duplicate after normalization", domain.OperatorPriceSheet{StationID: "s1", Prices: map[string]float64{"diesel": 1, " diesel": 2}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.sheet)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSheet)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemoryStore_SaveGet(t *testing.T) {
	s := fixedStore()

	saved, err := s.Save(domain.OperatorPriceSheet{
		StationID: " station  7 ",
		Prices:    map[string]float64{"Diesel ": 5.95, "gasoline": 5.2},
	})
	require.NoError(t, err)
	assert.Equal(t, "station 7", saved.StationID)
	assert.Equal(t, map[string]float64{"Diesel": 5.95, "gasoline": 5.2}, saved.Prices)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC), saved.UpdatedAt)

	got, err := s.Get("station 7")
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	got.Prices["Diesel"] = 99
	again, err := s.Get("station 7")
	require.NoError(t, err)
	assert.Equal(t, 5.95, again.Prices["Diesel"])
}

func TestMemoryStore_SaveCopiesInput(t *testing.T) {
	s := fixedStore()
	prices := map[string]float64{"diesel": 5.9}

	_, err := s.Save(domain.OperatorPriceSheet{StationID: "s1", Prices: prices})
	require.NoError(t, err)
	prices["diesel"] = 1

	got, err := s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 5.9, got.Prices["diesel"])
}

func TestMemoryStore_SaveRejectsInvalid(t *testing.T) {
	s := fixedStore()

	_, err := s.Save(domain.OperatorPriceSheet{StationID: "s1", Prices: map[string]float64{"diesel": -1}})
	assert.ErrorIs(t, err, ErrInvalidSheet)

	_, err = s.Get("s1")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestMemoryStore_ListDelete(t *testing.T) {
	s := fixedStore()
	for _, id := range []string{"s2", "s1", "s3"} {
		_, err := s.Save(domain.OperatorPriceSheet{StationID: id, Prices: map[string]float64{"diesel": 5}})
		require.NoError(t, err)
	}

	list := s.List()
	require.Len(t, list, 3)
	assert.Equal(t, "s1", list[0].StationID)
	assert.Equal(t, "s3", list[2].StationID)

	require.NoError(t, s.Delete("s2"))
	assert.ErrorIs(t, s.Delete("s2"), ErrSheetNotFound)
	assert.Len(t, s.List(), 2)
}

func TestMemoryStore_Concurrent(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Save(domain.OperatorPriceSheet{StationID: "s1", Prices: map[string]float64{"diesel": float64(i)}})
			_, _ = s.Get("s1")
			_ = s.List()
		}(i)
	}
	wg.Wait()

	got, err := s.Get("s1")
	require.NoError(t, err)
	assert.Len(t, got.Prices, 1)
}
