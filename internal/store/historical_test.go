package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

func TestSaveAndGetHistoricalPrices(t *testing.T) {
	s := NewInMemoryHistoricalDataStore()
	prices := []float64{100, 101, 99.5, 102, 103}
	require.NoError(t, s.SavePrices("AAPL", prices))

	all, err := s.GetHistoricalPrices("AAPL", 0)
	require.NoError(t, err)
	assert.Equal(t, prices, all)

	recent, err := s.GetHistoricalPrices("AAPL", 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{102, 103}, recent)

	more, err := s.GetHistoricalPrices("AAPL", 50)
	require.NoError(t, err)
	assert.Len(t, more, 5)

	// callers get their own copies
	prices[0] = 1
	all[1] = 1
	again, err := s.GetHistoricalPrices("AAPL", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 101, 99.5, 102, 103}, again)
}

func TestAppendPrices(t *testing.T) {
	s := NewInMemoryHistoricalDataStore()
	require.NoError(t, s.AppendPrices("MSFT", 10, 11))
	require.NoError(t, s.AppendPrices("MSFT", 12))

	prices, err := s.GetHistoricalPrices("MSFT", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11, 12}, prices)
}

func TestStoreErrors(t *testing.T) {
	s := NewInMemoryHistoricalDataStore()

	_, err := s.GetHistoricalPrices("NOPE", 10)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	for _, prices := range [][]float64{{1, 0}, {-3}, {math.NaN()}, {math.Inf(1)}} {
		err := s.SavePrices("X", prices)
		assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidParameter), "prices %v", prices)
	}
	assert.True(t, errors.IsType(s.SavePrices("", []float64{1}), errors.ErrorTypeInvalidParameter))
	assert.Empty(t, s.Symbols())
}

func TestSymbols(t *testing.T) {
	s := NewInMemoryHistoricalDataStore()
	require.NoError(t, s.SavePrices("SPY", []float64{1, 2}))
	require.NoError(t, s.SavePrices("AAPL", []float64{1, 2}))

	assert.Equal(t, []string{"AAPL", "SPY"}, s.Symbols())
}
