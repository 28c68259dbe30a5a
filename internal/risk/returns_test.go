package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

func TestReturnsFromPrices(t *testing.T) {
	returns, err := ReturnsFromPrices([]float64{100, 110, 99, 99})
	require.NoError(t, err)

	require.Len(t, returns, 3)
	assert.InDelta(t, 0.1, returns[0], 1e-12)
	assert.InDelta(t, -0.1, returns[1], 1e-12)
	assert.InDelta(t, 0.0, returns[2], 1e-12)
}

func TestReturnsFromPricesErrors(t *testing.T) {
	tests := []struct {
		name    string
		prices  []float64
		errType errors.ErrorType
	}{
		{"empty", nil, errors.ErrorTypeInsufficientData},
		{"single price", []float64{100}, errors.ErrorTypeInsufficientData},
		{"zero price", []float64{100, 0, 50}, errors.ErrorTypeInvalidParameter},
		{"negative price", []float64{-1, 2}, errors.ErrorTypeInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReturnsFromPrices(tt.prices)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
		})
	}
}

func TestHistoricalHorizonReturns(t *testing.T) {
	series := ReturnSeries{0.1, -0.1, 0.05, 0.05, 0.2}

	windows, err := HistoricalHorizonReturns(series, 2)
	require.NoError(t, err)

	// the trailing 0.2 does not fill a window
	require.Len(t, windows, 2)
	assert.InDelta(t, 0.99, windows[0], 1e-12)
	assert.InDelta(t, 1.1025, windows[1], 1e-12)

	_, err = HistoricalHorizonReturns(series, 6)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInsufficientData))

	_, err = HistoricalHorizonReturns(series, 0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidParameter))
}
