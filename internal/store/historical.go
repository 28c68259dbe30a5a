package store

import (
	"math"
	"slices"
	"sync"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

// InMemoryHistoricalDataStore keeps daily closing prices per symbol,
// oldest first
type InMemoryHistoricalDataStore struct {
	priceData map[string][]float64
	mu        sync.RWMutex
	log       *logger.Logger
}

// NewInMemoryHistoricalDataStore creates a new in-memory historical data store
func NewInMemoryHistoricalDataStore() *InMemoryHistoricalDataStore {
	return &InMemoryHistoricalDataStore{
		priceData: make(map[string][]float64),
		log:       logger.GetLogger("store.historical"),
	}
}

// SavePrices replaces the price history of symbol
func (s *InMemoryHistoricalDataStore) SavePrices(symbol string, prices []float64) error {
	if symbol == "" {
		return errors.InvalidParameter("symbol must not be empty")
	}
	if err := checkPrices(prices); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.priceData[symbol] = slices.Clone(prices)
	s.log.Debugf("Stored %d prices for %s", len(prices), symbol)
	return nil
}

// AppendPrices extends the history of symbol with newer prices
func (s *InMemoryHistoricalDataStore) AppendPrices(symbol string, prices ...float64) error {
	if symbol == "" {
		return errors.InvalidParameter("symbol must not be empty")
	}
	if err := checkPrices(prices); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.priceData[symbol] = append(s.priceData[symbol], prices...)
	return nil
}

// GetHistoricalPrices returns the most recent days prices of symbol, or the
// whole history when days is not positive or exceeds it
func (s *InMemoryHistoricalDataStore) GetHistoricalPrices(symbol string, days int) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices, exists := s.priceData[symbol]
	if !exists {
		return nil, errors.NotFound("no price history for symbol " + symbol)
	}

	if days > 0 && days < len(prices) {
		prices = prices[len(prices)-days:]
	}
	return slices.Clone(prices), nil
}

// Symbols lists every symbol with a stored history, sorted
func (s *InMemoryHistoricalDataStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.priceData))
	for symbol := range s.priceData {
		symbols = append(symbols, symbol)
	}
	slices.Sort(symbols)
	return symbols
}

func checkPrices(prices []float64) error {
	for i, p := range prices {
		if !(p > 0) || math.IsInf(p, 1) {
			return errors.InvalidParameterf("price %d must be positive and finite, got %v", i, p)
		}
	}
	return nil
}
