package store

import (
	"context"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

const (
	queryAllPrices = `SELECT close FROM prices WHERE symbol = ? ORDER BY trade_date ASC`

	queryRecentPrices = `SELECT close FROM (
		SELECT trade_date, close FROM prices WHERE symbol = ? ORDER BY trade_date DESC LIMIT ?
	) recent ORDER BY trade_date ASC`

	querySymbols = `SELECT DISTINCT symbol FROM prices ORDER BY symbol`
)

// SQLHistoricalDataStore reads daily closes from a prices(symbol,
// trade_date, close) table
type SQLHistoricalDataStore struct {
	db      *sqlx.DB
	timeout time.Duration
	log     *logger.Logger
}

// NewSQLHistoricalDataStore wraps an open connection
func NewSQLHistoricalDataStore(db *sqlx.DB) *SQLHistoricalDataStore {
	return &SQLHistoricalDataStore{
		db:      db,
		timeout: 10 * time.Second,
		log:     logger.GetLogger("store.sql"),
	}
}

// ConnectSQLHistoricalDataStore opens and pings a connection to dsn
func ConnectSQLHistoricalDataStore(driver, dsn string) (*SQLHistoricalDataStore, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to %s", driver)
	}
	return NewSQLHistoricalDataStore(db), nil
}

// GetHistoricalPrices returns the most recent days closes of symbol, oldest
// first; days not positive returns the whole history
func (s *SQLHistoricalDataStore) GetHistoricalPrices(symbol string, days int) ([]float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var (
		prices []float64
		err    error
	)
	if days > 0 {
		err = s.db.SelectContext(ctx, &prices, queryRecentPrices, symbol, days)
	} else {
		err = s.db.SelectContext(ctx, &prices, queryAllPrices, symbol)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "query prices for %s", symbol)
	}

	if len(prices) == 0 {
		return nil, errors.NotFound("no price history for symbol " + symbol)
	}
	if err := checkPrices(prices); err != nil {
		return nil, errors.Wrapf(err, "stored prices for %s", symbol)
	}
	return prices, nil
}

// Symbols lists every symbol in the prices table. A failed query is logged
// and yields no symbols.
func (s *SQLHistoricalDataStore) Symbols() []string {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var symbols []string
	if err := s.db.SelectContext(ctx, &symbols, querySymbols); err != nil {
		s.log.Errorf("Failed to list symbols: %v", err)
		return nil
	}
	return symbols
}

// Close closes the connection
func (s *SQLHistoricalDataStore) Close() error {
	return s.db.Close()
}
