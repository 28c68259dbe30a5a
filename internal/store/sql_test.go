package store

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/errors"
)

func newMockStore(t *testing.T) (*SQLHistoricalDataStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewSQLHistoricalDataStore(sqlx.NewDb(db, "mysql")), mock
}

func TestSQLStoreRecentPrices(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryRecentPrices)).
		WithArgs("ACME", 3).
		WillReturnRows(sqlmock.NewRows([]string{"close"}).AddRow(101.5).AddRow(102.0).AddRow(99.8))

	prices, err := s.GetHistoricalPrices("ACME", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{101.5, 102.0, 99.8}, prices)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreAllPrices(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryAllPrices)).
		WithArgs("ACME").
		WillReturnRows(sqlmock.NewRows([]string{"close"}).AddRow(10.0).AddRow(11.0))

	prices, err := s.GetHistoricalPrices("ACME", 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 11}, prices)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreErrors(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(queryAllPrices)).
		WithArgs("NONE").
		WillReturnRows(sqlmock.NewRows([]string{"close"}))
	_, err := s.GetHistoricalPrices("NONE", 0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	mock.ExpectQuery(regexp.QuoteMeta(queryAllPrices)).
		WithArgs("BAD").
		WillReturnRows(sqlmock.NewRows([]string{"close"}).AddRow(10.0).AddRow(-1.0))
	_, err = s.GetHistoricalPrices("BAD", 0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidParameter))

	mock.ExpectQuery(regexp.QuoteMeta(queryAllPrices)).
		WithArgs("DOWN").
		WillReturnError(assert.AnError)
	_, err = s.GetHistoricalPrices("DOWN", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStoreSymbols(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(querySymbols)).
		WillReturnRows(sqlmock.NewRows([]string{"symbol"}).AddRow("AAPL").AddRow("MSFT"))
	assert.Equal(t, []string{"AAPL", "MSFT"}, s.Symbols())

	mock.ExpectQuery(regexp.QuoteMeta(querySymbols)).WillReturnError(assert.AnError)
	assert.Nil(t, s.Symbols())

	assert.NoError(t, mock.ExpectationsWereMet())
}
