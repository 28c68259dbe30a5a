package main

import (
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/risk"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/internal/store"
	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

// Synthetic daily returns: a stock drifting 12% a year at 30% volatility
const (
	syntheticMean       = 0.0005
	syntheticDispersion = 0.019
	syntheticStartPrice = 100.0
	defaultSeedDays     = 1260
)

// seedSyntheticPrices gives every configured symbol a reproducible price
// history so the in-memory store has something to analyse before real
// prices arrive
func seedSyntheticPrices(prices *store.InMemoryHistoricalDataStore, symbols []string, days int) error {
	if days <= 0 {
		days = defaultSeedDays
	}
	log := logger.GetLogger("risk-engine.seed")
	model := risk.Gaussian{Mean: syntheticMean, Dispersion: syntheticDispersion}

	for i, symbol := range symbols {
		returns, err := risk.Sample(model, risk.SeededStreams{Seed: uint64(i + 1)}.Stream(0), days)
		if err != nil {
			return err
		}

		path := make([]float64, days+1)
		path[0] = syntheticStartPrice
		for j, r := range returns {
			path[j+1] = path[j] * (1 + r)
		}
		if err := prices.SavePrices(symbol, path); err != nil {
			return err
		}
		log.Infof("Seeded %s with %d synthetic prices", symbol, len(path))
	}
	return nil
}
