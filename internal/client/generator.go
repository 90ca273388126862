package client

import (
	"math/rand/v2"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Preference value ranges for the synthetic order flow.
const (
	minQuantity  = 5000.0
	maxQuantity  = 10000.0
	minThreshold = 50.0
	maxThreshold = 150.0
)

var criteria = []domain.Criterion{domain.BySymbol, domain.ByPrice, domain.ByTrend}

// trendPairs are the four ordered two-direction patterns a client can ask
// for.
var trendPairs = [][]domain.Direction{
	{domain.DirectionUp, domain.DirectionUp},
	{domain.DirectionUp, domain.DirectionDown},
	{domain.DirectionDown, domain.DirectionUp},
	{domain.DirectionDown, domain.DirectionDown},
}

// NewPreference draws a random preference for clientID: a catalog symbol,
// a uniformly chosen criterion, a Buy/Sell coin flip and a quantity in
// [minQuantity, maxQuantity). ByPrice preferences get a threshold in
// [minThreshold, maxThreshold); ByTrend preferences get one of the four
// ordered direction pairs.
func NewPreference(clientID string, symbols []string) domain.ClientPreference {
	pref := domain.ClientPreference{
		ClientID:  clientID,
		Symbol:    symbols[rand.IntN(len(symbols))],
		Side:      domain.SideBuy,
		Quantity:  minQuantity + rand.Float64()*(maxQuantity-minQuantity),
		Criterion: criteria[rand.IntN(len(criteria))],
	}
	if rand.IntN(2) == 1 {
		pref.Side = domain.SideSell
	}

	switch pref.Criterion {
	case domain.ByPrice:
		pref.Threshold = minThreshold + rand.Float64()*(maxThreshold-minThreshold)
	case domain.ByTrend:
		pair := trendPairs[rand.IntN(len(trendPairs))]
		pref.TrendPair = []domain.Direction{pair[0], pair[1]}
	}
	return pref
}
