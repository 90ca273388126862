package broker

import "github.com/efreitasn/marketsim/internal/domain"

// Eligible is the pure matching decision: it reports whether a preference
// is ready to trade given the broker's current trend record for its
// symbol.
//
//   - BySymbol: always eligible — the symbol has been seen, trade.
//   - ByPrice: buys trigger below the threshold, sells above it.
//   - ByTrend: triggers only once the window holds exactly two directions
//     and they equal the client's pair, oldest first.
func Eligible(pref domain.ClientPreference, trend TrendRecord) bool {
	switch pref.Criterion {
	case domain.BySymbol:
		return true
	case domain.ByPrice:
		if pref.Side == domain.SideBuy {
			return trend.LastPrice < pref.Threshold
		}
		return trend.LastPrice > pref.Threshold
	case domain.ByTrend:
		if len(trend.Directions) != trendWindow || len(pref.TrendPair) != trendWindow {
			return false
		}
		return trend.Directions[0] == pref.TrendPair[0] &&
			trend.Directions[1] == pref.TrendPair[1]
	}
	return false
}
