package domain

import "fmt"

// Side is the client's intent for a trade.
type Side string

const (
	SideBuy  Side = "Buy"
	SideSell Side = "Sell"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Criterion selects the rule a broker applies when deciding whether a
// preference is ready to trade.
type Criterion string

const (
	// BySymbol trades unconditionally as soon as the symbol has been seen.
	BySymbol Criterion = "Symbol"
	// ByPrice trades when the last price crosses the client's threshold:
	// below it for buys, above it for sells.
	ByPrice Criterion = "Price"
	// ByTrend trades when the last two observed directions equal the
	// client's pair, oldest first.
	ByTrend Criterion = "Trend"
)

// Valid reports whether c is a known criterion.
func (c Criterion) Valid() bool {
	switch c {
	case BySymbol, ByPrice, ByTrend:
		return true
	}
	return false
}

// ClientPreference is a client's standing instruction to buy or sell an
// instrument once its criterion is met. It is submitted to exactly one
// broker and held in that broker's book until it resolves.
type ClientPreference struct {
	ClientID  string      `json:"client_id"`
	Symbol    string      `json:"symbol"`
	Side      Side        `json:"side"`
	Quantity  float64     `json:"quantity"`
	Criterion Criterion   `json:"criterion"`
	Threshold float64     `json:"threshold,omitempty"`  // ByPrice only
	TrendPair []Direction `json:"trend_pair,omitempty"` // ByTrend only, oldest first, length 2
}

// Validate checks the structural invariants of a preference as received
// off the wire.
func (p ClientPreference) Validate() error {
	if p.ClientID == "" {
		return &ValidationError{Message: "client_id must not be empty"}
	}
	if p.Symbol == "" {
		return &ValidationError{Message: "symbol must not be empty"}
	}
	if !p.Side.Valid() {
		return &ValidationError{Message: fmt.Sprintf("unknown side %q", p.Side)}
	}
	if p.Quantity <= 0 {
		return &ValidationError{Message: "quantity must be positive"}
	}
	if !p.Criterion.Valid() {
		return ErrUnknownCriterion
	}
	if p.Criterion == ByTrend {
		if len(p.TrendPair) != 2 {
			return &ValidationError{Message: "trend_pair must hold exactly 2 directions"}
		}
		for _, d := range p.TrendPair {
			if d != DirectionUp && d != DirectionDown {
				return &ValidationError{Message: fmt.Sprintf("invalid trend direction %q", d)}
			}
		}
	}
	return nil
}

// CriterionSummary renders the criterion as a short human-readable column
// for the broker's order-table log.
func (p ClientPreference) CriterionSummary() string {
	switch p.Criterion {
	case BySymbol:
		return "no criteria"
	case ByTrend:
		return fmt.Sprintf("%s, %s", p.TrendPair[0], p.TrendPair[1])
	case ByPrice:
		if p.Side == SideBuy {
			return fmt.Sprintf("below %.2f", p.Threshold)
		}
		return fmt.Sprintf("above %.2f", p.Threshold)
	}
	return ""
}
