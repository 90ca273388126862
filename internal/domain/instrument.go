package domain

// Direction is the last observed price movement of an instrument.
type Direction string

const (
	DirectionUp      Direction = "UP"
	DirectionDown    Direction = "DOWN"
	DirectionUnknown Direction = "NULL" // no tick applied yet
)

// Valid reports whether d is one of the three known directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionUnknown:
		return true
	}
	return false
}

// Instrument is a tradable symbol with a mutable price. The exchange owns
// the canonical copy; brokers only ever see value snapshots of it on the
// market-data topic.
type Instrument struct {
	Symbol     string    `json:"symbol"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Direction  Direction `json:"direction"`
	Volatility float64   `json:"volatility"` // in (0, 1]
}
