// Package broker implements the broker side of the simulation: it tracks
// short-term trends from market-data broadcasts and matches client
// preferences against them, settling matches with the exchange over
// request/reply.
package broker

import (
	"sync"

	"github.com/efreitasn/marketsim/internal/domain"
)

// trendWindow is how many recent directions a record keeps.
const trendWindow = 2

// TrendRecord is this broker's view of one instrument: the last broadcast
// price and a bounded window of recent directions, oldest first.
type TrendRecord struct {
	Symbol     string
	LastPrice  float64
	Directions []domain.Direction
}

// TrendTracker folds market-data broadcasts into per-symbol trend records.
// Records are private to the broker that observed them.
type TrendTracker struct {
	mu      sync.RWMutex
	records map[string]*TrendRecord
}

// NewTrendTracker creates an empty tracker.
func NewTrendTracker() *TrendTracker {
	return &TrendTracker{records: make(map[string]*TrendRecord)}
}

// Observe updates the record for the snapshot's symbol, creating it on
// first sight. The last price always updates; Up/Down directions push into
// the window with the oldest evicted past trendWindow. Unknown directions
// (pre-first-tick catch-up snapshots) carry no trend signal and only
// update the price.
func (t *TrendTracker) Observe(snap domain.Instrument) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[snap.Symbol]
	if !ok {
		rec = &TrendRecord{Symbol: snap.Symbol}
		t.records[snap.Symbol] = rec
	}
	rec.LastPrice = snap.Price

	if snap.Direction != domain.DirectionUp && snap.Direction != domain.DirectionDown {
		return
	}
	rec.Directions = append(rec.Directions, snap.Direction)
	if len(rec.Directions) > trendWindow {
		rec.Directions = rec.Directions[len(rec.Directions)-trendWindow:]
	}
}

// Lookup returns a copy of the record for symbol, or false if no broadcast
// for it has been seen yet.
func (t *TrendTracker) Lookup(symbol string) (TrendRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.records[symbol]
	if !ok {
		return TrendRecord{}, false
	}
	out := TrendRecord{
		Symbol:     rec.Symbol,
		LastPrice:  rec.LastPrice,
		Directions: append([]domain.Direction(nil), rec.Directions...),
	}
	return out, true
}
