// Package exchange implements the exchange side of the simulation: the
// instrument registry, the price random walk, snapshot broadcasting, and
// trade settlement.
package exchange

import (
	"sync"

	"github.com/google/btree"

	"github.com/efreitasn/marketsim/internal/domain"
)

// entry pairs an instrument with its own lock. Locking is per instrument:
// settling a trade on one symbol never blocks ticks or trades on another.
type entry struct {
	mu   sync.Mutex
	inst domain.Instrument
}

// entryLess orders entries by symbol. The symbol is immutable, so entries
// can be mutated in place without disturbing the tree.
func entryLess(a, b *entry) bool {
	return a.inst.Symbol < b.inst.Symbol
}

// Registry is the exchange's in-memory instrument table: a B-tree index
// ordered by symbol for keyed lookup and deterministic full snapshots,
// plus a fixed symbol list for uniform random selection. Instruments are
// never added or removed during a run.
type Registry struct {
	index   *btree.BTreeG[*entry]
	symbols []string
}

// NewRegistry builds a registry from the given seed instruments.
func NewRegistry(instruments []domain.Instrument) *Registry {
	const degree = 16
	r := &Registry{
		index:   btree.NewG[*entry](degree, entryLess),
		symbols: make([]string, 0, len(instruments)),
	}
	for _, inst := range instruments {
		r.index.ReplaceOrInsert(&entry{inst: inst})
		r.symbols = append(r.symbols, inst.Symbol)
	}
	return r
}

// Len returns the number of instruments in the registry.
func (r *Registry) Len() int {
	return r.index.Len()
}

// Symbol returns the i-th symbol in seed order. The caller picks i in
// [0, Len()) — strictly in range.
func (r *Registry) Symbol(i int) string {
	return r.symbols[i]
}

// Get returns a snapshot of the instrument for symbol.
func (r *Registry) Get(symbol string) (domain.Instrument, error) {
	e, ok := r.index.Get(&entry{inst: domain.Instrument{Symbol: symbol}})
	if !ok {
		return domain.Instrument{}, domain.ErrInstrumentNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inst, nil
}

// Update applies fn to the instrument for symbol under that instrument's
// lock and returns the post-update snapshot. The mutation and the snapshot
// read are atomic with respect to the lock.
func (r *Registry) Update(symbol string, fn func(*domain.Instrument)) (domain.Instrument, error) {
	e, ok := r.index.Get(&entry{inst: domain.Instrument{Symbol: symbol}})
	if !ok {
		return domain.Instrument{}, domain.ErrInstrumentNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.inst)
	return e.inst, nil
}

// SnapshotAll returns a snapshot of every instrument in symbol order.
// Each instrument is read under its own lock; the snapshot as a whole is
// not a consistent cut, which is fine for broadcast catch-up.
func (r *Registry) SnapshotAll() []domain.Instrument {
	snaps := make([]domain.Instrument, 0, r.index.Len())
	r.index.Ascend(func(e *entry) bool {
		e.mu.Lock()
		snaps = append(snaps, e.inst)
		e.mu.Unlock()
		return true
	})
	return snaps
}
