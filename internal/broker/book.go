package broker

import (
	"sync"

	"github.com/google/uuid"

	"github.com/efreitasn/marketsim/internal/domain"
)

// Entry is a pending preference in the book, tagged with the id the
// broker uses to remove it once resolved.
type Entry struct {
	ID   string
	Pref domain.ClientPreference
}

// Book holds a broker's pending client preferences in insertion order.
// The inbound-message handlers and the evaluation pass run on different
// goroutines, so access is mutex-guarded.
type Book struct {
	mu      sync.Mutex
	entries []Entry
}

// NewBook creates an empty preference book.
func NewBook() *Book {
	return &Book{}
}

// Add appends pref to the book and returns its entry id.
func (b *Book) Add(pref domain.ClientPreference) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.entries = append(b.entries, Entry{ID: id, Pref: pref})
	return id
}

// Entries returns the pending entries in insertion order. The slice is a
// copy; the evaluation pass iterates it while Remove mutates the book.
func (b *Book) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...)
}

// Remove deletes the entry with the given id, if still present.
func (b *Book) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, e := range b.entries {
		if e.ID == id {
			b.entries = append(b.entries[:i], b.entries[i+1:]...)
			return
		}
	}
}

// Len returns the number of pending entries.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
