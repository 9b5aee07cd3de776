package resolver

import (
	"sync"
	"time"
)

// Record is one journal entry describing how a lookup was satisfied. Display
// carries the masked representation, never the raw sensitive value.
type Record struct {
	Key        string    `json:"key"`
	Source     Source    `json:"source"`
	Display    string    `json:"value"`
	Type       ValueType `json:"type"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// Recorder receives one record per resolution.
type Recorder interface {
	Record(Record)
}

// Journal keeps resolution records in memory and guards access with a
// RWMutex.
type Journal struct {
	mu      sync.RWMutex
	clock   func() time.Time
	records []Record
}

// JournalOption configures Journal behaviour.
type JournalOption func(*Journal)

// WithJournalClock overrides the time source, primarily for tests.
func WithJournalClock(clock func() time.Time) JournalOption {
	return func(j *Journal) {
		if clock != nil {
			j.clock = clock
		}
	}
}

// NewJournal constructs an empty journal stamping records with UTC time.
func NewJournal(opts ...JournalOption) *Journal {
	j := &Journal{
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Record stamps and appends an entry.
func (j *Journal) Record(rec Record) {
	j.mu.Lock()
	rec.ResolvedAt = j.clock()
	j.records = append(j.records, rec)
	j.mu.Unlock()
}

// Records returns a defensive copy of all entries in resolution order.
func (j *Journal) Records() []Record {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]Record, len(j.records))
	copy(out, j.records)
	return out
}

// Len reports the number of entries.
func (j *Journal) Len() int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.records)
}

// Clear discards all entries.
func (j *Journal) Clear() {
	j.mu.Lock()
	j.records = nil
	j.mu.Unlock()
}
