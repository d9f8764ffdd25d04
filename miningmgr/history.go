package miningmgr

import (
	"sync"

	"github.com/weavesuite/weave-mining-server/model"
)

// historyRetentionSecs is how long a refreshed-away candidate stays
// addressable. Solutions reference the timestamp their hash was computed
// against, which may be several refreshes old by the time they reach the
// controller.
const historyRetentionSecs = 20

type historyEntry struct {
	candidate *model.CandidateBlock
	bds       []byte
}

// candidateHistory maps timestamp -> (candidate, BDS) for the recent
// candidates of the current round. Bounded by the retention window; entries
// are evicted on every refresh.
type candidateHistory struct {
	mtx     sync.Mutex
	entries map[int64]*historyEntry
	maxTs   int64
}

func newCandidateHistory() *candidateHistory {
	return &candidateHistory{
		entries: make(map[int64]*historyEntry),
	}
}

// Add records a candidate under its timestamp. Timestamps are unique within
// a round (the refresher never reuses one), so collisions overwrite only on
// a refresher bug.
func (h *candidateHistory) Add(timestamp int64, candidate *model.CandidateBlock, bds []byte) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.entries[timestamp] = &historyEntry{candidate: candidate, bds: bds}
	if timestamp > h.maxTs {
		h.maxTs = timestamp
	}
}

// Get returns the entry recorded under timestamp, or nil.
func (h *candidateHistory) Get(timestamp int64) *historyEntry {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.entries[timestamp]
}

// Evict drops entries older than the retention window relative to now.
func (h *candidateHistory) Evict(now int64) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	for ts := range h.entries {
		if ts+historyRetentionSecs <= now {
			delete(h.entries, ts)
		}
	}
}

// MaxTimestamp returns the highest timestamp ever recorded, zero when none.
// The refresher uses it to never hand out a timestamp twice.
func (h *candidateHistory) MaxTimestamp() int64 {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.maxTs
}

// Reset clears the history for a new round.
func (h *candidateHistory) Reset() {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	h.entries = make(map[int64]*historyEntry)
	h.maxTs = 0
}

// Len returns the number of retained entries.
func (h *candidateHistory) Len() int {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return len(h.entries)
}
