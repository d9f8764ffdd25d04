package miningmgr

import (
	"testing"

	"github.com/weavesuite/weave-mining-server/model"
)

func TestHistoryEviction(t *testing.T) {
	h := newCandidateHistory()

	base := int64(1600000000)
	for i := int64(0); i < 30; i++ {
		h.Add(base+i, &model.CandidateBlock{Timestamp: base + i}, []byte("bds"))
	}

	now := base + 29
	h.Evict(now)

	// Everything with ts + 20 <= now must be gone, the rest retained.
	for i := int64(0); i < 30; i++ {
		ts := base + i
		entry := h.Get(ts)
		if ts+historyRetentionSecs <= now && entry != nil {
			t.Errorf("entry %v survived eviction", ts)
		}
		if ts+historyRetentionSecs > now && entry == nil {
			t.Errorf("entry %v evicted too early", ts)
		}
	}
}

func TestHistoryMaxTimestamp(t *testing.T) {
	h := newCandidateHistory()
	if h.MaxTimestamp() != 0 {
		t.Fatal("fresh history should report zero max timestamp")
	}

	h.Add(100, &model.CandidateBlock{}, nil)
	h.Add(50, &model.CandidateBlock{}, nil)
	if got := h.MaxTimestamp(); got != 100 {
		t.Errorf("MaxTimestamp = %v, want 100", got)
	}

	// Eviction never lowers the high-water mark; timestamps must not be
	// reused even after their entries expire.
	h.Evict(1000)
	if got := h.MaxTimestamp(); got != 100 {
		t.Errorf("MaxTimestamp after eviction = %v, want 100", got)
	}
}
