package miningmgr

import (
	"sync/atomic"

	"github.com/weavesuite/weave-mining-server/utils"
)

// BestHashRegister tracks the round's best near-miss: the numerically
// largest solution hash seen so far. Writers race freely; a compare-and-swap
// keyed on "closer to a solution" keeps updates monotonic regardless of
// arrival order.
type BestHashRegister struct {
	v atomic.Pointer[utils.Hash]
}

// Update installs candidate if it is closer to a solution than the current
// best. Reports whether the register changed.
func (r *BestHashRegister) Update(candidate utils.Hash) bool {
	for {
		current := r.v.Load()
		if current != nil && utils.HashToBig(candidate).Cmp(utils.HashToBig(*current)) <= 0 {
			return false
		}
		if r.v.CompareAndSwap(current, &candidate) {
			return true
		}
	}
}

// Best returns the current best hash and whether any hash was recorded.
func (r *BestHashRegister) Best() (utils.Hash, bool) {
	current := r.v.Load()
	if current == nil {
		return utils.ZeroHash, false
	}
	return *current, true
}

// Reset clears the register for a new round.
func (r *BestHashRegister) Reset() {
	r.v.Store(nil)
}
