package retarget

import (
	"math/big"

	"github.com/weavesuite/weave-mining-server/chaincfg"
	"github.com/weavesuite/weave-mining-server/utils"
)

// The linear difficulty is a 256-bit threshold a solution hash must
// numerically exceed. The probability of one hash clearing it is
// (2^256 - diff) / 2^256, so the expected number of hashes per block is
// 2^256 / (2^256 - diff). All retarget arithmetic below works on that
// expected-hashes form and converts back.

// IsRetargetHeight reports whether the difficulty retargets at this height.
func IsRetargetHeight(height int64) bool {
	retargetBlocks := chaincfg.ActiveNetParams.RetargetBlocks
	return height > 0 && height%retargetBlocks == 0
}

// MaybeRetarget returns the difficulty for a block at the given height and
// timestamp. Off retarget heights the difficulty passes through unchanged.
// On retarget heights the expected hash count is scaled by the ratio of the
// target interval to the actual one, bounded by the tolerance factor so a
// clock anomaly cannot move the difficulty arbitrarily in one step.
func MaybeRetarget(height int64, diff *big.Int, timestamp, lastRetarget int64) *big.Int {
	if !IsRetargetHeight(height) {
		return new(big.Int).Set(diff)
	}

	params := chaincfg.ActiveNetParams
	targetInterval := params.TargetTimePerBlock * params.RetargetBlocks

	actualInterval := timestamp - lastRetarget
	if actualInterval <= 0 {
		actualInterval = 1
	}

	// Clamp the interval into [target/tolerance, target*tolerance].
	minInterval := targetInterval / params.RetargetToleranceFactor
	if minInterval < 1 {
		minInterval = 1
	}
	maxInterval := targetInterval * params.RetargetToleranceFactor
	if actualInterval < minInterval {
		actualInterval = minInterval
	}
	if actualInterval > maxInterval {
		actualInterval = maxInterval
	}

	// expected' = expected * target / actual
	expected := expectedHashes(diff)
	expected.Mul(expected, big.NewInt(targetInterval))
	expected.Quo(expected, big.NewInt(actualInterval))
	if expected.Sign() <= 0 {
		expected.SetInt64(1)
	}

	return diffFromExpectedHashes(expected)
}

// NextCumulativeDiff adds the expected hash count of a block at the given
// difficulty to the chain's cumulative difficulty.
func NextCumulativeDiff(cumulativeDiff *big.Int, diff *big.Int, height int64) *big.Int {
	next := new(big.Int)
	if cumulativeDiff != nil {
		next.Set(cumulativeDiff)
	}
	return next.Add(next, expectedHashes(diff))
}

// expectedHashes returns 2^256 / (2^256 - diff).
func expectedHashes(diff *big.Int) *big.Int {
	remaining := new(big.Int).Sub(utils.MaxTarget, diff)
	if remaining.Sign() <= 0 {
		remaining.SetInt64(1)
	}
	return new(big.Int).Quo(utils.MaxTarget, remaining)
}

// diffFromExpectedHashes inverts expectedHashes:
// diff = 2^256 - 2^256 / expected.
func diffFromExpectedHashes(expected *big.Int) *big.Int {
	remaining := new(big.Int).Quo(utils.MaxTarget, expected)
	if remaining.Sign() <= 0 {
		remaining.SetInt64(1)
	}
	diff := new(big.Int).Sub(utils.MaxTarget, remaining)
	if diff.Sign() < 0 {
		diff.SetInt64(0)
	}
	return diff
}
