package retarget

import (
	"math/big"
	"testing"

	"github.com/weavesuite/weave-mining-server/chaincfg"
)

func TestIsRetargetHeight(t *testing.T) {
	retargetBlocks := chaincfg.ActiveNetParams.RetargetBlocks

	if IsRetargetHeight(0) {
		t.Error("genesis is not a retarget height")
	}
	if !IsRetargetHeight(retargetBlocks) {
		t.Errorf("height %v should retarget", retargetBlocks)
	}
	if IsRetargetHeight(retargetBlocks + 1) {
		t.Errorf("height %v should not retarget", retargetBlocks+1)
	}
}

func TestMaybeRetargetPassThrough(t *testing.T) {
	diff := big.NewInt(1_000_000)
	got := MaybeRetarget(11, diff, 2000, 1000)
	if got.Cmp(diff) != 0 {
		t.Errorf("off-retarget height changed difficulty: %v", got)
	}
	// The result must be a copy, not an alias.
	got.Add(got, big.NewInt(1))
	if diff.Int64() != 1_000_000 {
		t.Error("MaybeRetarget aliased its input")
	}
}

func TestMaybeRetargetDirection(t *testing.T) {
	params := chaincfg.ActiveNetParams
	height := params.RetargetBlocks
	targetInterval := params.TargetTimePerBlock * params.RetargetBlocks

	// A difficulty with a meaningful expected hash count.
	diff := new(big.Int).Lsh(big.NewInt(1), 255) // expected hashes = 2

	t.Run("blocks_too_fast_raises", func(t *testing.T) {
		lastRetarget := int64(1000)
		ts := lastRetarget + targetInterval/2
		got := MaybeRetarget(height, diff, ts, lastRetarget)
		if got.Cmp(diff) <= 0 {
			t.Errorf("fast blocks should raise difficulty: %v -> %v", diff, got)
		}
	})

	t.Run("blocks_too_slow_lowers", func(t *testing.T) {
		lastRetarget := int64(1000)
		ts := lastRetarget + targetInterval*2
		got := MaybeRetarget(height, diff, ts, lastRetarget)
		if got.Cmp(diff) >= 0 {
			t.Errorf("slow blocks should lower difficulty: %v -> %v", diff, got)
		}
	})

	t.Run("on_target_holds", func(t *testing.T) {
		lastRetarget := int64(1000)
		ts := lastRetarget + targetInterval
		got := MaybeRetarget(height, diff, ts, lastRetarget)
		if got.Cmp(diff) != 0 {
			t.Errorf("on-target interval moved difficulty: %v -> %v", diff, got)
		}
	})
}

func TestNextCumulativeDiff(t *testing.T) {
	diff := new(big.Int).Lsh(big.NewInt(1), 255)

	cdiff := NextCumulativeDiff(big.NewInt(100), diff, 5)
	if cdiff.Cmp(big.NewInt(100)) <= 0 {
		t.Errorf("cumulative difficulty did not grow: %v", cdiff)
	}

	// nil base treated as zero.
	fromNil := NextCumulativeDiff(nil, diff, 5)
	if fromNil.Sign() <= 0 {
		t.Errorf("cumulative difficulty from nil base: %v", fromNil)
	}
}
