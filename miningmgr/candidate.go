package miningmgr

import (
	"errors"
	"time"

	"github.com/weavesuite/weave-mining-server/chaincfg"
	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/retarget"
	"github.com/weavesuite/weave-mining-server/txpool"
	"github.com/weavesuite/weave-mining-server/utils"
	"github.com/weavesuite/weave-mining-server/walletstore"
	"github.com/weavesuite/weave-mining-server/wire"
)

const baseSubsidy = 256 * uint64(10_000_000)

// minerFeeNumerator/Denominator split transaction fees between the finder
// and the reward pool.
const (
	minerFeeNumerator   = 4
	minerFeeDenominator = 5
)

// calculateReward returns the finder reward and the new reward pool for a
// block at the given height carrying the given transactions.
func calculateReward(height int64, txs []*model.Tx, rewardPool uint64) (uint64, uint64) {
	base := baseSubsidy
	if interval := chaincfg.ActiveNetParams.SubsidyReductionInterval; interval > 0 {
		base = baseSubsidy >> uint(height/interval)
	}

	var fees uint64
	for _, tx := range txs {
		fees += tx.Reward
	}
	minerFees := fees * minerFeeNumerator / minerFeeDenominator

	finderReward := base + minerFees
	newPool := rewardPool + fees - minerFees
	return finderReward, newPool
}

// nextTimestamp picks the candidate timestamp: wall clock shifted by the
// last finalization duration, but never a timestamp the round already used.
func (mgr *MiningManager) nextTimestamp() int64 {
	ts := time.Now().Unix() + mgr.lastFinalizeSecs
	if maxUsed := mgr.history.MaxTimestamp(); ts <= maxUsed {
		ts = maxUsed + 1
	}
	return ts
}

// fullRefresh rebuilds the candidate from scratch: transaction pick, wallet
// delta, sizes, tx root and the data segment base. It ends in a partial
// refresh for the timestamp-dependent tail.
func (mgr *MiningManager) fullRefresh() error {
	current := mgr.chain.CurrentBlock
	height := current.Height + 1

	ts := mgr.nextTimestamp()
	diff := retarget.MaybeRetarget(height, current.Diff, ts, current.LastRetarget)

	wallets, err := mgr.cfg.WalletStore.Get(current.WalletListRoot, nil)
	if err != nil {
		if !errors.Is(err, walletstore.ErrRootNotFound) {
			return err
		}
		// A chain young enough to have no wallet list yet.
		wallets = make(model.WalletMap)
	}

	txs := mgr.cfg.TxPool.PickTxs(&txpool.PickArgs{
		Anchors:   mgr.chain.BlockAnchors,
		RecentTxs: mgr.chain.RecentTxIDs,
		Height:    height,
		Diff:      diff,
		Timestamp: ts,
		Wallets:   wallets,
	})

	var blockSize int64
	txIDs := make([]utils.Hash, 0, len(txs))
	for _, tx := range txs {
		blockSize += tx.DataSize
		txIDs = append(txIDs, tx.ID)
	}

	candidate := &model.CandidateBlock{
		Height:         height,
		PreviousBlock:  current.IndepHash,
		HashListMerkle: mgr.chain.HashListMerkle,
		RewardAddr:     mgr.cfg.RewardAddr,
		Tags:           nil,
		TxIDs:          txIDs,
		TxRoot:         model.TxRoot(txs),
		BlockSize:      blockSize,
		WeaveSize:      current.WeaveSize + blockSize,
		LastRetarget:   current.LastRetarget,
	}

	mgr.candidate = candidate
	mgr.minedTxs = txs
	mgr.walletsAfterTxs = walletstore.ApplyTxs(wallets, txs)
	mgr.bdsBase = wire.DataSegmentBase(candidate)

	return mgr.partialRefresh()
}

// partialRefresh recomputes the timestamp-dependent tail of the candidate
// and finalizes the data segment against the cached base. The finalization
// is timed; its duration feeds both the next timestamp choice and the
// refresh scheduling.
func (mgr *MiningManager) partialRefresh() error {
	start := time.Now()

	current := mgr.chain.CurrentBlock
	candidate := mgr.candidate
	height := candidate.Height

	ts := mgr.nextTimestamp()
	diff := retarget.MaybeRetarget(height, current.Diff, ts, current.LastRetarget)

	lastRetarget := current.LastRetarget
	if retarget.IsRetargetHeight(height) {
		lastRetarget = ts
	}

	finderReward, rewardPool := calculateReward(height, mgr.minedTxs, current.RewardPool)
	walletsFinal := walletstore.ApplyMiningReward(mgr.walletsAfterTxs, mgr.cfg.RewardAddr, finderReward)
	walletListRoot, err := mgr.cfg.WalletStore.Put(walletsFinal)
	if err != nil {
		return err
	}

	candidate.Timestamp = ts
	candidate.LastRetarget = lastRetarget
	candidate.Diff = diff
	candidate.CumulativeDiff = retarget.NextCumulativeDiff(current.CumulativeDiff, diff, height)
	candidate.RewardPool = rewardPool
	candidate.WalletListRoot = walletListRoot

	mgr.bds = wire.FinalizeDataSegment(mgr.bdsBase, candidate)

	elapsedMicros := time.Since(start).Microseconds()
	mgr.lastFinalizeSecs = (elapsedMicros + 500_000) / 1_000_000

	mgr.history.Add(ts, candidate.Copy(), mgr.bds)
	mgr.history.Evict(ts)

	return nil
}
