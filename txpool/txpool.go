package txpool

import (
	"math/big"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set"

	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/utils"
)

// TxPool holds pending transactions and answers the replay-safe pick the
// candidate refresher runs on every full refresh.
type TxPool struct {
	mtx     sync.Mutex
	pending map[utils.Hash]*model.Tx
}

// New returns an empty pool.
func New() *TxPool {
	return &TxPool{
		pending: make(map[utils.Hash]*model.Tx),
	}
}

// Add places a transaction into the pending set, replacing any previous
// entry with the same ID.
func (p *TxPool) Add(tx *model.Tx) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.pending[tx.ID] = tx
}

// Remove drops the given transactions, typically after they were mined.
func (p *TxPool) Remove(ids []utils.Hash) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	for _, id := range ids {
		delete(p.pending, id)
	}
}

// Size returns the number of pending transactions.
func (p *TxPool) Size() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return len(p.pending)
}

// PickArgs carries the chain context a replay-safe pick runs against.
type PickArgs struct {
	// Anchors is the window of recent block hashes a transaction may
	// anchor to through its LastTx.
	Anchors []utils.Hash

	// RecentTxs are transaction IDs already on chain inside the replay
	// window; picking one again would double-apply it.
	RecentTxs []utils.Hash

	Height    int64
	Diff      *big.Int
	Timestamp int64

	// Wallets is the snapshot balances are checked against.
	Wallets model.WalletMap
}

// PickTxs selects the pending transactions that are valid to include on top
// of the given chain context: anchored inside the window, not a replay, and
// funded once earlier picks in the same set are accounted for. Higher-fee
// transactions are preferred.
func (p *TxPool) PickTxs(args *PickArgs) []*model.Tx {
	p.mtx.Lock()
	candidates := make([]*model.Tx, 0, len(p.pending))
	for _, tx := range p.pending {
		candidates = append(candidates, tx)
	}
	p.mtx.Unlock()

	anchorSet := mapset.NewSet()
	for _, anchor := range args.Anchors {
		anchorSet.Add(anchor)
	}
	recentSet := mapset.NewSet()
	for _, id := range args.RecentTxs {
		recentSet.Add(id)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Reward != candidates[j].Reward {
			return candidates[i].Reward > candidates[j].Reward
		}
		// Stable order between equal fees keeps the pick
		// deterministic for a given pool state.
		return candidates[i].ID.String() < candidates[j].ID.String()
	})

	balances := args.Wallets.Copy()
	picked := make([]*model.Tx, 0, len(candidates))
	for _, tx := range candidates {
		if !anchorSet.Contains(tx.LastTx) {
			log.Debugf("Skipping tx %v: anchor %v outside the window", tx.ID, tx.LastTx)
			continue
		}
		if recentSet.Contains(tx.ID) {
			log.Debugf("Skipping tx %v: replay of a recent tx", tx.ID)
			continue
		}

		wallet, ok := balances[tx.Owner]
		cost := tx.Quantity + tx.Reward
		if !ok || wallet.Balance < cost {
			log.Debugf("Skipping tx %v: insufficient balance for %v", tx.ID, tx.Owner)
			continue
		}
		wallet.Balance -= cost
		wallet.LastTx = tx.ID
		balances[tx.Owner] = wallet

		picked = append(picked, tx)
	}

	return picked
}
