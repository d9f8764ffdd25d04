package txpool

import (
	"math/big"
	"testing"

	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/utils"
)

func makeTx(name string, owner string, anchor utils.Hash, quantity, reward uint64) *model.Tx {
	return &model.Tx{
		ID:       utils.HashH([]byte(name)),
		Owner:    owner,
		Target:   "target",
		Quantity: quantity,
		Reward:   reward,
		DataSize: 100,
		LastTx:   anchor,
	}
}

func TestPickTxs(t *testing.T) {
	anchor := utils.HashH([]byte("anchor"))
	staleAnchor := utils.HashH([]byte("stale"))

	wallets := model.WalletMap{
		"alice": {Balance: 1000},
		"bob":   {Balance: 50},
	}

	pool := New()
	good := makeTx("good", "alice", anchor, 100, 10)
	stale := makeTx("stale", "alice", staleAnchor, 100, 10)
	broke := makeTx("broke", "bob", anchor, 100, 10)
	replay := makeTx("replay", "alice", anchor, 100, 10)
	pool.Add(good)
	pool.Add(stale)
	pool.Add(broke)
	pool.Add(replay)

	picked := pool.PickTxs(&PickArgs{
		Anchors:   []utils.Hash{anchor},
		RecentTxs: []utils.Hash{replay.ID},
		Height:    5,
		Diff:      big.NewInt(1),
		Timestamp: 1600000000,
		Wallets:   wallets,
	})

	if len(picked) != 1 || !picked[0].ID.IsEqual(&good.ID) {
		t.Fatalf("expected only the anchored, funded, fresh tx; got %v entries", len(picked))
	}
}

func TestPickTxsRunningBalance(t *testing.T) {
	anchor := utils.HashH([]byte("anchor"))
	wallets := model.WalletMap{"alice": {Balance: 250}}

	pool := New()
	// Each costs 110; the balance funds two of the three.
	pool.Add(makeTx("low", "alice", anchor, 100, 10))
	pool.Add(makeTx("mid", "alice", anchor, 100, 10))
	pool.Add(makeTx("high", "alice", anchor, 100, 10))

	picked := pool.PickTxs(&PickArgs{
		Anchors:   []utils.Hash{anchor},
		Height:    5,
		Diff:      big.NewInt(1),
		Timestamp: 1600000000,
		Wallets:   wallets,
	})

	if len(picked) != 2 {
		t.Fatalf("expected 2 funded txs, got %v", len(picked))
	}
}

func TestRemove(t *testing.T) {
	anchor := utils.HashH([]byte("anchor"))
	pool := New()
	tx := makeTx("tx", "alice", anchor, 1, 1)
	pool.Add(tx)
	if pool.Size() != 1 {
		t.Fatalf("pool size %v after add", pool.Size())
	}
	pool.Remove([]utils.Hash{tx.ID})
	if pool.Size() != 0 {
		t.Fatalf("pool size %v after remove", pool.Size())
	}
}
