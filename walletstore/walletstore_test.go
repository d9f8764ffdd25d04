package walletstore

import (
	"path/filepath"
	"testing"

	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/utils"
)

func openTestStore(t *testing.T) *WalletStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "wallets.db"))
	if err != nil {
		t.Fatalf("unable to open wallet store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestPutGetRoundTrip(t *testing.T) {
	store := openTestStore(t)

	wallets := model.WalletMap{
		"alice": {Balance: 100, LastTx: utils.HashH([]byte("a"))},
		"bob":   {Balance: 200},
	}

	root, err := store.Put(wallets)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	loaded, err := store.Get(root, nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(loaded) != 2 || loaded["alice"].Balance != 100 || loaded["bob"].Balance != 200 {
		t.Fatalf("loaded snapshot differs: %+v", loaded)
	}

	subset, err := store.Get(root, []string{"bob", "carol"})
	if err != nil {
		t.Fatalf("Get subset: %v", err)
	}
	if len(subset) != 1 || subset["bob"].Balance != 200 {
		t.Fatalf("subset lookup differs: %+v", subset)
	}

	if _, err := store.Get(utils.HashH([]byte("unknown")), nil); err != ErrRootNotFound {
		t.Errorf("expected ErrRootNotFound, got %v", err)
	}
}

func TestRootHashCommitsToBalances(t *testing.T) {
	a := model.WalletMap{"alice": {Balance: 100}}
	b := model.WalletMap{"alice": {Balance: 101}}

	if hashPtr(RootHash(a)).IsEqual(hashPtr(RootHash(b))) {
		t.Error("root ignored a balance change")
	}
	if !hashPtr(RootHash(a)).IsEqual(hashPtr(RootHash(model.WalletMap{"alice": {Balance: 100}}))) {
		t.Error("root is not deterministic")
	}
	if !hashPtr(RootHash(nil)).IsEqual(&utils.ZeroHash) {
		t.Error("empty wallet list should commit to the zero hash")
	}
}

func hashPtr(h utils.Hash) *utils.Hash { return &h }

func TestApplyTxsAndReward(t *testing.T) {
	wallets := model.WalletMap{
		"alice": {Balance: 1000},
	}
	tx := &model.Tx{
		ID:       utils.HashH([]byte("tx")),
		Owner:    "alice",
		Target:   "bob",
		Quantity: 300,
		Reward:   10,
	}

	afterTxs := ApplyTxs(wallets, []*model.Tx{tx})
	if afterTxs["alice"].Balance != 690 {
		t.Errorf("sender balance %v, want 690", afterTxs["alice"].Balance)
	}
	if afterTxs["bob"].Balance != 300 {
		t.Errorf("target balance %v, want 300", afterTxs["bob"].Balance)
	}
	aliceAfterTxs := afterTxs["alice"]
	if !aliceAfterTxs.LastTx.IsEqual(&tx.ID) {
		t.Error("sender last tx not updated")
	}
	if wallets["alice"].Balance != 1000 {
		t.Error("ApplyTxs mutated its input")
	}

	afterReward := ApplyMiningReward(afterTxs, "miner", 42)
	if afterReward["miner"].Balance != 42 {
		t.Errorf("miner balance %v, want 42", afterReward["miner"].Balance)
	}
}

func TestAddWallets(t *testing.T) {
	store := openTestStore(t)

	root, err := store.Put(model.WalletMap{"alice": {Balance: 1}})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	newRoot, err := store.AddWallets(root, model.WalletMap{"bob": {Balance: 2}})
	if err != nil {
		t.Fatalf("AddWallets: %v", err)
	}
	if newRoot.IsEqual(&root) {
		t.Error("adding a wallet did not change the root")
	}

	merged, err := store.Get(newRoot, nil)
	if err != nil {
		t.Fatalf("Get merged: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("merged snapshot has %v entries", len(merged))
	}
}
