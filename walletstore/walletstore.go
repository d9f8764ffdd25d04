package walletstore

import (
	"errors"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"
	bbolt "go.etcd.io/bbolt"

	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var walletListBucket = []byte("walletlists")

// ErrRootNotFound indicates no wallet list is stored under the requested
// root.
var ErrRootNotFound = errors.New("wallet list root not found")

// WalletStore persists wallet-list snapshots keyed by their root hash. The
// refresher reads a snapshot, applies the picked transactions and the mining
// reward, and stores the result under its new root.
type WalletStore struct {
	mtx sync.Mutex
	db  *bbolt.DB
}

// Open opens (creating when absent) the wallet database at path.
func Open(path string) (*WalletStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(walletListBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &WalletStore{db: db}, nil
}

// Close closes the underlying database.
func (s *WalletStore) Close() {
	if err := s.db.Close(); err != nil {
		log.Errorf("Unable to close wallet store: %v", err)
	}
}

// Get loads the wallets for the given addresses from the snapshot stored
// under root. Addresses without an entry are simply absent from the result.
// A nil address list loads the entire snapshot.
func (s *WalletStore) Get(root utils.Hash, addrs []string) (model.WalletMap, error) {
	full, err := s.load(root)
	if err != nil {
		return nil, err
	}

	if addrs == nil {
		return full, nil
	}

	wallets := make(model.WalletMap, len(addrs))
	for _, addr := range addrs {
		if w, ok := full[addr]; ok {
			wallets[addr] = w
		}
	}
	return wallets, nil
}

// Put stores a snapshot and returns its root hash.
func (s *WalletStore) Put(wallets model.WalletMap) (utils.Hash, error) {
	root := RootHash(wallets)

	raw, err := json.Marshal(wallets)
	if err != nil {
		return utils.InvalidHash, err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(walletListBucket).Put(root[:], raw)
	})
	if err != nil {
		return utils.InvalidHash, err
	}
	return root, nil
}

func (s *WalletStore) load(root utils.Hash) (model.WalletMap, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(walletListBucket).Get(root[:])
		if v == nil {
			return ErrRootNotFound
		}
		raw = append(raw, v...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	wallets := make(model.WalletMap)
	if err := json.Unmarshal(raw, &wallets); err != nil {
		return nil, err
	}
	return wallets, nil
}

// AddWallets merges new wallet entries into the snapshot under root,
// persists the result and returns the new root.
func (s *WalletStore) AddWallets(root utils.Hash, add model.WalletMap) (utils.Hash, error) {
	wallets, err := s.load(root)
	if err != nil {
		return utils.InvalidHash, err
	}
	for addr, w := range add {
		wallets[addr] = w
	}
	return s.Put(wallets)
}

// ApplyTxs debits senders and credits targets on a copy of the snapshot.
// The input map is not modified.
func ApplyTxs(wallets model.WalletMap, txs []*model.Tx) model.WalletMap {
	updated := wallets.Copy()
	for _, tx := range txs {
		sender := updated[tx.Owner]
		sender.Balance -= tx.Quantity + tx.Reward
		sender.LastTx = tx.ID
		updated[tx.Owner] = sender

		if tx.Target != "" && tx.Quantity > 0 {
			target := updated[tx.Target]
			target.Balance += tx.Quantity
			updated[tx.Target] = target
		}
	}
	return updated
}

// ApplyMiningReward credits the finder reward to the reward address on a
// copy of the snapshot.
func ApplyMiningReward(wallets model.WalletMap, rewardAddr string, reward uint64) model.WalletMap {
	updated := wallets.Copy()
	w := updated[rewardAddr]
	w.Balance += reward
	updated[rewardAddr] = w
	return updated
}

// RootHash commits to a wallet snapshot: a merkle root over the entries in
// address order.
func RootHash(wallets model.WalletMap) utils.Hash {
	if len(wallets) == 0 {
		return utils.ZeroHash
	}

	addrs := make([]string, 0, len(wallets))
	for addr := range wallets {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	leaves := make([]utils.Hash, 0, len(addrs))
	for _, addr := range addrs {
		w := wallets[addr]
		entry := make([]byte, 0, len(addr)+8+utils.HashSize)
		entry = append(entry, addr...)
		entry = append(entry,
			byte(w.Balance>>56), byte(w.Balance>>48), byte(w.Balance>>40), byte(w.Balance>>32),
			byte(w.Balance>>24), byte(w.Balance>>16), byte(w.Balance>>8), byte(w.Balance))
		entry = append(entry, w.LastTx[:]...)
		leaves = append(leaves, utils.HashH(entry))
	}
	return utils.BuildMerkleTreeStore(leaves)
}
