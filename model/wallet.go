package model

import (
	"github.com/weavesuite/weave-mining-server/utils"
)

// Wallet is one entry of the wallet list.
type Wallet struct {
	Balance uint64
	LastTx  utils.Hash
}

// WalletMap is a wallet-list snapshot keyed by address.
type WalletMap map[string]Wallet

// Copy returns an independent snapshot.
func (m WalletMap) Copy() WalletMap {
	dup := make(WalletMap, len(m))
	for addr, w := range m {
		dup[addr] = w
	}
	return dup
}
