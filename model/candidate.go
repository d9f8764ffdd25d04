package model

import (
	"math/big"

	"github.com/weavesuite/weave-mining-server/utils"
)

// CandidateBlock is the block being mined. It is owned by the mining manager
// and mutated only under refresh or a transaction-set update; every field is
// a function of (current block, included txs, timestamp), so any change to
// the timestamp or the tx set requires a full recompute.
type CandidateBlock struct {
	Height         int64
	PreviousBlock  utils.Hash
	HashListMerkle utils.Hash
	RewardAddr     string
	Tags           []byte
	TxIDs          []utils.Hash
	TxRoot         utils.Hash
	BlockSize      int64
	WeaveSize      int64
	WalletListRoot utils.Hash
	Timestamp      int64
	LastRetarget   int64
	Diff           *big.Int
	CumulativeDiff *big.Int
	RewardPool     uint64

	// Filled in once a solution is accepted.
	Nonce        []byte
	SolutionHash utils.Hash
	PoA          *PoA
	IndepHash    utils.Hash
}

// Copy returns a deep copy of the candidate. Refreshes operate on copies so
// that entries already placed in the candidate history stay immutable.
func (b *CandidateBlock) Copy() *CandidateBlock {
	dup := *b
	dup.Tags = append([]byte(nil), b.Tags...)
	dup.TxIDs = append([]utils.Hash(nil), b.TxIDs...)
	if b.Diff != nil {
		dup.Diff = new(big.Int).Set(b.Diff)
	}
	if b.CumulativeDiff != nil {
		dup.CumulativeDiff = new(big.Int).Set(b.CumulativeDiff)
	}
	dup.Nonce = append([]byte(nil), b.Nonce...)
	if b.PoA != nil {
		dup.PoA = b.PoA.Copy()
	}
	return &dup
}
