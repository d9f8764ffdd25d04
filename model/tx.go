package model

import (
	"bytes"
	"encoding/binary"

	"github.com/weavesuite/weave-mining-server/utils"
)

// Tx carries the transaction metadata the mining core needs: enough to pick
// a replay-safe set, to size the block, and to commit to the set through the
// tx root. Payload data lives in the chunk storage, not here.
type Tx struct {
	ID       utils.Hash
	Owner    string
	Target   string
	Quantity uint64
	Reward   uint64
	DataSize int64

	// LastTx anchors the transaction to a recent block and is what the
	// replay pool checks against the anchor window.
	LastTx utils.Hash
}

// MetadataHash commits to the fields that participate in the tx root.
func (tx *Tx) MetadataHash() utils.Hash {
	var buf bytes.Buffer
	buf.Write(tx.ID[:])
	buf.WriteString(tx.Owner)
	buf.WriteString(tx.Target)
	_ = binary.Write(&buf, binary.BigEndian, tx.Quantity)
	_ = binary.Write(&buf, binary.BigEndian, tx.Reward)
	_ = binary.Write(&buf, binary.BigEndian, tx.DataSize)
	buf.Write(tx.LastTx[:])
	return utils.HashH(buf.Bytes())
}

// TxRoot builds the merkle commitment over an ordered transaction set.
func TxRoot(txs []*Tx) utils.Hash {
	if len(txs) == 0 {
		return utils.ZeroHash
	}
	leaves := make([]utils.Hash, 0, len(txs))
	for _, tx := range txs {
		leaves = append(leaves, tx.MetadataHash())
	}
	return utils.BuildMerkleTreeStore(leaves)
}
