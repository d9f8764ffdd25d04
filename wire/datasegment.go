package wire

import (
	"bytes"

	"github.com/weavesuite/weave-mining-server/chaincfg"
	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/utils"
)

// The block data segment (BDS) is the canonical serialization of a candidate
// block used as hashing input. It is built in two phases: a base over the
// transaction-dependent fields, then a cheap finalization over the
// timestamp-dependent tail. Timestamp refreshes re-run only the
// finalization, never the base.

// DataSegmentBase serializes and compresses the transaction-dependent fields
// of a candidate. This is the expensive half; the result is cached across
// timestamp refreshes.
func DataSegmentBase(b *model.CandidateBlock) []byte {
	var buf bytes.Buffer

	_ = writeElements(&buf,
		b.Height,
		&b.PreviousBlock,
		&b.HashListMerkle,
		b.RewardAddr,
		b.Tags,
		&b.TxRoot,
		b.BlockSize,
		b.WeaveSize,
	)
	_ = writeElement(&buf, uint64(len(b.TxIDs)))
	for i := range b.TxIDs {
		_ = writeElement(&buf, &b.TxIDs[i])
	}

	base := utils.ChainHash(buf.Bytes())
	return base.CloneBytes()
}

// FinalizeDataSegment combines a cached base with the timestamp-dependent
// fields and returns the block data segment.
func FinalizeDataSegment(base []byte, b *model.CandidateBlock) []byte {
	var buf bytes.Buffer

	buf.Write(base)
	buf.Write(BigEndianFixed(b.Timestamp, chaincfg.ActiveNetParams.TimestampFieldSizeLimit))
	_ = writeElement(&buf, b.LastRetarget)
	_ = writeBigInt(&buf, b.Diff)
	_ = writeBigInt(&buf, b.CumulativeDiff)
	_ = writeElement(&buf, b.RewardPool)
	_ = writeElement(&buf, &b.WalletListRoot)

	bds := utils.ChainHash(buf.Bytes())
	return bds.CloneBytes()
}

// DataSegment builds the segment in one shot. The mining and validation
// paths do not call it; mining goes through the cached base.
func DataSegment(b *model.CandidateBlock) []byte {
	return FinalizeDataSegment(DataSegmentBase(b), b)
}

// IndepHash computes the block's independent identifier once a solution is
// attached: the chain hash of (BDS, solution hash, nonce, PoA).
func IndepHash(bds []byte, solutionHash utils.Hash, nonce []byte, poa *model.PoA) utils.Hash {
	var buf bytes.Buffer
	buf.Write(bds)
	buf.Write(solutionHash[:])
	_ = writeElement(&buf, nonce)
	_ = writeElement(&buf, SerializePoA(poa))
	return utils.ChainHash(buf.Bytes())
}

// SerializePoA flattens a proof of access for hashing and persistence.
// An empty proof serializes to a zero-length payload.
func SerializePoA(poa *model.PoA) []byte {
	if poa.IsEmpty() {
		return nil
	}

	var buf bytes.Buffer
	_ = writeElement(&buf, poa.ChunkOffset)
	_ = writeElement(&buf, poa.Chunk)
	_ = writeElement(&buf, &poa.DataRoot)
	_ = writeElement(&buf, poa.DataPathIndex)
	_ = writeElement(&buf, uint64(len(poa.DataPath)))
	for i := range poa.DataPath {
		_ = writeElement(&buf, &poa.DataPath[i])
	}
	return buf.Bytes()
}
