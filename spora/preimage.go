package spora

import (
	"github.com/weavesuite/weave-mining-server/chaincfg"
	"github.com/weavesuite/weave-mining-server/utils"
	"github.com/weavesuite/weave-mining-server/wire"
)

// Hasher is the hashing surface the validator and the stage-two path need.
// The RandomX engine satisfies it; tests substitute a deterministic fake.
type Hasher interface {
	Hash(input []byte) utils.Hash
}

// SolutionPreimage builds the preimage of the solution hash:
//
//	H0 || prevH || be_fixed(ts, TimestampFieldSizeLimit) || chunk
//
// The small-weave path uses the same layout with an empty chunk. Both the
// miner and the validator must go through this function; the two callers
// drifting apart is a consensus failure.
func SolutionPreimage(h0 utils.Hash, prevH utils.Hash, timestamp int64, chunk []byte) []byte {
	width := chaincfg.ActiveNetParams.TimestampFieldSizeLimit
	preimage := make([]byte, 0, 2*utils.HashSize+width+len(chunk))
	preimage = append(preimage, h0[:]...)
	preimage = append(preimage, prevH[:]...)
	preimage = append(preimage, wire.BigEndianFixed(timestamp, width)...)
	preimage = append(preimage, chunk...)
	return preimage
}

// H0Preimage builds the input of the first hashing stage: nonce || BDS.
func H0Preimage(nonce []byte, bds []byte) []byte {
	preimage := make([]byte, 0, len(nonce)+len(bds))
	preimage = append(preimage, nonce...)
	preimage = append(preimage, bds...)
	return preimage
}
