package miningmgr

import (
	"math/big"

	"github.com/weavesuite/weave-mining-server/utils"
)

// Worker inboxes carry one message type per worker role. Every message is
// tagged with the session ID of the round that scheduled it; receivers drop
// anything from a dead session.

// staleSecs is how far a message's timestamp may trail the session timestamp
// before it is dropped. Bounds the memory spent on stale in-flight work.
const staleSecs = 19

// chunkReadRequest asks an I/O worker to resolve a recall byte to a chunk
// and forward it to the chosen stage-two worker.
type chunkReadRequest struct {
	recallByte int64
	h0         utils.Hash
	nonce      [utils.NonceSize]byte
	stageTwo   *stageTwoWorker

	timestamp int64
	diff      *big.Int
	sessionID string
}

// chunkHashRequest asks a stage-two worker to compute and test the solution
// hash for a fetched chunk.
type chunkHashRequest struct {
	chunk []byte
	h0    utils.Hash
	nonce [utils.NonceSize]byte

	timestamp int64
	diff      *big.Int
	sessionID string
}

// workerState is the broadcast candidate state the hashing workers run
// against. Replaced wholesale on every timestamp refresh.
type workerState struct {
	timestamp int64
	diff      *big.Int
	bds       []byte
	sessionID string
}
