package miningmgr

import (
	mrand "math/rand"

	"github.com/weavesuite/weave-mining-server/utils"
)

// chunkDispatcher routes the tuples coming out of a stage-one batch to a
// pseudo-randomly chosen I/O worker, pre-assigning the stage-two worker
// that will hash the fetched chunk. Implements the dispatch surface of the
// bulk hasher, so worker internals never cross the randomx package
// boundary.
type chunkDispatcher struct {
	mgr   *MiningManager
	state workerState
	rng   *mrand.Rand
}

func (d *chunkDispatcher) Route(recallByte int64, h0 utils.Hash, nonce [utils.NonceSize]byte) {
	ioWorkers := d.mgr.ioWorkers
	stageTwoWorkers := d.mgr.s2Workers
	if len(ioWorkers) == 0 || len(stageTwoWorkers) == 0 {
		return
	}

	target := ioWorkers[d.rng.Intn(len(ioWorkers))]
	stageTwo := stageTwoWorkers[d.rng.Intn(len(stageTwoWorkers))]

	submitted := target.submit(chunkReadRequest{
		recallByte: recallByte,
		h0:         h0,
		nonce:      nonce,
		stageTwo:   stageTwo,
		timestamp:  d.state.timestamp,
		diff:       d.state.diff,
		sessionID:  d.state.sessionID,
	})
	if !submitted {
		log.Tracef("I/O queue full, dropping nonce for recall byte %v", recallByte)
	}
}
