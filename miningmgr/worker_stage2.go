package miningmgr

import (
	"time"

	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/spora"
	"github.com/weavesuite/weave-mining-server/utils"
)

const stageTwoQueueSize = 512

// stageTwoWorker computes and tests solution hashes over fetched chunks.
// Chunk buffers are owned here for the duration of one hash and released
// when the message is done.
type stageTwoWorker struct {
	mgr   *MiningManager
	prevH utils.Hash
	in    chan chunkHashRequest
	quit  chan struct{}
}

func newStageTwoWorker(mgr *MiningManager, quit chan struct{}) *stageTwoWorker {
	return &stageTwoWorker{
		mgr:   mgr,
		prevH: mgr.prevH,
		in:    make(chan chunkHashRequest, stageTwoQueueSize),
		quit:  quit,
	}
}

func (w *stageTwoWorker) submit(req chunkHashRequest) bool {
	select {
	case w.in <- req:
		return true
	default:
		return false
	}
}

func (w *stageTwoWorker) run() {
	defer w.mgr.workerExited()

	ticker := time.NewTicker(idleTickInterval)
	defer ticker.Stop()

	for {
		select {
		case req := <-w.in:
			w.handle(req)
		case <-ticker.C:
		case <-w.quit:
			return
		}
	}
}

func (w *stageTwoWorker) handle(req chunkHashRequest) {
	session := w.mgr.currentSession()
	if session == nil || req.sessionID != session.ID {
		return
	}
	if req.timestamp+staleSecs < session.Timestamp {
		return
	}

	engine := w.mgr.engineHandle()
	if engine == nil {
		return
	}

	solutionHash := engine.Hash(spora.SolutionPreimage(req.h0, w.prevH, req.timestamp, req.chunk))
	w.mgr.metrics.AddSporas(1)

	if utils.HashToBig(solutionHash).Cmp(req.diff) > 0 {
		w.mgr.reportSolution(&model.Solution{
			Nonce:        req.nonce[:],
			H0:           req.h0,
			Timestamp:    req.timestamp,
			SolutionHash: solutionHash,
			SessionID:    req.sessionID,
		})
		return
	}

	if w.mgr.best.Update(solutionHash) {
		log.Tracef("New best hash %v", solutionHash)
	}
}
