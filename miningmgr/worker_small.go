package miningmgr

import (
	"time"

	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/spora"
	"github.com/weavesuite/weave-mining-server/utils"
)

// smallWeaveWorker is the degenerate single-threaded path used when the
// weave is too small to support recall. It hashes with an empty chunk and
// runs without an idle tick.
type smallWeaveWorker struct {
	mgr     *MiningManager
	prevH   utils.Hash
	updates chan workerState
	state   workerState
	quit    chan struct{}
}

func newSmallWeaveWorker(mgr *MiningManager, quit chan struct{}) *smallWeaveWorker {
	return &smallWeaveWorker{
		mgr:     mgr,
		prevH:   mgr.prevH,
		updates: make(chan workerState, 1),
		quit:    quit,
	}
}

func (w *smallWeaveWorker) updateState(state workerState) {
	for {
		select {
		case w.updates <- state:
			return
		default:
			select {
			case <-w.updates:
			default:
			}
		}
	}
}

func (w *smallWeaveWorker) run() {
	defer w.mgr.workerExited()

	for {
		select {
		case <-w.quit:
			return
		default:
		}

		select {
		case state := <-w.updates:
			w.state = state
		default:
		}

		if w.state.sessionID == "" {
			time.Sleep(idleTickInterval)
			continue
		}

		engine := w.mgr.engineHandle()
		if engine == nil {
			time.Sleep(idleTickInterval)
			continue
		}

		nonce := utils.RandNonce()
		h0 := engine.Hash(spora.H0Preimage(nonce[:], w.state.bds))
		solutionHash := engine.Hash(spora.SolutionPreimage(h0, w.prevH, w.state.timestamp, nil))
		w.mgr.metrics.AddSporas(1)

		if utils.HashToBig(solutionHash).Cmp(w.state.diff) > 0 {
			w.mgr.reportSolution(&model.Solution{
				Nonce:        nonce[:],
				H0:           h0,
				Timestamp:    w.state.timestamp,
				SolutionHash: solutionHash,
				SessionID:    w.state.sessionID,
			})
			// Keep hashing; the controller decides whether the round
			// is over.
			continue
		}

		if w.mgr.best.Update(solutionHash) {
			log.Tracef("New best hash %v", solutionHash)
		}
	}
}
