package miningmgr

import (
	mrand "math/rand"
	"time"

	"github.com/weavesuite/weave-mining-server/randomx"
	"github.com/weavesuite/weave-mining-server/spora"
	"github.com/weavesuite/weave-mining-server/utils"
)

// stageOneWorker pumps nonces through the RandomX bulk hasher. It keeps no
// per-iteration state visible to the controller; it only reacts to state
// updates and the stop signal between batches.
type stageOneWorker struct {
	mgr     *MiningManager
	updates chan workerState
	state   workerState
	rng     *mrand.Rand
	quit    chan struct{}
}

func newStageOneWorker(mgr *MiningManager, seed int64, quit chan struct{}) *stageOneWorker {
	return &stageOneWorker{
		mgr:     mgr,
		updates: make(chan workerState, 1),
		rng:     mrand.New(mrand.NewSource(seed)),
		quit:    quit,
	}
}

// updateState replaces any pending update with the newest state. Stage-one
// workers pick it up between batches.
func (w *stageOneWorker) updateState(state workerState) {
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

func (w *stageOneWorker) run() {
	defer w.mgr.workerExited()

	recall := func(h0 utils.Hash) (int64, error) {
		return spora.RecallByte(h0, w.mgr.prevH, w.mgr.upperBound)
	}

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

		// Without a stage-two worker to hand results to, the batch is
		// skipped.
		if !w.mgr.hasStageTwoWorkers() {
			time.Sleep(idleTickInterval)
			continue
		}

		engine := w.mgr.engineHandle()
		if engine == nil {
			time.Sleep(idleTickInterval)
			continue
		}

		nonce1, nonce2 := utils.RandNonce(), utils.RandNonce()
		dispatcher := &chunkDispatcher{mgr: w.mgr, state: w.state, rng: w.rng}

		computed, err := randomx.BulkHashFast(engine, nonce1, nonce2, w.state.bds,
			recall, dispatcher, w.mgr.cfg.BulkIterations)
		w.mgr.metrics.AddRecallBytes(int64(computed))
		if err != nil {
			// The weave shrinking below the recall threshold cannot
			// happen within a round; anything else here is fatal.
			log.Errorf("Stage-one batch aborted: %v", err)
			return
		}
	}
}
