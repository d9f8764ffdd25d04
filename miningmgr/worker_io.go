package miningmgr

import (
	"errors"
	"time"

	"github.com/weavesuite/weave-mining-server/chunkstore"
)

// idleTickInterval is how often idle workers wake up to drain stale state.
const idleTickInterval = 200 * time.Millisecond

const ioQueueSize = 512

// ioWorker resolves recall bytes to weave chunks. One worker per storage
// spindle keeps the seek queues independent; the chunk store handle itself
// is shared and closed by the owner on shutdown.
type ioWorker struct {
	mgr   *MiningManager
	store *chunkstore.ChunkStore
	in    chan chunkReadRequest
	quit  chan struct{}
}

func newIOWorker(mgr *MiningManager, quit chan struct{}) *ioWorker {
	return &ioWorker{
		mgr:   mgr,
		store: mgr.cfg.ChunkStore,
		in:    make(chan chunkReadRequest, ioQueueSize),
		quit:  quit,
	}
}

// submit enqueues a read request without blocking. A full queue drops the
// request; the lost nonce is the only cost.
func (w *ioWorker) submit(req chunkReadRequest) bool {
	select {
	case w.in <- req:
		return true
	default:
		return false
	}
}

func (w *ioWorker) run() {
	defer w.mgr.workerExited()

	ticker := time.NewTicker(idleTickInterval)
	defer ticker.Stop()

	for {
		select {
		case req := <-w.in:
			w.handle(req)
		case <-ticker.C:
			// Idle tick. Requests own no state across messages, so
			// there is nothing to reclaim beyond letting stale
			// queue entries drain through the session check.
		case <-w.quit:
			return
		}
	}
}

func (w *ioWorker) handle(req chunkReadRequest) {
	session := w.mgr.currentSession()
	if session == nil || req.sessionID != session.ID {
		return
	}
	if req.timestamp+staleSecs < session.Timestamp {
		return
	}

	chunk, err := w.store.GetChunk(req.recallByte)
	if err != nil {
		// A missing chunk just loses this nonce's effort.
		if !errors.Is(err, chunkstore.ErrChunkNotFound) {
			log.Debugf("Chunk lookup failed at offset %v: %v", req.recallByte, err)
		}
		return
	}

	forwarded := req.stageTwo.submit(chunkHashRequest{
		chunk:     chunk,
		h0:        req.h0,
		nonce:     req.nonce,
		timestamp: req.timestamp,
		diff:      req.diff,
		sessionID: req.sessionID,
	})
	if !forwarded {
		return
	}

	w.mgr.metrics.AddKibs(int64(len(chunk)) / 1024)
}
