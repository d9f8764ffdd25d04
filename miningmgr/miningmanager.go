package miningmgr

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/weavesuite/weave-mining-server/chaincfg"
	"github.com/weavesuite/weave-mining-server/chunkstore"
	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/randomx"
	"github.com/weavesuite/weave-mining-server/spora"
	"github.com/weavesuite/weave-mining-server/txpool"
	"github.com/weavesuite/weave-mining-server/utils"
	"github.com/weavesuite/weave-mining-server/walletstore"
	"github.com/weavesuite/weave-mining-server/wire"
)

// fastStateRetryInterval is how long to wait before re-checking for
// RandomX fast-mode state when only light state is available.
const fastStateRetryInterval = 10 * time.Second

const defaultBulkIterations = 64

// Config holds the collaborators and sizing of a mining manager.
type Config struct {
	ChunkStore  *chunkstore.ChunkStore
	TxPool      *txpool.TxPool
	WalletStore *walletstore.WalletStore

	// Db records mined blocks; nil disables persistence.
	Db *gorm.DB

	// RewardAddr receives the finder reward.
	RewardAddr string

	// Worker pool sizes. Stage-one and stage-two workers share the
	// hashing cores; I/O workers are sized per storage spindle.
	StageOneWorkers int
	StageTwoWorkers int
	IOWorkers       int

	// BulkIterations is the batch size of one stage-one bulk-hash call.
	BulkIterations int
}

// ChainState is the view of the chain the round mines on top of, supplied
// by the parent chain subsystem.
type ChainState struct {
	// CurrentBlock is the chain tip the candidate extends.
	CurrentBlock *model.CandidateBlock

	// HashListMerkle commits to the block hash list up to the tip.
	HashListMerkle utils.Hash

	// BlockAnchors is the window of recent block hashes transactions
	// may anchor to.
	BlockAnchors []utils.Hash

	// RecentTxIDs are on-chain transaction IDs inside the replay
	// window.
	RecentTxIDs []utils.Hash

	// SearchSpaceUpperBound is the weave size at the configured depth
	// behind the tip; recall bytes are derived inside it.
	SearchSpaceUpperBound int64
}

// MiningManager owns one mining round at a time: it builds the candidate,
// runs the worker fleet, keeps the candidate fresh, and validates claimed
// solutions. Messages from a previous round are fenced off by the session
// token carried in every one of them.
type MiningManager struct {
	cfg   *Config
	chain *ChainState

	// Round-constant hashing inputs.
	prevH      utils.Hash
	upperBound int64

	engineMtx sync.RWMutex
	engine    randomx.Engine

	session atomic.Pointer[model.Session]
	metrics *Metrics
	best    *BestHashRegister
	history *candidateHistory

	// Candidate state, controller-owned.
	candidate        *model.CandidateBlock
	bdsBase          []byte
	bds              []byte
	minedTxs         []*model.Tx
	walletsAfterTxs  model.WalletMap
	lastFinalizeSecs int64

	s1Workers   []*stageOneWorker
	s2Workers   []*stageTwoWorker
	ioWorkers   []*ioWorker
	smallWorker *smallWeaveWorker
	workerQuit  chan struct{}
	workerStop  *sync.Once
	workerWg    sync.WaitGroup

	solutionCh chan *model.Solution
	refreshNow chan struct{}
	crashCh    chan struct{}
	timer      *time.Timer

	quit chan struct{}
	done chan struct{}

	startLock sync.Mutex
	started   bool

	// The notifications field stores a slice of callbacks to be
	// executed on certain events.
	notificationsLock sync.RWMutex
	notifications     []NotificationCallback
}

// SetupMiningManager creates a manager around the given collaborators.
func SetupMiningManager(cfg *Config) *MiningManager {
	if cfg.BulkIterations <= 0 {
		cfg.BulkIterations = defaultBulkIterations
	}
	return &MiningManager{
		cfg:     cfg,
		metrics: NewMetrics(),
		best:    &BestHashRegister{},
		history: newCandidateHistory(),
	}
}

// SetEngine installs (or replaces) the RandomX engine. Called again by the
// parent once fast-mode state finishes initializing.
func (mgr *MiningManager) SetEngine(engine randomx.Engine) {
	mgr.engineMtx.Lock()
	defer mgr.engineMtx.Unlock()
	mgr.engine = engine
}

func (mgr *MiningManager) engineHandle() randomx.Engine {
	mgr.engineMtx.RLock()
	defer mgr.engineMtx.RUnlock()
	return mgr.engine
}

// Metrics exposes the round counters.
func (mgr *MiningManager) Metrics() *Metrics {
	return mgr.metrics
}

// BestHash returns the round's best near-miss.
func (mgr *MiningManager) BestHash() (utils.Hash, bool) {
	return mgr.best.Best()
}

// CurrentSessionID returns the active session token, empty when no round
// ever started.
func (mgr *MiningManager) CurrentSessionID() string {
	session := mgr.currentSession()
	if session == nil {
		return ""
	}
	return session.ID
}

// Subscribe to notifications. Registers a callback to be executed when
// various events take place.
func (mgr *MiningManager) Subscribe(callback NotificationCallback) {
	mgr.notificationsLock.Lock()
	mgr.notifications = append(mgr.notifications, callback)
	mgr.notificationsLock.Unlock()
}

// sendNotification sends a notification with the passed type and data if the
// caller requested notifications by providing a callback function in the
// call to Subscribe.
func (mgr *MiningManager) sendNotification(typ NotificationType, data interface{}) {
	n := Notification{Type: typ, Data: data}
	mgr.notificationsLock.RLock()
	for _, callback := range mgr.notifications {
		callback(&n)
	}
	mgr.notificationsLock.RUnlock()
}

func (mgr *MiningManager) currentSession() *model.Session {
	return mgr.session.Load()
}

// invalidateSession publishes a fresh session token, fencing off every
// outstanding work item and any future solution from the old round.
func (mgr *MiningManager) invalidateSession() {
	mgr.session.Store(&model.Session{
		ID:        utils.GenerateSessionID(),
		Timestamp: time.Now().Unix(),
	})
}

func (mgr *MiningManager) hasStageTwoWorkers() bool {
	return len(mgr.s2Workers) > 0
}

// reportSolution hands a claimed solution to the controller. Dropping on a
// full queue is fine: a real solution will be found again, and after the
// round ends nothing listens anymore.
func (mgr *MiningManager) reportSolution(solution *model.Solution) {
	select {
	case mgr.solutionCh <- solution:
	default:
	}
}

func (mgr *MiningManager) workerExited() {
	if r := recover(); r != nil {
		log.Criticalf("Mining worker crashed: %v", r)
		select {
		case mgr.crashCh <- struct{}{}:
		default:
		}
	}
	mgr.workerWg.Done()
}

// Start begins mining on top of the given chain state. It returns once the
// controller goroutine is launched; if only light-mode RandomX state is
// available the controller keeps retrying every fastStateRetryInterval
// until fast state appears or Stop is called.
func (mgr *MiningManager) Start(chain *ChainState) error {
	mgr.startLock.Lock()
	defer mgr.startLock.Unlock()

	if mgr.started {
		return errors.New("mining manager already started")
	}
	if chain == nil || chain.CurrentBlock == nil {
		return errors.New("mining requires a chain state")
	}

	mgr.started = true
	mgr.chain = chain
	mgr.prevH = chain.CurrentBlock.IndepHash
	mgr.upperBound = chain.SearchSpaceUpperBound

	mgr.solutionCh = make(chan *model.Solution, 8)
	mgr.refreshNow = make(chan struct{}, 1)
	mgr.crashCh = make(chan struct{}, 1)
	mgr.quit = make(chan struct{})
	mgr.done = make(chan struct{})
	mgr.workerQuit = make(chan struct{})
	mgr.workerStop = new(sync.Once)

	go mgr.controllerMain()
	return nil
}

// Stop aborts the current round, invalidates the session and waits for the
// controller and every worker to exit.
func (mgr *MiningManager) Stop() {
	mgr.startLock.Lock()
	if !mgr.started {
		mgr.startLock.Unlock()
		return
	}
	mgr.started = false
	mgr.startLock.Unlock()

	close(mgr.quit)
	<-mgr.done
}

// WaitForShutdown blocks until the current round's controller exits.
func (mgr *MiningManager) WaitForShutdown() {
	<-mgr.done
}

func (mgr *MiningManager) controllerMain() {
	defer close(mgr.done)

	// Mining cannot start on light state; wait for the parent to swap
	// in a fast engine.
	for {
		engine := mgr.engineHandle()
		if engine != nil && engine.Mode() != randomx.ModeLight {
			break
		}
		log.Infof("RandomX fast-mode state not ready, retrying in %v", fastStateRetryInterval)
		select {
		case <-time.After(fastStateRetryInterval):
		case <-mgr.quit:
			return
		}
	}

	if err := mgr.startRound(); err != nil {
		log.Errorf("Unable to start mining round: %v", err)
		return
	}

	mgr.miningLoop()
}

func (mgr *MiningManager) startRound() error {
	if err := mgr.fullRefresh(); err != nil {
		return err
	}

	session := &model.Session{
		ID:        utils.GenerateSessionID(),
		Timestamp: mgr.candidate.Timestamp,
	}
	mgr.session.Store(session)
	mgr.best.Reset()

	smallWeave := spora.SearchSubspaceSize(mgr.upperBound) == 0
	if smallWeave {
		log.Infof("Weave too small for recall, mining with the single-threaded path")
		mgr.smallWorker = newSmallWeaveWorker(mgr, mgr.workerQuit)
		mgr.workerWg.Add(1)
		go mgr.smallWorker.run()
	} else {
		for i := 0; i < mgr.cfg.IOWorkers; i++ {
			w := newIOWorker(mgr, mgr.workerQuit)
			mgr.ioWorkers = append(mgr.ioWorkers, w)
			mgr.workerWg.Add(1)
			go w.run()
		}
		for i := 0; i < mgr.cfg.StageTwoWorkers; i++ {
			w := newStageTwoWorker(mgr, mgr.workerQuit)
			mgr.s2Workers = append(mgr.s2Workers, w)
			mgr.workerWg.Add(1)
			go w.run()
		}
		for i := 0; i < mgr.cfg.StageOneWorkers; i++ {
			w := newStageOneWorker(mgr, time.Now().UnixNano()+int64(i), mgr.workerQuit)
			mgr.s1Workers = append(mgr.s1Workers, w)
			mgr.workerWg.Add(1)
			go w.run()
		}
	}

	mgr.broadcastState()
	mgr.scheduleRefresh()
	mgr.sendNotification(NTSessionStarted, session.ID)

	log.Infof("Mining session %v started: height %v, %v txs, weave size %v, search space upper bound %v",
		session.ID, mgr.candidate.Height, len(mgr.candidate.TxIDs), mgr.candidate.WeaveSize,
		mgr.upperBound)
	return nil
}

func (mgr *MiningManager) miningLoop() {
	for {
		select {
		case solution := <-mgr.solutionCh:
			if mgr.handleSolution(solution) {
				return
			}

		case <-mgr.timer.C:
			mgr.refreshTimestamp()

		case <-mgr.refreshNow:
			mgr.refreshTimestamp()

		case <-mgr.crashCh:
			log.Errorf("A mining worker crashed, aborting the round")
			mgr.invalidateSession()
			mgr.stopWorkers()
			mgr.markStopped()
			return

		case <-mgr.quit:
			session := mgr.currentSession()
			mgr.invalidateSession()
			mgr.stopWorkers()
			mgr.logPerformance()
			if session != nil {
				mgr.sendNotification(NTSessionStopped, session.ID)
			}
			return
		}
	}
}

// refreshTimestamp runs a partial refresh and pushes the new state to every
// worker.
func (mgr *MiningManager) refreshTimestamp() {
	if err := mgr.partialRefresh(); err != nil {
		log.Errorf("Timestamp refresh failed: %v", err)
		mgr.scheduleRefresh()
		return
	}

	session := mgr.currentSession()
	mgr.session.Store(&model.Session{
		ID:        session.ID,
		Timestamp: mgr.candidate.Timestamp,
	})

	mgr.broadcastState()
	mgr.scheduleRefresh()

	log.Debugf("Refreshed candidate timestamp to %v (difficulty %v)",
		mgr.candidate.Timestamp, mgr.candidate.Diff)
}

// broadcastState pushes the current (timestamp, difficulty, BDS, session)
// to the hashing workers. I/O and stage-two workers pick the session
// timestamp up through the shared session pointer instead.
func (mgr *MiningManager) broadcastState() {
	session := mgr.currentSession()
	state := workerState{
		timestamp: mgr.candidate.Timestamp,
		diff:      mgr.candidate.Diff,
		bds:       mgr.bds,
		sessionID: session.ID,
	}
	for _, w := range mgr.s1Workers {
		w.updateState(state)
	}
	if mgr.smallWorker != nil {
		mgr.smallWorker.updateState(state)
	}
}

// scheduleRefresh arms the refresh timer for the refresh interval minus the
// time the last BDS finalization took. A finalization slower than the
// interval forces an immediate refresh.
func (mgr *MiningManager) scheduleRefresh() {
	interval := chaincfg.ActiveNetParams.MiningTimestampRefreshInterval
	delaySecs := interval - mgr.lastFinalizeSecs

	if delaySecs <= 0 {
		log.Warnf("Slow data segment finalization (%vs) for txs %v, refreshing immediately",
			mgr.lastFinalizeSecs, mgr.candidate.TxIDs)
		delaySecs = interval
		select {
		case mgr.refreshNow <- struct{}{}:
		default:
		}
	}

	delay := time.Duration(delaySecs) * time.Second
	if mgr.timer == nil {
		mgr.timer = time.NewTimer(delay)
		return
	}
	if !mgr.timer.Stop() {
		select {
		case <-mgr.timer.C:
		default:
		}
	}
	mgr.timer.Reset(delay)
}

// handleSolution validates a claimed solution. Returns true when the round
// is over: the block was built and handed to the parent.
func (mgr *MiningManager) handleSolution(solution *model.Solution) bool {
	session := mgr.currentSession()
	if session == nil || solution.SessionID != session.ID {
		log.Debugf("Dropping solution tagged with dead session %v", solution.SessionID)
		return false
	}

	entry := mgr.history.Get(solution.Timestamp)
	if entry == nil {
		log.Debugf("Dropping solution for evicted candidate timestamp %v", solution.Timestamp)
		return false
	}

	poa, err := mgr.getPoA(solution)
	if err != nil {
		log.Warnf("Discarding solution, no proof of access: %v", err)
		return false
	}

	engine := mgr.engineHandle()
	solutionHash, err := spora.ValidateSolution(engine, mgr.cfg.ChunkStore, &spora.ValidateArgs{
		BDS:        entry.bds,
		Nonce:      solution.Nonce,
		Timestamp:  solution.Timestamp,
		Height:     entry.candidate.Height,
		Diff:       entry.candidate.Diff,
		PrevBlock:  mgr.prevH,
		UpperBound: mgr.upperBound,
		PoA:        poa,
	})
	if err != nil {
		log.Errorf("Invalid solution discarded: %v (prev block %v, ts %v, claimed hash %v, "+
			"nonce %x, height %v, upper bound %v)",
			err, mgr.prevH, solution.Timestamp, solution.SolutionHash,
			solution.Nonce, entry.candidate.Height, mgr.upperBound)
		return false
	}

	mgr.invalidateSession()
	mgr.stopWorkers()

	block := entry.candidate.Copy()
	block.Nonce = append([]byte(nil), solution.Nonce...)
	block.SolutionHash = solutionHash
	block.PoA = poa
	block.IndepHash = wire.IndepHash(entry.bds, solutionHash, solution.Nonce, poa)

	mgr.persistMinedBlock(block, session.ID)

	mgr.sendNotification(NTWorkComplete, &model.WorkComplete{
		CurrentBlockHash: block.IndepHash,
		Block:            block,
		MinedTxIDs:       block.TxIDs,
		BDS:              entry.bds,
		PoA:              poa,
	})

	log.Infof("Mined block %v at height %v: solution hash %v, %v txs",
		block.IndepHash, block.Height, solutionHash, len(block.TxIDs))
	mgr.logPerformance()
	mgr.markStopped()
	return true
}

// getPoA re-derives the recall byte for a solution and fetches its proof of
// access. The empty proof is valid when the weave is too small to recall.
func (mgr *MiningManager) getPoA(solution *model.Solution) (*model.PoA, error) {
	recallByte, err := spora.RecallByte(solution.H0, mgr.prevH, mgr.upperBound)
	if err != nil {
		if errors.Is(err, spora.ErrWeaveTooSmall) {
			return model.EmptyPoA, nil
		}
		return nil, err
	}
	return mgr.cfg.ChunkStore.GetPoA(recallByte)
}

func (mgr *MiningManager) stopWorkers() {
	mgr.workerStop.Do(func() {
		close(mgr.workerQuit)
	})
	mgr.workerWg.Wait()

	if mgr.timer != nil {
		mgr.timer.Stop()
	}
	mgr.s1Workers = nil
	mgr.s2Workers = nil
	mgr.ioWorkers = nil
	mgr.smallWorker = nil
}

func (mgr *MiningManager) markStopped() {
	mgr.startLock.Lock()
	mgr.started = false
	mgr.startLock.Unlock()
}

func (mgr *MiningManager) logPerformance() {
	snapshot := mgr.metrics.Snapshot()
	best, ok := mgr.best.Best()
	bestStr := "none"
	if ok {
		bestStr = best.String()
	}
	log.Infof("Mining performance: %v sporas (%.2f h/s), %v KiB read, %v recall bytes, "+
		"best hash %v, uptime %vs",
		snapshot.Sporas, snapshot.HashRate, snapshot.Kibs, snapshot.RecallBytes,
		bestStr, snapshot.UptimeSecs)
}
