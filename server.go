package main

import (
	"encoding/hex"
	"math/big"
	"path/filepath"
	"runtime"
	"time"

	"gorm.io/gorm"

	"github.com/weavesuite/weave-mining-server/chaincfg"
	"github.com/weavesuite/weave-mining-server/chunkstore"
	"github.com/weavesuite/weave-mining-server/miningmgr"
	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/randomx"
	"github.com/weavesuite/weave-mining-server/statserver"
	"github.com/weavesuite/weave-mining-server/txpool"
	"github.com/weavesuite/weave-mining-server/utils"
	"github.com/weavesuite/weave-mining-server/walletstore"
)

const walletDBFilename = "wallets.db"

type server struct {
	chunkStore    *chunkstore.ChunkStore
	walletStore   *walletstore.WalletStore
	txPool        *txpool.TxPool
	miningManager *miningmgr.MiningManager
	statServer    *statserver.Server
}

func newServer(db *gorm.DB) (*server, error) {
	store, err := chunkstore.Open(&chunkstore.Config{
		DataDir:      cfg.DataDir,
		UseDataIndex: cfg.UseDataIndex,
		Writable:     true,
	})
	if err != nil {
		return nil, err
	}

	wallets, err := walletstore.Open(filepath.Join(cfg.DataDir, walletDBFilename))
	if err != nil {
		store.Close()
		return nil, err
	}

	pool := txpool.New()

	miningMgr := miningmgr.SetupMiningManager(&miningmgr.Config{
		ChunkStore:      store,
		TxPool:          pool,
		WalletStore:     wallets,
		Db:              db,
		RewardAddr:      cfg.MiningAddr,
		StageOneWorkers: cfg.StageOneWorkers,
		StageTwoWorkers: cfg.StageTwoWorkers,
		IOWorkers:       cfg.IOWorkers,
		BulkIterations:  cfg.BulkIterations,
	})

	var statSvr *statserver.Server
	if !cfg.DisableStats {
		statSvr = statserver.NewServer(cfg.StatListen, miningMgr)
	}

	ret := &server{
		chunkStore:    store,
		walletStore:   wallets,
		txPool:        pool,
		miningManager: miningMgr,
		statServer:    statSvr,
	}
	return ret, nil
}

func (s *server) Start() error {
	go s.initRandomX()

	if s.statServer != nil {
		s.statServer.Start()
	}

	s.miningManager.Subscribe(s.handleMiningNotification)
	return s.miningManager.Start(s.bootstrapChainState())
}

func (s *server) Stop() {
	s.miningManager.Stop()
	if s.statServer != nil {
		s.statServer.Stop()
	}
	s.walletStore.Close()
	s.chunkStore.Close()
}

// initRandomX initializes the RandomX state in the background: dataset
// initialization in fast mode takes a while, and the mining manager keeps
// retrying until a fast engine is installed. A light-only configuration
// never installs one, so mining stays parked by design of the flag.
func (s *server) initRandomX() {
	defer utils.MyRecover()

	key := randomxKey()

	mode := randomx.ModeFast
	if cfg.RandomxLight {
		mode = randomx.ModeLight
	}

	var engineFlags []randomx.Flag
	if cfg.RandomxJIT {
		engineFlags = append(engineFlags, randomx.FlagJIT)
	}
	if cfg.RandomxHWAES {
		engineFlags = append(engineFlags, randomx.FlagHardAES)
	}
	if cfg.LargePages {
		engineFlags = append(engineFlags, randomx.FlagLargePages)
	}

	srvrLog.Infof("Initializing RandomX state (fast mode: %v)...", mode == randomx.ModeFast)
	start := time.Now()
	engine, err := randomx.New(&randomx.Config{
		Key:     key,
		Mode:    mode,
		Threads: runtime.NumCPU(),
		Flags:   engineFlags,
	})
	if err != nil {
		srvrLog.Criticalf("Unable to initialize RandomX state: %v", err)
		simulateInterrupt()
		return
	}
	srvrLog.Infof("RandomX state ready after %v", time.Since(start).Round(time.Millisecond))

	s.miningManager.SetEngine(engine)
}

func randomxKey() []byte {
	if cfg.RandomxKey != "" {
		key, err := hex.DecodeString(cfg.RandomxKey)
		if err == nil {
			return key
		}
		srvrLog.Warnf("Invalid --randomxkey, falling back to the network default")
	}
	defaultKey := utils.ChainHash([]byte("randomx-key-" + chaincfg.ActiveNetParams.Name))
	return defaultKey.CloneBytes()
}

// bootstrapChainState builds the chain view the first round mines on. A
// full node replaces this with the live view of its chain subsystem; the
// standalone server starts from the local weave and a minimal difficulty.
func (s *server) bootstrapChainState() *miningmgr.ChainState {
	weaveSize := s.chunkStore.WeaveSize()

	genesisHash := utils.ChainHash([]byte("weave-genesis-" + chaincfg.ActiveNetParams.Name))

	current := &model.CandidateBlock{
		Height:         0,
		IndepHash:      genesisHash,
		WeaveSize:      weaveSize,
		Diff:           big.NewInt(1),
		CumulativeDiff: big.NewInt(0),
		LastRetarget:   time.Now().Unix(),
		WalletListRoot: utils.ZeroHash,
	}

	return &miningmgr.ChainState{
		CurrentBlock:          current,
		HashListMerkle:        genesisHash,
		BlockAnchors:          []utils.Hash{genesisHash},
		RecentTxIDs:           nil,
		SearchSpaceUpperBound: weaveSize,
	}
}

// handleMiningNotification reacts to mining manager events. In a full node
// the WorkComplete payload feeds block propagation; here it is logged and
// the process shuts down cleanly after the round.
func (s *server) handleMiningNotification(notification *miningmgr.Notification) {
	switch notification.Type {
	case miningmgr.NTWorkComplete:
		work, ok := notification.Data.(*model.WorkComplete)
		if !ok {
			srvrLog.Errorf("Work-complete notification carries unexpected data")
			break
		}
		srvrLog.Infof("Work complete: block %v at height %v with %v %s",
			work.CurrentBlockHash, work.Block.Height, len(work.MinedTxIDs),
			pickNoun(uint64(len(work.MinedTxIDs)), "tx", "txs"))
		simulateInterrupt()

	case miningmgr.NTSessionStarted:
		srvrLog.Debugf("Mining session %v started", notification.Data)

	case miningmgr.NTSessionStopped:
		srvrLog.Debugf("Mining session %v stopped", notification.Data)
	}
}
