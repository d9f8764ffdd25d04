package miningmgr

import (
	"bytes"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/weavesuite/weave-mining-server/chaincfg"
	"github.com/weavesuite/weave-mining-server/chunkstore"
	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/randomx"
	"github.com/weavesuite/weave-mining-server/txpool"
	"github.com/weavesuite/weave-mining-server/utils"
	"github.com/weavesuite/weave-mining-server/walletstore"
)

func fakeEngine(t *testing.T) randomx.Engine {
	t.Helper()
	engine, err := randomx.New(&randomx.Config{Mode: randomx.ModeFake})
	if err != nil {
		t.Fatalf("unable to create fake engine: %v", err)
	}
	return engine
}

func testWalletStore(t *testing.T) *walletstore.WalletStore {
	t.Helper()
	store, err := walletstore.Open(filepath.Join(t.TempDir(), "wallets.db"))
	if err != nil {
		t.Fatalf("unable to open wallet store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func testChainState(diff *big.Int, weaveSize, upperBound int64) *ChainState {
	genesis := utils.HashH([]byte("test-genesis"))
	return &ChainState{
		CurrentBlock: &model.CandidateBlock{
			Height:         0,
			IndepHash:      genesis,
			WeaveSize:      weaveSize,
			Diff:           diff,
			CumulativeDiff: big.NewInt(0),
			LastRetarget:   time.Now().Unix(),
			WalletListRoot: utils.ZeroHash,
		},
		HashListMerkle:        genesis,
		BlockAnchors:          []utils.Hash{genesis},
		SearchSpaceUpperBound: upperBound,
	}
}

func setupManager(t *testing.T, store *chunkstore.ChunkStore, workers bool) (*MiningManager, chan *model.WorkComplete) {
	t.Helper()

	cfg := &Config{
		ChunkStore:      store,
		TxPool:          txpool.New(),
		WalletStore:     testWalletStore(t),
		RewardAddr:      "test-miner",
		StageOneWorkers: 1,
		StageTwoWorkers: 1,
		IOWorkers:       1,
		BulkIterations:  8,
	}
	if !workers {
		cfg.StageOneWorkers = 0
		cfg.StageTwoWorkers = 0
		cfg.IOWorkers = 0
	}

	mgr := SetupMiningManager(cfg)
	mgr.SetEngine(fakeEngine(t))

	workComplete := make(chan *model.WorkComplete, 1)
	mgr.Subscribe(func(n *Notification) {
		if n.Type == NTWorkComplete {
			if work, ok := n.Data.(*model.WorkComplete); ok {
				select {
				case workComplete <- work:
				default:
				}
			}
		}
	})

	return mgr, workComplete
}

// TestMineSmallWeave drives the degenerate path end to end: an empty weave,
// difficulty one, the single-threaded worker. The produced block must carry
// an empty proof of access and pass validation inside the controller.
func TestMineSmallWeave(t *testing.T) {
	mgr, workComplete := setupManager(t, nil, false)

	if err := mgr.Start(testChainState(big.NewInt(1), 0, 0)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	select {
	case work := <-workComplete:
		if !work.PoA.IsEmpty() {
			t.Error("small-weave block carries a non-empty proof of access")
		}
		if work.Block.Height != 1 {
			t.Errorf("mined height %v, want 1", work.Block.Height)
		}
		if utils.HashToBig(work.Block.SolutionHash).Cmp(big.NewInt(1)) <= 0 {
			t.Error("solution hash does not exceed the difficulty")
		}
		if len(work.BDS) == 0 {
			t.Error("work complete carries no data segment")
		}
	case <-time.After(20 * time.Second):
		t.Fatal("no block mined within 20s")
	}
}

// TestMineWithRecall drives the full pipeline: stage-one batches derive
// recall bytes, the I/O worker resolves them against a one-chunk weave, the
// stage-two worker finds a solution, and the controller validates it against
// the chunk store's proof of access.
func TestMineWithRecall(t *testing.T) {
	store, err := chunkstore.Open(&chunkstore.Config{
		DataDir:  t.TempDir(),
		Writable: true,
	})
	if err != nil {
		t.Fatalf("unable to open chunk store: %v", err)
	}
	t.Cleanup(store.Close)

	chunkSize := chaincfg.ActiveNetParams.ChunkSize
	chunk := bytes.Repeat([]byte{0x42}, int(chunkSize))
	if err := store.AddChunk(0, chunk, utils.HashH(chunk), nil, 0); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}

	// With the upper bound equal to one chunk, every derived recall byte
	// lands inside the stored chunk.
	mgr, workComplete := setupManager(t, store, true)
	if err := mgr.Start(testChainState(big.NewInt(1), chunkSize, chunkSize)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	select {
	case work := <-workComplete:
		if work.PoA.IsEmpty() {
			t.Fatal("recall block carries an empty proof of access")
		}
		if !bytes.Equal(work.PoA.Chunk, chunk) {
			t.Error("proof chunk differs from the stored chunk")
		}
		if err := store.ValidatePoA(work.PoA.ChunkOffset, work.PoA); err != nil {
			t.Errorf("proof of access rejected: %v", err)
		}
	case <-time.After(20 * time.Second):
		t.Fatal("no block mined within 20s")
	}
}

// TestStartStop starts a round that can never finish and checks the
// controller stays alive until told to stop, then winds everything down
// promptly.
func TestStartStop(t *testing.T) {
	impossible := new(big.Int).Sub(utils.MaxTarget, big.NewInt(1))
	mgr, workComplete := setupManager(t, nil, false)

	if err := mgr.Start(testChainState(impossible, 0, 0)); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case <-workComplete:
		t.Fatal("block mined against an impossible difficulty")
	case <-time.After(500 * time.Millisecond):
	}

	stopped := make(chan struct{})
	go func() {
		mgr.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("workers did not exit within 3s of Stop")
	}

	if err := mgr.Start(testChainState(impossible, 0, 0)); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	mgr.Stop()
}

// TestStaleSolutionRejected injects solutions carrying a dead session token
// and an evicted timestamp; neither may produce a block.
func TestStaleSolutionRejected(t *testing.T) {
	impossible := new(big.Int).Sub(utils.MaxTarget, big.NewInt(1))
	mgr, workComplete := setupManager(t, nil, false)

	if err := mgr.Start(testChainState(impossible, 0, 0)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()

	// Let the round come up so the session is published.
	deadline := time.Now().Add(5 * time.Second)
	for mgr.CurrentSessionID() == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if mgr.CurrentSessionID() == "" {
		t.Fatal("session never published")
	}

	nonce := utils.RandNonce()

	// Dead session token.
	mgr.reportSolution(&model.Solution{
		Nonce:        nonce[:],
		H0:           utils.HashH([]byte("h0")),
		Timestamp:    time.Now().Unix(),
		SolutionHash: utils.HashH([]byte("hash")),
		SessionID:    "s-deadbeefdeadbeef",
	})

	// Live session, unknown candidate timestamp.
	mgr.reportSolution(&model.Solution{
		Nonce:        nonce[:],
		H0:           utils.HashH([]byte("h0")),
		Timestamp:    1,
		SolutionHash: utils.HashH([]byte("hash")),
		SessionID:    mgr.CurrentSessionID(),
	})

	select {
	case <-workComplete:
		t.Fatal("stale solution produced a block")
	case <-time.After(time.Second):
	}
}
