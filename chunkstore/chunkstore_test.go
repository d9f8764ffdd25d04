package chunkstore

import (
	"bytes"
	"testing"

	"github.com/weavesuite/weave-mining-server/chaincfg"
	"github.com/weavesuite/weave-mining-server/utils"
)

func testChunk(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, int(chaincfg.ActiveNetParams.ChunkSize))
}

func openTestStore(t *testing.T, useDataIndex bool) *ChunkStore {
	t.Helper()
	store, err := Open(&Config{
		DataDir:      t.TempDir(),
		UseDataIndex: useDataIndex,
		Writable:     true,
	})
	if err != nil {
		t.Fatalf("unable to open chunk store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func TestChunkRoundTrip(t *testing.T) {
	store := openTestStore(t, false)
	chunkSize := chaincfg.ActiveNetParams.ChunkSize

	chunk := testChunk(0x11)
	root := utils.HashH(chunk)
	if err := store.AddChunk(0, chunk, root, nil, 0); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}

	// Any offset inside the chunk resolves to it.
	for _, offset := range []int64{0, 1, chunkSize / 2, chunkSize - 1} {
		got, err := store.GetChunk(offset)
		if err != nil {
			t.Fatalf("GetChunk(%v): %v", offset, err)
		}
		if !bytes.Equal(got, chunk) {
			t.Fatalf("GetChunk(%v) returned wrong chunk", offset)
		}
	}

	// The offset one past the chunk misses.
	if _, err := store.GetChunk(chunkSize); err != ErrChunkNotFound {
		t.Errorf("expected ErrChunkNotFound, got %v", err)
	}
}

func TestChunkSizeEnforced(t *testing.T) {
	store := openTestStore(t, false)
	if err := store.AddChunk(0, []byte("short"), utils.ZeroHash, nil, 0); err == nil {
		t.Error("expected rejection of an undersized chunk")
	}
}

func TestDataIndexFallback(t *testing.T) {
	store := openTestStore(t, true)
	chunkSize := chaincfg.ActiveNetParams.ChunkSize

	chunk := testChunk(0x22)
	root := utils.HashH(chunk)
	if err := store.AddChunkToDataIndex(chunkSize, chunk, root, nil, 0); err != nil {
		t.Fatalf("AddChunkToDataIndex: %v", err)
	}

	got, err := store.GetChunk(chunkSize + 7)
	if err != nil {
		t.Fatalf("GetChunk via data index: %v", err)
	}
	if !bytes.Equal(got, chunk) {
		t.Fatal("data index returned wrong chunk")
	}
}

func TestGetPoA(t *testing.T) {
	store := openTestStore(t, false)
	chunkSize := chaincfg.ActiveNetParams.ChunkSize

	chunk := testChunk(0x33)
	root := utils.HashH(chunk)
	if err := store.AddChunk(0, chunk, root, nil, 0); err != nil {
		t.Fatalf("AddChunk: %v", err)
	}

	poa, err := store.GetPoA(chunkSize / 3)
	if err != nil {
		t.Fatalf("GetPoA: %v", err)
	}
	if poa.IsEmpty() || poa.ChunkOffset != 0 {
		t.Fatalf("unexpected proof: offset %v, empty %v", poa.ChunkOffset, poa.IsEmpty())
	}

	if err := store.ValidatePoA(chunkSize/3, poa); err != nil {
		t.Errorf("own proof rejected: %v", err)
	}

	t.Run("wrong_offset_rejected", func(t *testing.T) {
		if err := store.ValidatePoA(chunkSize+1, poa); err == nil {
			t.Error("proof accepted for a byte outside its chunk")
		}
	})

	t.Run("tampered_chunk_rejected", func(t *testing.T) {
		bad := poa.Copy()
		bad.Chunk[0] ^= 0xff
		if err := store.ValidatePoA(chunkSize/3, bad); err == nil {
			t.Error("tampered chunk accepted")
		}
	})

	t.Run("missing_poa", func(t *testing.T) {
		if _, err := store.GetPoA(chunkSize * 10); err != ErrPoANotFound {
			t.Errorf("expected ErrPoANotFound, got %v", err)
		}
	})
}
