package randomx

import (
	"testing"

	"github.com/weavesuite/weave-mining-server/utils"
)

type recordingDispatcher struct {
	tuples []struct {
		recallByte int64
		h0         utils.Hash
		nonce      [utils.NonceSize]byte
	}
}

func (d *recordingDispatcher) Route(recallByte int64, h0 utils.Hash, nonce [utils.NonceSize]byte) {
	d.tuples = append(d.tuples, struct {
		recallByte int64
		h0         utils.Hash
		nonce      [utils.NonceSize]byte
	}{recallByte, h0, nonce})
}

func TestBulkHashFast(t *testing.T) {
	engine, err := New(&Config{Mode: ModeFake})
	if err != nil {
		t.Fatalf("unable to create fake engine: %v", err)
	}
	defer engine.Close()

	var nonce1, nonce2 [utils.NonceSize]byte
	nonce1[0] = 1
	nonce2[0] = 2
	bds := []byte("data segment")

	recall := func(h0 utils.Hash) (int64, error) {
		// Any deterministic mapping works for the test.
		return int64(h0[0]), nil
	}

	d1 := &recordingDispatcher{}
	computed, err := BulkHashFast(engine, nonce1, nonce2, bds, recall, d1, 16)
	if err != nil {
		t.Fatalf("BulkHashFast: %v", err)
	}
	if computed != 16 || len(d1.tuples) != 16 {
		t.Fatalf("computed %v tuples, dispatched %v, want 16", computed, len(d1.tuples))
	}

	// Same seeds, same batch: the nonce stream and H0s must repeat
	// exactly.
	d2 := &recordingDispatcher{}
	if _, err := BulkHashFast(engine, nonce1, nonce2, bds, recall, d2, 16); err != nil {
		t.Fatalf("BulkHashFast: %v", err)
	}
	for i := range d1.tuples {
		if d1.tuples[i] != d2.tuples[i] {
			t.Fatalf("tuple %v differs between identical batches", i)
		}
	}

	// Different seeds must produce a different nonce stream.
	nonce1[0] = 9
	d3 := &recordingDispatcher{}
	if _, err := BulkHashFast(engine, nonce1, nonce2, bds, recall, d3, 16); err != nil {
		t.Fatalf("BulkHashFast: %v", err)
	}
	same := 0
	for i := range d1.tuples {
		if d1.tuples[i].nonce == d3.tuples[i].nonce {
			same++
		}
	}
	if same == len(d1.tuples) {
		t.Fatal("nonce stream ignored the seed nonces")
	}

	// Each H0 must be the engine hash of nonce || BDS.
	for i, tuple := range d1.tuples {
		preimage := append(append([]byte{}, tuple.nonce[:]...), bds...)
		if want := engine.Hash(preimage); tuple.h0 != want {
			t.Fatalf("tuple %v: H0 mismatch", i)
		}
	}
}

func TestBulkHashFastAbortsOnRecallError(t *testing.T) {
	engine, err := New(&Config{Mode: ModeFake})
	if err != nil {
		t.Fatalf("unable to create fake engine: %v", err)
	}
	defer engine.Close()

	var nonce1, nonce2 [utils.NonceSize]byte
	boom := func(h0 utils.Hash) (int64, error) {
		return 0, errTest
	}

	d := &recordingDispatcher{}
	computed, err := BulkHashFast(engine, nonce1, nonce2, nil, boom, d, 16)
	if err != errTest {
		t.Fatalf("expected the recall error, got %v", err)
	}
	if computed != 0 || len(d.tuples) != 0 {
		t.Fatalf("aborted batch still dispatched %v tuples", len(d.tuples))
	}
}

var errTest = errorString("test error")

type errorString string

func (e errorString) Error() string { return string(e) }
