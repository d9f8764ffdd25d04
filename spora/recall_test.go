package spora

import (
	"testing"

	"github.com/weavesuite/weave-mining-server/utils"
)

func repeatedHash(b byte) utils.Hash {
	var h utils.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

// TestRecallByteGoldenVectors pins the derivation to reference values. A
// change in any of these numbers is a consensus break, not a refactor.
func TestRecallByteGoldenVectors(t *testing.T) {
	tests := []struct {
		name       string
		h0         utils.Hash
		prevH      utils.Hash
		upperBound int64
		want       int64
	}{
		{
			name:       "vector_1",
			h0:         repeatedHash(0x01),
			prevH:      repeatedHash(0x02),
			upperBound: 1 << 30,
			want:       270163502,
		},
		{
			name:       "vector_2",
			h0:         repeatedHash(0xab),
			prevH:      repeatedHash(0xcd),
			upperBound: 1 << 30,
			want:       985226240,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := RecallByte(test.h0, test.prevH, test.upperBound)
			if err != nil {
				t.Fatalf("RecallByte returned error: %v", err)
			}
			if got != test.want {
				t.Errorf("RecallByte = %v, want %v", got, test.want)
			}
		})
	}
}

func TestRecallByteWeaveTooSmall(t *testing.T) {
	// Upper bound small enough that searchSpace/subspaces rounds to zero.
	_, err := RecallByte(repeatedHash(0x01), repeatedHash(0x02), 1024)
	if err != ErrWeaveTooSmall {
		t.Errorf("expected ErrWeaveTooSmall, got %v", err)
	}

	_, err = RecallByte(repeatedHash(0x01), repeatedHash(0x02), 0)
	if err != ErrWeaveTooSmall {
		t.Errorf("expected ErrWeaveTooSmall for empty weave, got %v", err)
	}
}

// TestRecallByteRange checks that for many pseudo-random inputs the derived
// byte stays inside [0, upperBound) and that re-derivation is bit-for-bit
// stable.
func TestRecallByteRange(t *testing.T) {
	upperBounds := []int64{1 << 20, 1 << 24, 1 << 30, (1 << 30) + 12345}

	h0 := utils.HashH([]byte("seed-h0"))
	prevH := utils.HashH([]byte("seed-prev"))

	for _, upperBound := range upperBounds {
		for i := 0; i < 200; i++ {
			h0 = utils.HashH(h0[:])

			got, err := RecallByte(h0, prevH, upperBound)
			if err != nil {
				t.Fatalf("RecallByte(%v) returned error: %v", upperBound, err)
			}
			if got < 0 || got >= upperBound {
				t.Fatalf("recall byte %v outside [0, %v)", got, upperBound)
			}

			again, err := RecallByte(h0, prevH, upperBound)
			if err != nil || again != got {
				t.Fatalf("re-derivation differs: %v vs %v (err %v)", got, again, err)
			}
		}
	}
}

func TestSearchSubspaceSize(t *testing.T) {
	if got := SearchSubspaceSize(0); got != 0 {
		t.Errorf("SearchSubspaceSize(0) = %v, want 0", got)
	}
	if got := SearchSubspaceSize(1 << 30); got != 104857 {
		t.Errorf("SearchSubspaceSize(2^30) = %v, want 104857", got)
	}
}
