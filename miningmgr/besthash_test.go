package miningmgr

import (
	"sync"
	"testing"

	"github.com/weavesuite/weave-mining-server/utils"
)

func hashWithLeadingByte(b byte) utils.Hash {
	var h utils.Hash
	h[0] = b
	return h
}

func TestBestHashMonotonic(t *testing.T) {
	r := &BestHashRegister{}

	if _, ok := r.Best(); ok {
		t.Fatal("fresh register should be empty")
	}

	if !r.Update(hashWithLeadingByte(0x10)) {
		t.Fatal("first update rejected")
	}
	if r.Update(hashWithLeadingByte(0x05)) {
		t.Fatal("farther hash accepted")
	}
	if !r.Update(hashWithLeadingByte(0x20)) {
		t.Fatal("closer hash rejected")
	}

	best, ok := r.Best()
	if !ok || best != hashWithLeadingByte(0x20) {
		t.Fatalf("best = %v", best)
	}
}

// TestBestHashConcurrent hammers the register from many goroutines; the
// final value must be the maximum regardless of interleaving.
func TestBestHashConcurrent(t *testing.T) {
	r := &BestHashRegister{}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 256; i++ {
				h := utils.HashH([]byte{byte(g), byte(i)})
				r.Update(h)
			}
		}(g)
	}
	wg.Wait()

	best, ok := r.Best()
	if !ok {
		t.Fatal("no best hash recorded")
	}
	for g := 0; g < 8; g++ {
		for i := 0; i < 256; i++ {
			h := utils.HashH([]byte{byte(g), byte(i)})
			if utils.HashToBig(h).Cmp(utils.HashToBig(best)) > 0 {
				t.Fatalf("hash %v beats recorded best %v", h, best)
			}
		}
	}
}
