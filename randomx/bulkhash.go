package randomx

import (
	"encoding/binary"

	"github.com/weavesuite/weave-mining-server/utils"
)

// RecallFunc maps an H0 to a recall byte. The caller closes over the
// previous block hash and the search-space upper bound; returning an error
// aborts the batch (a too-small weave cannot be hashed against here).
type RecallFunc func(h0 utils.Hash) (int64, error)

// Dispatcher routes a derived (recall byte, H0, nonce) tuple toward the I/O
// stage. Implementations must not block indefinitely: a full downstream
// queue drops the tuple, losing only that nonce's effort.
type Dispatcher interface {
	Route(recallByte int64, h0 utils.Hash, nonce [utils.NonceSize]byte)
}

// BulkHashFast drives one batch of first-stage hashing. Starting from two
// seed nonces it derives a nonce per iteration, computes
// H0 = hash(nonce || BDS), maps H0 to a recall byte and hands the tuple to
// the dispatcher. Returns the number of recall bytes computed.
//
// The per-iteration nonce must be unpredictable to other miners but needs
// no coordination between batches; hashing the seeds with the iteration
// counter matches what the bulk primitive of the reference engine produces.
func BulkHashFast(h Engine, nonce1, nonce2 [utils.NonceSize]byte, bds []byte,
	recall RecallFunc, dispatcher Dispatcher, iterations int) (int, error) {

	seed := make([]byte, 2*utils.NonceSize+8)
	copy(seed, nonce1[:])
	copy(seed[utils.NonceSize:], nonce2[:])

	preimage := make([]byte, 0, utils.NonceSize+len(bds))

	computed := 0
	for i := 0; i < iterations; i++ {
		binary.BigEndian.PutUint64(seed[2*utils.NonceSize:], uint64(i))
		nonce := [utils.NonceSize]byte(utils.HashH(seed))

		preimage = append(preimage[:0], nonce[:]...)
		preimage = append(preimage, bds...)
		h0 := h.Hash(preimage)

		recallByte, err := recall(h0)
		if err != nil {
			return computed, err
		}

		dispatcher.Route(recallByte, h0, nonce)
		computed++
	}

	return computed, nil
}
