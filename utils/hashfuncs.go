package utils

import (
	"crypto/sha256"
	"math/big"

	"golang.org/x/crypto/sha3"
)

var InvalidHash Hash

func init() {
	for i := 0; i < HashSize; i++ {
		ZeroHash[i] = 0
		InvalidHash[i] = 0xFF
	}
}

// HashB calculates hash(b) and returns the resulting bytes.
func HashB(b []byte) []byte {
	hash := sha256.Sum256(b)
	return hash[:]
}

// HashH calculates hash(b) and returns the resulting bytes as a Hash.
func HashH(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// DoubleHashB calculates hash(hash(b)) and returns the resulting bytes.
func DoubleHashB(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:]
}

// DoubleHashH calculates hash(hash(b)) and returns the resulting bytes as a
// Hash.
func DoubleHashH(b []byte) Hash {
	first := sha256.Sum256(b)
	return Hash(sha256.Sum256(first[:]))
}

// ChainHash() is used where a chain identifier is required, such as the
// independent block hash. We use a hash function with 256-bit output to stay
// compatible with the Hash type.
func ChainHash(b []byte) Hash {
	return sha3.Sum256(b)
}

// HashToBig converts a Hash into a big.Int interpreted as a big-endian
// unsigned 256-bit integer. Solution hashes and difficulties compare in this
// form; a solution is valid iff HashToBig(solutionHash) > diff.
//
// Note that the input is a Hash ([32]byte) rather than a pointer, so the
// caller's copy is never modified.
func HashToBig(hash Hash) *big.Int {
	return new(big.Int).SetBytes(hash[:])
}

// MaxTarget is 2^256, one past the largest value a 256-bit hash can take.
var MaxTarget = new(big.Int).Lsh(big.NewInt(1), 256)
