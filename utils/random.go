package utils

import (
	"crypto/rand"
)

// NonceSize is the byte length of a mining nonce and of each RandomX seed
// nonce.
const NonceSize = 32

// RandNonce returns a cryptographically random mining nonce.
func RandNonce() [NonceSize]byte {
	var nonce [NonceSize]byte
	_, err := rand.Read(nonce[:])
	if err != nil {
		// crypto/rand never fails on the supported platforms; if it
		// does, mining with a predictable nonce is worse than dying.
		panic(err)
	}
	return nonce
}
