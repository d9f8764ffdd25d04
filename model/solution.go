package model

import (
	"github.com/weavesuite/weave-mining-server/utils"
)

// Solution is a claimed proof reported by a hashing worker. The controller
// re-validates it before building a block; a worker finding one does not end
// the round by itself.
type Solution struct {
	Nonce        []byte
	H0           utils.Hash
	Timestamp    int64
	SolutionHash utils.Hash
	SessionID    string
}
