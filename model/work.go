package model

import (
	"github.com/weavesuite/weave-mining-server/utils"
)

// WorkComplete is delivered to the parent subsystem when a round ends with a
// validated block.
type WorkComplete struct {
	CurrentBlockHash utils.Hash
	Block            *CandidateBlock
	MinedTxIDs       []utils.Hash
	BDS              []byte
	PoA              *PoA
}
