package spora

import (
	"errors"
	"math/big"

	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/utils"
)

// Various error messages to mark solutions invalid. These are private to
// keep protocol-specific rejection reasons from being referenced in the
// remainder of the codebase; callers only need to know the solution failed.
var (
	errLowDifficulty = errors.New("solution hash does not exceed the difficulty")
	errUnexpectedPoA = errors.New("non-empty proof of access for a weave too small to recall")
	errPoARejected   = errors.New("proof of access rejected")
)

// AccessProver validates a proof of access against the recall byte. The
// chunk store implements it over the block index it carries.
type AccessProver interface {
	ValidatePoA(recallByte int64, poa *model.PoA) error
}

// ValidateArgs carries everything needed to re-derive a claimed solution.
type ValidateArgs struct {
	BDS        []byte
	Nonce      []byte
	Timestamp  int64
	Height     int64
	Diff       *big.Int
	PrevBlock  utils.Hash
	UpperBound int64
	PoA        *model.PoA
}

// ValidateSolution re-derives a claimed solution and checks it clears the
// difficulty. The derivation mirrors the mining path exactly:
//
//	H0            = hash(nonce || BDS)
//	solution hash = hash(H0 || prevH || be(ts) || poa.chunk)
//
// A solution is valid iff the hash, read as a big-endian 256-bit integer,
// numerically exceeds the difficulty (the linear form; the legacy
// leading-zeros form predates the heights this implementation targets), and
// the proof of access covers the re-derived recall byte. When the weave is
// too small to recall, the empty proof is the only valid one.
//
// Returns the re-derived solution hash on success.
func ValidateSolution(hasher Hasher, prover AccessProver, args *ValidateArgs) (utils.Hash, error) {
	h0 := hasher.Hash(H0Preimage(args.Nonce, args.BDS))

	solutionHash := hasher.Hash(SolutionPreimage(h0, args.PrevBlock, args.Timestamp, args.PoA.GetChunk()))

	if utils.HashToBig(solutionHash).Cmp(args.Diff) <= 0 {
		return utils.InvalidHash, errLowDifficulty
	}

	recallByte, err := RecallByte(h0, args.PrevBlock, args.UpperBound)
	if err != nil {
		if errors.Is(err, ErrWeaveTooSmall) {
			if !args.PoA.IsEmpty() {
				return utils.InvalidHash, errUnexpectedPoA
			}
			return solutionHash, nil
		}
		return utils.InvalidHash, err
	}

	if err := prover.ValidatePoA(recallByte, args.PoA); err != nil {
		return utils.InvalidHash, errPoARejected
	}

	return solutionHash, nil
}
