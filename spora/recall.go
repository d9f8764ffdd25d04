package spora

import (
	"errors"
	"math/big"

	"github.com/weavesuite/weave-mining-server/chaincfg"
	"github.com/weavesuite/weave-mining-server/utils"
)

// ErrWeaveTooSmall indicates the weave cannot support recall: the search
// space divided into subspaces leaves no room to pick a byte from. Mining
// then runs the degenerate small-weave path with an empty proof of access.
var ErrWeaveTooSmall = errors.New("weave too small for recall")

// SearchSpaceSize returns the fraction of the weave eligible for search in
// one round.
func SearchSpaceSize(upperBound int64) int64 {
	return upperBound / chaincfg.ActiveNetParams.SearchSpaceDivisor
}

// SearchSubspaceSize returns the per-subspace share of the search space.
// A zero result means the weave is too small for recall.
func SearchSubspaceSize(upperBound int64) int64 {
	return SearchSpaceSize(upperBound) / chaincfg.ActiveNetParams.SporaSubspacesCount
}

// RecallByte maps (H0, prevH, upperBound) to the byte offset of the weave a
// miner must prove access to. The derivation must be byte-identical between
// miner and verifier:
//
//  1. the low bits of H0 select one of the subspaces the weave is split into,
//  2. SHA-256(prevH || subspaceNumber) seeds a per-block rotation of the
//     searchable window inside that subspace,
//  3. SHA-256(H0) picks the byte inside the window.
//
// Returns ErrWeaveTooSmall when SearchSubspaceSize(upperBound) == 0.
func RecallByte(h0 utils.Hash, prevH utils.Hash, upperBound int64) (int64, error) {
	subspaces := chaincfg.ActiveNetParams.SporaSubspacesCount

	searchSubspaceSize := SearchSubspaceSize(upperBound)
	if searchSubspaceSize == 0 {
		return 0, ErrWeaveTooSmall
	}

	subspaceNumber := new(big.Int).Mod(
		new(big.Int).SetBytes(h0[:]),
		big.NewInt(subspaces),
	).Int64()

	evenSubspaceSize := upperBound / subspaces
	subspaceStart := subspaceNumber * evenSubspaceSize

	subspaceSize := upperBound - subspaceStart
	if evenSubspaceSize < subspaceSize {
		subspaceSize = evenSubspaceSize
	}

	// binary-minimal big-endian encoding of the subspace number, so that
	// the seed preimage matches the reference derivation exactly.
	seedPreimage := append(prevH.CloneBytes(), big.NewInt(subspaceNumber).Bytes()...)
	searchSubspaceSeed := new(big.Int).SetBytes(utils.HashB(seedPreimage))
	searchSubspaceStart := new(big.Int).Mod(searchSubspaceSeed, big.NewInt(subspaceSize)).Int64()

	searchSubspaceByte := new(big.Int).Mod(
		new(big.Int).SetBytes(utils.HashB(h0[:])),
		big.NewInt(searchSubspaceSize),
	).Int64()

	return subspaceStart + (searchSubspaceStart+searchSubspaceByte)%subspaceSize, nil
}
