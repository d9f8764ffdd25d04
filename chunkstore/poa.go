package chunkstore

import (
	"errors"

	"github.com/weavesuite/weave-mining-server/model"
	"github.com/weavesuite/weave-mining-server/utils"
)

// GetPoA assembles the proof of access for a recall byte from the stored
// chunk and its indexed merkle material. Returns ErrPoANotFound when the
// store has neither the chunk nor its proof.
func (s *ChunkStore) GetPoA(recallByte int64) (*model.PoA, error) {
	chunkStart := ChunkStart(recallByte)

	rec, err := s.lookup(chunkStart)
	if err != nil {
		if errors.Is(err, ErrChunkNotFound) {
			return nil, ErrPoANotFound
		}
		return nil, err
	}

	chunk, err := s.readChunk(rec.filePos)
	if err != nil {
		if errors.Is(err, ErrChunkNotFound) {
			return nil, ErrPoANotFound
		}
		return nil, err
	}

	return &model.PoA{
		Chunk:         chunk,
		ChunkOffset:   chunkStart,
		DataPath:      append([]utils.Hash(nil), rec.dataPath...),
		DataPathIndex: rec.dataPathIndex,
		DataRoot:      rec.dataRoot,
	}, nil
}

// ValidatePoA checks a proof of access against the recall byte: the chunk
// must cover the byte, its merkle path must verify against the proof's data
// root, and when the store indexes the chunk the root must match the
// indexed one. Implements the access-prover surface of the solution
// validator.
func (s *ChunkStore) ValidatePoA(recallByte int64, poa *model.PoA) error {
	if poa.IsEmpty() {
		return errors.New("empty proof of access")
	}

	chunkStart := ChunkStart(recallByte)
	if poa.ChunkOffset != chunkStart {
		return errors.New("proof chunk does not cover the recall byte")
	}
	if recallByte < poa.ChunkOffset || recallByte >= poa.ChunkOffset+int64(len(poa.Chunk)) {
		return errors.New("recall byte outside the proof chunk")
	}

	leaf := utils.HashH(poa.Chunk)
	if !utils.VerifyMerklePath(leaf, poa.DataPath, poa.DataPathIndex, poa.DataRoot) {
		return errors.New("merkle path does not reach the data root")
	}

	// When this store indexes the chunk, pin the proof to the root the
	// block index recorded for it.
	if rec, err := s.lookup(chunkStart); err == nil {
		if !rec.dataRoot.IsEqual(&poa.DataRoot) {
			return errors.New("data root does not match the block index")
		}
	}

	return nil
}
