package model

import (
	"github.com/weavesuite/weave-mining-server/utils"
)

// PoA is the proof of access for a recall byte: the chunk containing it plus
// the merkle path tying the chunk to the weave. An empty PoA is only valid
// when the weave is too small to support recall.
type PoA struct {
	Chunk         []byte
	ChunkOffset   int64
	DataPath      []utils.Hash
	DataPathIndex uint64
	DataRoot      utils.Hash
}

// IsEmpty reports whether the proof carries no chunk.
func (p *PoA) IsEmpty() bool {
	return p == nil || len(p.Chunk) == 0
}

// GetChunk returns the proof's chunk, nil for an empty proof. Safe on a nil
// receiver, which stands in for the empty proof throughout the hashing
// paths.
func (p *PoA) GetChunk() []byte {
	if p == nil {
		return nil
	}
	return p.Chunk
}

// Copy returns a deep copy.
func (p *PoA) Copy() *PoA {
	if p == nil {
		return nil
	}
	dup := *p
	dup.Chunk = append([]byte(nil), p.Chunk...)
	dup.DataPath = append([]utils.Hash(nil), p.DataPath...)
	return &dup
}

// EmptyPoA is the canonical proof for the small-weave path.
var EmptyPoA = &PoA{}
