package miningmgr

import (
	"context"
	"encoding/hex"

	"github.com/weavesuite/weave-mining-server/dal/dao"
	"github.com/weavesuite/weave-mining-server/dal/do"
	"github.com/weavesuite/weave-mining-server/model"
)

// persistMinedBlock records a mined block in the database. Persistence is
// best-effort bookkeeping: a failure is logged and the block still ships.
func (mgr *MiningManager) persistMinedBlock(block *model.CandidateBlock, sessionID string) {
	if mgr.cfg.Db == nil {
		return
	}

	var recallByte int64
	if block.PoA != nil {
		recallByte = block.PoA.ChunkOffset
	}

	info := &do.MinedBlockInfo{
		Height:       block.Height,
		IndepHash:    block.IndepHash.String(),
		SolutionHash: block.SolutionHash.String(),
		Nonce:        hex.EncodeToString(block.Nonce),
		RecallByte:   recallByte,
		TxNum:        len(block.TxIDs),
		BlockSize:    block.BlockSize,
		WeaveSize:    block.WeaveSize,
		Session:      sessionID,
	}

	minedBlockDAO := dao.GetMinedBlockInfoDAOImpl()
	if _, err := minedBlockDAO.Create(context.Background(), mgr.cfg.Db, info); err != nil {
		log.Errorf("Unable to record mined block %v: %v", block.IndepHash, err)
	}
}
