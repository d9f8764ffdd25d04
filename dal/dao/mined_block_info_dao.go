package dao

import (
	"context"
	"errors"

	"github.com/weavesuite/weave-mining-server/dal/do"
	"github.com/weavesuite/weave-mining-server/errcode"

	"gorm.io/gorm"
)

type MinedBlockInfoDAO interface {
	Create(ctx context.Context, tx *gorm.DB, info *do.MinedBlockInfo) (int64, error)
	Get(ctx context.Context, tx *gorm.DB, page int, num int, positiveOrder bool) ([]*do.MinedBlockInfo, error)
	GetBlockNum(ctx context.Context, tx *gorm.DB) (int64, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*do.MinedBlockInfo, error)
	GetByHeight(ctx context.Context, tx *gorm.DB, height int64) ([]*do.MinedBlockInfo, error)
	GetBlocksHigherThanHeight(ctx context.Context, tx *gorm.DB, height int64) ([]*do.MinedBlockInfo, error)
}

type MinedBlockInfoDAOImpl struct{}

var minedBlockInfoDAO MinedBlockInfoDAO = &MinedBlockInfoDAOImpl{}

func GetMinedBlockInfoDAOImpl() MinedBlockInfoDAO {
	return minedBlockInfoDAO
}

func (m *MinedBlockInfoDAOImpl) Create(ctx context.Context, tx *gorm.DB, info *do.MinedBlockInfo) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	if info == nil {
		return 0, errors.New("nil mined block info when creating")
	}

	query := tx.Create(info)
	return query.RowsAffected, query.Error
}

func (m *MinedBlockInfoDAOImpl) Get(ctx context.Context, tx *gorm.DB, page int, num int, positiveOrder bool) ([]*do.MinedBlockInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := make([]*do.MinedBlockInfo, 0)
	if page <= 0 || num <= 0 {
		return res, nil
	}
	var query *gorm.DB
	if positiveOrder {
		query = tx.Model(&do.MinedBlockInfo{}).Offset((page - 1) * num).Limit(num).Find(&res)
	} else {
		query = tx.Model(&do.MinedBlockInfo{}).Order("id desc").Offset((page - 1) * num).Limit(num).Find(&res)
	}
	return res, query.Error
}

func (m *MinedBlockInfoDAOImpl) GetBlockNum(ctx context.Context, tx *gorm.DB) (int64, error) {
	if tx == nil {
		return 0, errcode.ErrNilGormDB
	}

	var count int64
	query := tx.Model(&do.MinedBlockInfo{}).Count(&count)
	return count, query.Error
}

func (m *MinedBlockInfoDAOImpl) GetAll(ctx context.Context, tx *gorm.DB) ([]*do.MinedBlockInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := make([]*do.MinedBlockInfo, 0)
	query := tx.Model(&do.MinedBlockInfo{}).Find(&res)
	return res, query.Error
}

func (m *MinedBlockInfoDAOImpl) GetByHeight(ctx context.Context, tx *gorm.DB, height int64) ([]*do.MinedBlockInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := make([]*do.MinedBlockInfo, 0)
	query := tx.Model(&do.MinedBlockInfo{}).Where("height = ?", height).Find(&res)
	return res, query.Error
}

func (m *MinedBlockInfoDAOImpl) GetBlocksHigherThanHeight(ctx context.Context, tx *gorm.DB, height int64) ([]*do.MinedBlockInfo, error) {
	if tx == nil {
		return nil, errcode.ErrNilGormDB
	}

	res := make([]*do.MinedBlockInfo, 0)
	query := tx.Model(&do.MinedBlockInfo{}).Where("height > ?", height).Find(&res)
	return res, query.Error
}
