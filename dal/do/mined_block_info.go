package do

import "time"

type MinedBlockInfo struct {
	ID           uint64 `gorm:"primaryKey"`
	Height       int64  `gorm:"not null;default:0;index"`
	IndepHash    string `gorm:"not null;type:varchar(64);index"`
	SolutionHash string `gorm:"not null;type:varchar(64);index"`
	Nonce        string `gorm:"not null;type:varchar(64)"`
	RecallByte   int64  `gorm:"not null;default:0"`
	TxNum        int    `gorm:"not null;default:0"`
	BlockSize    int64  `gorm:"not null;default:0"`
	WeaveSize    int64  `gorm:"not null;default:0"`
	Session      string `gorm:"not null;type:varchar(32);index:idx_session"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
