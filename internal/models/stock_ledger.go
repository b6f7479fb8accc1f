package models

import (
	"time"
)

// StockLedgerEntry 库存台账流水，只追加不更新不删除。
// 每一次 total_qty 变更必须在同一事务内写入恰好一条流水。
type StockLedgerEntry struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                        // 主键
	StockLotID     uint      `gorm:"not null;index" json:"stock_lot_id"`                          // 批次ID
	Kind           string    `gorm:"type:varchar(32);not null;index" json:"kind"`                 // 流水类型
	Delta          int64     `gorm:"not null" json:"delta"`                                       // 变化量（有符号）
	QuantityBefore int64     `gorm:"not null" json:"quantity_before"`                             // 变更前总量
	QuantityAfter  int64     `gorm:"not null" json:"quantity_after"`                              // 变更后总量
	UnitCost       *Money    `gorm:"type:decimal(20,2)" json:"unit_cost,omitempty"`               // 单位成本（入库/冲销时记录）
	DocumentRef    string    `gorm:"type:varchar(64);not null;default:'';index" json:"document_ref"` // 关联单据号
	ActorID        uint      `gorm:"not null;default:0" json:"actor_id"`                          // 操作人ID
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                     // 记账时间

	StockLot *StockLot `gorm:"foreignKey:StockLotID" json:"stock_lot,omitempty"` // 关联批次
}

// TableName 指定表名
func (StockLedgerEntry) TableName() string {
	return "stock_ledger_entries"
}
