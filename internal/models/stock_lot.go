package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	// DefaultLotCode 未按批次管理的商品使用的默认批次编码
	DefaultLotCode = "DEFAULT"
)

// StockLot 库存批次表，(product_id, warehouse_id, lot_code) 唯一。
// 任何已提交的操作之后必须满足 total_qty == available_qty + reserved_qty，
// 且三者均不小于 0。
type StockLot struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                                                          // 主键
	ProductID      uint           `gorm:"not null;index;uniqueIndex:idx_stock_lot_identity" json:"product_id"`                           // 商品ID
	WarehouseID    uint           `gorm:"not null;index;uniqueIndex:idx_stock_lot_identity" json:"warehouse_id"`                         // 仓库ID
	LotCode        string         `gorm:"column:lot_code;type:varchar(64);not null;default:'DEFAULT';uniqueIndex:idx_stock_lot_identity" json:"lot_code"` // 批次编码
	TotalQty       int64          `gorm:"not null;default:0" json:"total_qty"`                                                           // 实物总量
	AvailableQty   int64          `gorm:"not null;default:0" json:"available_qty"`                                                       // 可预占量
	ReservedQty    int64          `gorm:"not null;default:0" json:"reserved_qty"`                                                        // 预占中数量
	ExpirationDate *time.Time     `gorm:"index" json:"expiration_date"`                                                                  // 批次到期日（可空）
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                                                       // 创建时间
	UpdatedAt      time.Time      `json:"updated_at"`                                                                                    // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                                                // 软删除（归零批次退役）

	Product   *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`     // 关联商品
	Warehouse *Warehouse `gorm:"foreignKey:WarehouseID" json:"warehouse,omitempty"` // 关联仓库
}

// TableName 指定表名
func (StockLot) TableName() string {
	return "stock_lots"
}

// InvariantHolds 校验数量不变量：total == available + reserved 且三者非负
func (l *StockLot) InvariantHolds() bool {
	if l == nil {
		return false
	}
	if l.TotalQty < 0 || l.AvailableQty < 0 || l.ReservedQty < 0 {
		return false
	}
	return l.TotalQty == l.AvailableQty+l.ReservedQty
}

// Empty 判断批次是否已归零且无在途预占
func (l *StockLot) Empty() bool {
	return l != nil && l.TotalQty == 0 && l.AvailableQty == 0 && l.ReservedQty == 0
}
