package models

import (
	"time"

	"gorm.io/gorm"
)

// Quote 报价单聚合。库存引擎只关心行项目与据此创建的预占集合，
// 商务字段（客户、价格等）由外围系统维护。
type Quote struct {
	ID          uint           `gorm:"primarykey" json:"id"`                                  // 主键
	QuoteNo     string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"quote_no"` // 报价单号
	WarehouseID *uint          `gorm:"index" json:"warehouse_id"`                             // 首选仓库（可空 = 任意仓库）
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt   time.Time      `json:"updated_at"`                                            // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间

	Lines []QuoteLine `gorm:"foreignKey:QuoteID" json:"lines,omitempty"` // 行项目
}

// TableName 指定表名
func (Quote) TableName() string {
	return "quotes"
}

// QuoteLine 报价单行项目
type QuoteLine struct {
	ID        uint      `gorm:"primarykey" json:"id"`               // 主键
	QuoteID   uint      `gorm:"not null;index" json:"quote_id"`     // 报价单ID
	ProductID uint      `gorm:"not null;index" json:"product_id"`   // 商品ID
	Quantity  int64     `gorm:"not null" json:"quantity"`           // 需求数量
	CreatedAt time.Time `json:"created_at"`                         // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                         // 更新时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (QuoteLine) TableName() string {
	return "quote_lines"
}
