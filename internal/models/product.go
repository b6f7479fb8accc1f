package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品主档（库存引擎仅保留外键所需的精简字段）
type Product struct {
	ID        uint           `gorm:"primarykey" json:"id"`                               // 主键
	Code      string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`  // 商品编码
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`             // 商品名称
	Unit      string         `gorm:"type:varchar(32);not null;default:'unit'" json:"unit"` // 计量单位
	IsActive  bool           `gorm:"default:true;index" json:"is_active"`                // 是否启用
	CreatedAt time.Time      `json:"created_at"`                                         // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                         // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                     // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
