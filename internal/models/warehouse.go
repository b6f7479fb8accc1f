package models

import (
	"time"

	"gorm.io/gorm"
)

// Warehouse 仓库主档
type Warehouse struct {
	ID        uint           `gorm:"primarykey" json:"id"`                              // 主键
	Code      string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"` // 仓库编码
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`            // 仓库名称
	IsActive  bool           `gorm:"default:true;index" json:"is_active"`               // 是否启用
	CreatedAt time.Time      `json:"created_at"`                                        // 创建时间
	UpdatedAt time.Time      `json:"updated_at"`                                        // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                                    // 软删除时间
}

// TableName 指定表名
func (Warehouse) TableName() string {
	return "warehouses"
}
