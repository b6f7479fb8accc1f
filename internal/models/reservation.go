package models

import (
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"
)

// Reservation 库存预占记录。归属创建它的报价单，引用（不拥有）库存批次。
// 状态机：active → consumed（终态）或 active → released（终态）。
// 过期只代表逻辑上不可消耗，状态仍需由清扫任务显式迁移为 released。
type Reservation struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                             // 主键
	StockLotID     uint      `gorm:"not null;index" json:"stock_lot_id"`                               // 批次ID
	QuoteID        uint      `gorm:"not null;index:idx_reservation_quote_status" json:"quote_id"`      // 报价单ID
	Quantity       int64     `gorm:"not null" json:"quantity"`                                         // 预占数量
	Status         string    `gorm:"type:varchar(16);not null;index:idx_reservation_quote_status;index:idx_reservation_status_expiry" json:"status"` // 状态
	ExpiresAt      time.Time `gorm:"not null;index:idx_reservation_status_expiry" json:"expires_at"`   // 过期时间
	ReleasedReason string    `gorm:"type:varchar(32);not null;default:''" json:"released_reason"`      // 释放原因
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                          // 创建时间
	UpdatedAt      time.Time `json:"updated_at"`                                                       // 更新时间

	StockLot *StockLot `gorm:"foreignKey:StockLotID" json:"stock_lot,omitempty"` // 关联批次
}

// TableName 指定表名
func (Reservation) TableName() string {
	return "stock_reservations"
}

// Active 判断预占是否处于活动状态
func (r *Reservation) Active() bool {
	return r != nil && r.Status == constants.ReservationStatusActive
}

// ExpiredAt 判断预占在给定时刻是否已过期（仅对活动预占有意义）
func (r *Reservation) ExpiredAt(now time.Time) bool {
	if r == nil {
		return false
	}
	return r.ExpiresAt.Before(now)
}
