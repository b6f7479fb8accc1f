package repository

import "time"

// StockLotListFilter 查询库存批次列表的过滤条件
type StockLotListFilter struct {
	Page           int
	PageSize       int
	ProductID      uint
	WarehouseID    uint
	LotCode        string
	OnlyAvailable  bool // 仅返回 available_qty > 0 的批次
	IncludeRetired bool // 包含已软删除（退役）的批次
}

// LedgerListFilter 查询库存台账流水的过滤条件
type LedgerListFilter struct {
	Page        int
	PageSize    int
	StockLotID  uint
	Kind        string
	DocumentRef string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// ReservationListFilter 查询预占记录的过滤条件
type ReservationListFilter struct {
	Page       int
	PageSize   int
	QuoteID    uint
	StockLotID uint
	Status     string
}
