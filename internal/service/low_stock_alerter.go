package service

import (
	"context"
	"fmt"
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/cache"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/logger"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/repository"
)

// LowStockAlerter 低库存告警器。可用量跌破阈值时发出 warn 日志，
// 同一商品/仓库在去重窗口内只告警一次（Redis SETNX）。
type LowStockAlerter struct {
	threshold    int64
	dedupeWindow time.Duration
}

// NewLowStockAlerter 创建低库存告警器
func NewLowStockAlerter(threshold int64, dedupeWindow time.Duration) *LowStockAlerter {
	if threshold < 0 {
		threshold = constants.DefaultLowStockThreshold
	}
	if dedupeWindow <= 0 {
		dedupeWindow = time.Duration(constants.DefaultAlertDedupeMinutes) * time.Minute
	}
	return &LowStockAlerter{threshold: threshold, dedupeWindow: dedupeWindow}
}

// Check 检查商品在仓库（warehouseID 为空代表全部仓库）的可用量并按需告警。
// 告警失败只记录日志，不影响业务操作。
func (a *LowStockAlerter) Check(lotRepo repository.StockLotRepository, productID uint, warehouseID *uint) {
	if a == nil || lotRepo == nil || productID == 0 || a.threshold <= 0 {
		return
	}
	available, err := lotRepo.SumAvailableByProduct(productID, warehouseID)
	if err != nil {
		logger.Warnw("stock_low_stock_check_failed", "product_id", productID, "error", err)
		return
	}
	if available >= a.threshold {
		return
	}

	key := fmt.Sprintf("lowstock:%d", productID)
	if warehouseID != nil && *warehouseID != 0 {
		key = fmt.Sprintf("lowstock:%d:%d", productID, *warehouseID)
	}
	acquired, err := cache.AcquireOnce(context.Background(), key, a.dedupeWindow)
	if err != nil {
		logger.Warnw("stock_low_stock_dedupe_failed", "product_id", productID, "error", err)
		return
	}
	if !acquired {
		return
	}
	logger.Warnw("stock_low_stock",
		"product_id", productID,
		"available", available,
		"threshold", a.threshold,
	)
}
