package service

import (
	"errors"
	"strings"
)

// 库存引擎统一错误
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrWarehouseNotFound  = errors.New("warehouse not found")
	ErrStockLotNotFound   = errors.New("stock lot not found")
	ErrStockLotNotEmpty   = errors.New("stock lot not empty")
	ErrQuoteNotFound      = errors.New("quote not found")
	ErrQuoteEmpty         = errors.New("quote has no lines")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrReservationExpired = errors.New("reservation expired")
	ErrInvariantViolation = errors.New("stock invariant violation")
	ErrLockTimeout        = errors.New("stock lock wait timeout")
)

// translateLockError 识别数据库锁等待超时/忙碌错误并翻译为可重试的 ErrLockTimeout。
// 其他错误原样返回。
func translateLockError(err error) error {
	if err == nil {
		return nil
	}
	message := strings.ToLower(err.Error())
	switch {
	case strings.Contains(message, "lock timeout"),
		strings.Contains(message, "could not obtain lock"),
		strings.Contains(message, "canceling statement due to lock"),
		strings.Contains(message, "database is locked"),
		strings.Contains(message, "database table is locked"):
		return errors.Join(ErrLockTimeout, err)
	default:
		return err
	}
}
