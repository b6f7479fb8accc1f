package constants

// 预占状态常量
const (
	ReservationStatusActive   = "active"
	ReservationStatusConsumed = "consumed"
	ReservationStatusReleased = "released"
)

// 预占释放原因常量
const (
	ReleaseReasonAbandoned = "quote_abandoned"
	ReleaseReasonExpired   = "reservation_expired"
	ReleaseReasonManual    = "manual"
)

// 台账流水类型常量
const (
	LedgerKindReceipt        = "receipt"
	LedgerKindReserveConsume = "reserve_consume"
	LedgerKindAdjustmentIn   = "adjustment_in"
	LedgerKindAdjustmentOut  = "adjustment_out"
	LedgerKindReversal       = "reversal"
)

// 报价单库存状态（派生，不落库）
const (
	QuoteStockStatusNone     = "none"
	QuoteStockStatusReserved = "reserved"
	QuoteStockStatusConsumed = "consumed"
	QuoteStockStatusReleased = "released"
)

// 异步任务类型常量
const (
	TaskQuoteTimeoutRelease = "stock:quote_timeout_release"
)

// 队列名称常量
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
)

// 库存引擎默认参数
const (
	DefaultReservationTTLHours     = 24
	DefaultSweepIntervalMinutes    = 5
	DefaultLowStockThreshold       = 10
	DefaultAlertDedupeMinutes      = 30
	DefaultLockTimeoutMilliseconds = 3000
)
