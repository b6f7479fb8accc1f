package service

import (
	"strings"
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/logger"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockService 库存主数据操作：采购入库、更正调整、盘点、采购冲销与快照查询。
// 所有改变 total 的路径都在同一事务内写台账流水，并在提交前复核数量不变量。
type StockService struct {
	lotRepo       repository.StockLotRepository
	ledgerRepo    repository.StockLedgerRepository
	productRepo   repository.ProductRepository
	warehouseRepo repository.WarehouseRepository
	alerter       *LowStockAlerter
}

// NewStockService 创建库存服务
func NewStockService(
	lotRepo repository.StockLotRepository,
	ledgerRepo repository.StockLedgerRepository,
	productRepo repository.ProductRepository,
	warehouseRepo repository.WarehouseRepository,
	alerter *LowStockAlerter,
) *StockService {
	return &StockService{
		lotRepo:       lotRepo,
		ledgerRepo:    ledgerRepo,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		alerter:       alerter,
	}
}

// ReceiveStockInput 采购入库参数
type ReceiveStockInput struct {
	ProductID      uint
	WarehouseID    uint
	LotCode        string
	ExpirationDate *time.Time
	Quantity       int64
	UnitCost       *models.Money
	DocumentRef    string
	ActorID        uint
}

// ReceiveStock 确认采购后的入库：首次收货创建批次，之后累加 total 与 available。
func (s *StockService) ReceiveStock(input ReceiveStockInput) (*models.StockLot, error) {
	if input.Quantity <= 0 {
		return nil, ErrInsufficientStock
	}
	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	warehouse, err := s.warehouseRepo.GetByID(input.WarehouseID)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, ErrWarehouseNotFound
	}

	documentRef := strings.TrimSpace(input.DocumentRef)
	if documentRef == "" {
		documentRef = uuid.NewString()
	}

	var lot *models.StockLot
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		lotRepo := s.lotRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)

		existing, err := lotRepo.GetByIdentity(input.ProductID, input.WarehouseID, input.LotCode)
		if err != nil {
			return translateLockError(err)
		}
		if existing == nil {
			existing = &models.StockLot{
				ProductID:      input.ProductID,
				WarehouseID:    input.WarehouseID,
				LotCode:        strings.TrimSpace(input.LotCode),
				ExpirationDate: input.ExpirationDate,
			}
			if err := lotRepo.Create(existing); err != nil {
				return err
			}
		}

		// 锁定后重读当前值，作为台账 before 基准
		locked, err := lotRepo.LockByID(existing.ID)
		if err != nil {
			return translateLockError(err)
		}
		if locked == nil {
			return ErrStockLotNotFound
		}

		affected, err := lotRepo.AdjustTotal(locked.ID, input.Quantity)
		if err != nil {
			return translateLockError(err)
		}
		if affected == 0 {
			return ErrInsufficientStock
		}

		entry := &models.StockLedgerEntry{
			StockLotID:     locked.ID,
			Kind:           constants.LedgerKindReceipt,
			Delta:          input.Quantity,
			QuantityBefore: locked.TotalQty,
			QuantityAfter:  locked.TotalQty + input.Quantity,
			UnitCost:       input.UnitCost,
			DocumentRef:    documentRef,
			ActorID:        input.ActorID,
		}
		if err := ledgerRepo.Append(entry); err != nil {
			return err
		}

		lot, err = s.verifyInvariant(lotRepo, locked.ID, "receive_stock")
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("stock_received",
		"stock_lot_id", lot.ID,
		"product_id", input.ProductID,
		"warehouse_id", input.WarehouseID,
		"quantity", input.Quantity,
		"document_ref", documentRef,
	)
	return lot, nil
}

// AdjustStock 库存更正（delta 正负均可）。任何会导致 total 或 available
// 变负的调整都以 ErrInsufficientStock 硬失败，绝不静默截断。
func (s *StockService) AdjustStock(lotID uint, delta int64, documentRef string, actorID uint) (*models.StockLot, error) {
	if delta == 0 {
		return nil, ErrInsufficientStock
	}
	kind := constants.LedgerKindAdjustmentIn
	if delta < 0 {
		kind = constants.LedgerKindAdjustmentOut
	}
	documentRef = strings.TrimSpace(documentRef)
	if documentRef == "" {
		documentRef = uuid.NewString()
	}

	var lot *models.StockLot
	var productID uint
	var warehouseID uint
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		lotRepo := s.lotRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)

		locked, err := lotRepo.LockByID(lotID)
		if err != nil {
			return translateLockError(err)
		}
		if locked == nil {
			return ErrStockLotNotFound
		}
		productID = locked.ProductID
		warehouseID = locked.WarehouseID

		affected, err := lotRepo.AdjustTotal(locked.ID, delta)
		if err != nil {
			return translateLockError(err)
		}
		if affected == 0 {
			return ErrInsufficientStock
		}

		entry := &models.StockLedgerEntry{
			StockLotID:     locked.ID,
			Kind:           kind,
			Delta:          delta,
			QuantityBefore: locked.TotalQty,
			QuantityAfter:  locked.TotalQty + delta,
			DocumentRef:    documentRef,
			ActorID:        actorID,
		}
		if err := ledgerRepo.Append(entry); err != nil {
			return err
		}

		lot, err = s.verifyInvariant(lotRepo, locked.ID, "adjust_stock")
		return err
	})
	if err != nil {
		return nil, err
	}

	if delta < 0 {
		s.alerter.Check(s.lotRepo, productID, &warehouseID)
	}
	return lot, nil
}

// RecountStock 盘点更正：把 total 校正到实盘数量。这是唯一允许截断的路径 ——
// 实盘数低于在途预占量时只降到预占量地板并告警，避免把 available 打成负数。
func (s *StockService) RecountStock(lotID uint, countedTotal int64, documentRef string, actorID uint) (*models.StockLot, bool, error) {
	if countedTotal < 0 {
		return nil, false, ErrInsufficientStock
	}
	documentRef = strings.TrimSpace(documentRef)
	if documentRef == "" {
		documentRef = uuid.NewString()
	}

	var lot *models.StockLot
	clamped := false
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		lotRepo := s.lotRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)

		locked, err := lotRepo.LockByID(lotID)
		if err != nil {
			return translateLockError(err)
		}
		if locked == nil {
			return ErrStockLotNotFound
		}

		target := countedTotal
		if target < locked.ReservedQty {
			target = locked.ReservedQty
			clamped = true
			logger.Warnw("stock_recount_clamped_to_reserved",
				"stock_lot_id", locked.ID,
				"counted_total", countedTotal,
				"reserved_qty", locked.ReservedQty,
				"document_ref", documentRef,
			)
		}

		delta := target - locked.TotalQty
		if delta == 0 {
			lot = locked
			return nil
		}
		kind := constants.LedgerKindAdjustmentIn
		if delta < 0 {
			kind = constants.LedgerKindAdjustmentOut
		}

		affected, err := lotRepo.AdjustTotal(locked.ID, delta)
		if err != nil {
			return translateLockError(err)
		}
		if affected == 0 {
			return ErrInsufficientStock
		}

		entry := &models.StockLedgerEntry{
			StockLotID:     locked.ID,
			Kind:           kind,
			Delta:          delta,
			QuantityBefore: locked.TotalQty,
			QuantityAfter:  target,
			DocumentRef:    documentRef,
			ActorID:        actorID,
		}
		if err := ledgerRepo.Append(entry); err != nil {
			return err
		}

		lot, err = s.verifyInvariant(lotRepo, locked.ID, "recount_stock")
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return lot, clamped, nil
}

// ReversePurchase 采购冲销：写补偿性 reversal 流水并扣减自由库存。
// 批次保留（可能归零）而非物理删除，台账历史保持完整。
func (s *StockService) ReversePurchase(lotID uint, quantity int64, documentRef string, actorID uint) (*models.StockLot, error) {
	if quantity <= 0 {
		return nil, ErrInsufficientStock
	}
	documentRef = strings.TrimSpace(documentRef)
	if documentRef == "" {
		documentRef = uuid.NewString()
	}

	var lot *models.StockLot
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		lotRepo := s.lotRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)

		locked, err := lotRepo.LockByID(lotID)
		if err != nil {
			return translateLockError(err)
		}
		if locked == nil {
			return ErrStockLotNotFound
		}

		affected, err := lotRepo.AdjustTotal(locked.ID, -quantity)
		if err != nil {
			return translateLockError(err)
		}
		if affected == 0 {
			return ErrInsufficientStock
		}

		entry := &models.StockLedgerEntry{
			StockLotID:     locked.ID,
			Kind:           constants.LedgerKindReversal,
			Delta:          -quantity,
			QuantityBefore: locked.TotalQty,
			QuantityAfter:  locked.TotalQty - quantity,
			DocumentRef:    documentRef,
			ActorID:        actorID,
		}
		if err := ledgerRepo.Append(entry); err != nil {
			return err
		}

		lot, err = s.verifyInvariant(lotRepo, locked.ID, "reverse_purchase")
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Infow("stock_purchase_reversed",
		"stock_lot_id", lot.ID,
		"quantity", quantity,
		"document_ref", documentRef,
	)
	return lot, nil
}

// RetireLot 退役归零批次（软删除）。有余量或在途预占时拒绝。
func (s *StockService) RetireLot(lotID uint) error {
	lot, err := s.lotRepo.GetByID(lotID)
	if err != nil {
		return err
	}
	if lot == nil {
		return ErrStockLotNotFound
	}
	affected, err := s.lotRepo.Retire(lotID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStockLotNotEmpty
	}
	logger.Infow("stock_lot_retired", "stock_lot_id", lotID)
	return nil
}

// GetLot 获取批次快照
func (s *StockService) GetLot(lotID uint) (*models.StockLot, error) {
	lot, err := s.lotRepo.GetByID(lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, ErrStockLotNotFound
	}
	return lot, nil
}

// ListLots 查询批次列表
func (s *StockService) ListLots(filter repository.StockLotListFilter) ([]models.StockLot, int64, error) {
	return s.lotRepo.List(filter)
}

// ListLedger 查询台账流水
func (s *StockService) ListLedger(filter repository.LedgerListFilter) ([]models.StockLedgerEntry, int64, error) {
	return s.ledgerRepo.List(filter)
}

// ProductAvailability 汇总商品可用量（仓库可选）
func (s *StockService) ProductAvailability(productID uint, warehouseID *uint) (int64, error) {
	return s.lotRepo.SumAvailableByProduct(productID, warehouseID)
}

// verifyInvariant 写后复核数量不变量。违反时记录严重告警并返回错误令事务回滚；
// 该错误不会作为业务语义透出给终端用户。
func (s *StockService) verifyInvariant(lotRepo repository.StockLotRepository, lotID uint, operation string) (*models.StockLot, error) {
	lot, err := lotRepo.GetByID(lotID)
	if err != nil {
		return nil, err
	}
	if lot == nil {
		return nil, ErrStockLotNotFound
	}
	if !lot.InvariantHolds() {
		logger.Errorw("stock_invariant_violation",
			"stock_lot_id", lot.ID,
			"operation", operation,
			"total_qty", lot.TotalQty,
			"available_qty", lot.AvailableQty,
			"reserved_qty", lot.ReservedQty,
		)
		return nil, ErrInvariantViolation
	}
	return lot, nil
}
