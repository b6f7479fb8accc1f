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

// ReservationService 预占生命周期管理：创建、消耗、释放与过期清扫。
// 消耗是全有或全无的单事务操作；释放对每条预占独立提交，尽力而为。
type ReservationService struct {
	lotRepo         repository.StockLotRepository
	reservationRepo repository.ReservationRepository
	ledgerRepo      repository.StockLedgerRepository
}

// NewReservationService 创建预占服务
func NewReservationService(
	lotRepo repository.StockLotRepository,
	reservationRepo repository.ReservationRepository,
	ledgerRepo repository.StockLedgerRepository,
) *ReservationService {
	return &ReservationService{
		lotRepo:         lotRepo,
		reservationRepo: reservationRepo,
		ledgerRepo:      ledgerRepo,
	}
}

// ReserveOneTx 在调用方事务内对单个批次预占指定数量。
// CAS 失败时重读批次做一次本地复核：余量确实不足返回 ErrInsufficientStock，
// 余量充足说明输给了并发竞争，重试一次后仍失败则放弃（由外层整体回滚）。
func (s *ReservationService) ReserveOneTx(tx *gorm.DB, lotID, quoteID uint, qty int64, ttl time.Duration) (*models.Reservation, error) {
	if qty <= 0 {
		return nil, ErrInsufficientStock
	}
	lotRepo := s.lotRepo.WithTx(tx)
	reservationRepo := s.reservationRepo.WithTx(tx)

	for attempt := 0; attempt < 2; attempt++ {
		affected, err := lotRepo.Reserve(lotID, qty)
		if err != nil {
			return nil, translateLockError(err)
		}
		if affected > 0 {
			reservation := &models.Reservation{
				StockLotID: lotID,
				QuoteID:    quoteID,
				Quantity:   qty,
				Status:     constants.ReservationStatusActive,
				ExpiresAt:  time.Now().Add(ttl),
			}
			if err := reservationRepo.Create(reservation); err != nil {
				return nil, err
			}
			if _, err := s.verifyLotInvariant(lotRepo, lotID, "reserve_stock"); err != nil {
				return nil, err
			}
			return reservation, nil
		}

		lot, err := lotRepo.GetByID(lotID)
		if err != nil {
			return nil, err
		}
		if lot == nil || lot.AvailableQty < qty {
			return nil, ErrInsufficientStock
		}
		// 余量充足但 CAS 未命中：输给并发写，循环重试一次
	}
	return nil, ErrInsufficientStock
}

// ConsumeAll 消耗报价单的全部活动预占（成交确认）。单事务全有或全无：
// 任一预占已过期或任一批次 CAS 失败都整体回滚。没有活动预占时返回
// (false, nil) 幂等空操作，这让重复确认天然安全。
func (s *ReservationService) ConsumeAll(quoteID uint, documentRef string, actorID uint) (bool, error) {
	documentRef = strings.TrimSpace(documentRef)
	if documentRef == "" {
		documentRef = uuid.NewString()
	}

	consumed := false
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		lotRepo := s.lotRepo.WithTx(tx)
		reservationRepo := s.reservationRepo.WithTx(tx)
		ledgerRepo := s.ledgerRepo.WithTx(tx)

		reservations, err := reservationRepo.LockActiveByQuote(quoteID)
		if err != nil {
			return translateLockError(err)
		}
		if len(reservations) == 0 {
			return nil
		}

		now := time.Now()
		for i := range reservations {
			if reservations[i].ExpiredAt(now) {
				return ErrReservationExpired
			}
		}

		// 预占按批次聚合后按批次 id 升序加锁，与预占路径保持一致的锁序
		lots, err := s.lockLotsForReservations(lotRepo, reservations)
		if err != nil {
			return err
		}

		for i := range reservations {
			reservation := &reservations[i]
			lot, ok := lots[reservation.StockLotID]
			if !ok {
				return ErrStockLotNotFound
			}

			affected, err := lotRepo.Consume(lot.ID, reservation.Quantity)
			if err != nil {
				return translateLockError(err)
			}
			if affected == 0 {
				logger.Errorw("stock_consume_cas_failed",
					"stock_lot_id", lot.ID,
					"reservation_id", reservation.ID,
					"quantity", reservation.Quantity,
				)
				return ErrInvariantViolation
			}

			entry := &models.StockLedgerEntry{
				StockLotID:     lot.ID,
				Kind:           constants.LedgerKindReserveConsume,
				Delta:          -reservation.Quantity,
				QuantityBefore: lot.TotalQty,
				QuantityAfter:  lot.TotalQty - reservation.Quantity,
				DocumentRef:    documentRef,
				ActorID:        actorID,
			}
			if err := ledgerRepo.Append(entry); err != nil {
				return err
			}
			// 同一批次的多条预占共享事务内快照，滚动维护 before/after
			lot.TotalQty -= reservation.Quantity
			lot.ReservedQty -= reservation.Quantity
			lots[lot.ID] = lot

			marked, err := reservationRepo.MarkConsumed(reservation.ID)
			if err != nil {
				return err
			}
			if marked == 0 {
				return ErrInvariantViolation
			}
		}

		for lotID := range lots {
			if _, err := s.verifyLotInvariant(lotRepo, lotID, "consume_all"); err != nil {
				return err
			}
		}
		consumed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if consumed {
		logger.Infow("stock_reservations_consumed",
			"quote_id", quoteID,
			"document_ref", documentRef,
		)
	}
	return consumed, nil
}

// ReleaseAll 释放报价单的全部活动预占（放弃报价）。每条预占独立事务，
// 单条失败记录日志后继续处理其余，返回成功释放的条数。
func (s *ReservationService) ReleaseAll(quoteID uint, reason string) (int, error) {
	reservations, err := s.reservationRepo.ListActiveByQuote(quoteID)
	if err != nil {
		return 0, err
	}
	released := 0
	for i := range reservations {
		if err := s.releaseOne(&reservations[i], reason); err != nil {
			logger.Warnw("stock_release_failed",
				"reservation_id", reservations[i].ID,
				"quote_id", quoteID,
				"error", err,
			)
			continue
		}
		released++
	}
	if released > 0 {
		logger.Infow("stock_reservations_released",
			"quote_id", quoteID,
			"released", released,
			"reason", reason,
		)
	}
	return released, nil
}

// ReleaseExpired 全局清扫：释放所有已过期的活动预占。清扫任务周期调用。
func (s *ReservationService) ReleaseExpired(now time.Time, limit int) (int, error) {
	expired, err := s.reservationRepo.ListExpired(now, limit)
	if err != nil {
		return 0, err
	}
	released := 0
	for i := range expired {
		if err := s.releaseOne(&expired[i], constants.ReleaseReasonExpired); err != nil {
			logger.Warnw("stock_sweep_release_failed",
				"reservation_id", expired[i].ID,
				"quote_id", expired[i].QuoteID,
				"error", err,
			)
			continue
		}
		released++
	}
	if released > 0 {
		logger.Infow("stock_expired_reservations_swept", "released", released)
	}
	return released, nil
}

// ReleaseExpiredByQuote 释放指定报价单中已过期的活动预占（超时任务使用）。
// 未过期的预占不动，避免延迟任务误伤刚被续期的预占。
func (s *ReservationService) ReleaseExpiredByQuote(quoteID uint, now time.Time) (int, error) {
	reservations, err := s.reservationRepo.ListActiveByQuote(quoteID)
	if err != nil {
		return 0, err
	}
	released := 0
	for i := range reservations {
		if !reservations[i].ExpiredAt(now) {
			continue
		}
		if err := s.releaseOne(&reservations[i], constants.ReleaseReasonExpired); err != nil {
			logger.Warnw("stock_timeout_release_failed",
				"reservation_id", reservations[i].ID,
				"quote_id", quoteID,
				"error", err,
			)
			continue
		}
		released++
	}
	return released, nil
}

// releaseOne 在独立事务内释放单条预占。先迁移状态再归还库存：
// 0 行状态迁移说明已被并发消耗或释放，直接视为成功跳过。
func (s *ReservationService) releaseOne(reservation *models.Reservation, reason string) error {
	return models.DB.Transaction(func(tx *gorm.DB) error {
		lotRepo := s.lotRepo.WithTx(tx)
		reservationRepo := s.reservationRepo.WithTx(tx)

		marked, err := reservationRepo.MarkReleased(reservation.ID, reason)
		if err != nil {
			return err
		}
		if marked == 0 {
			return nil
		}

		affected, err := lotRepo.Release(reservation.StockLotID, reservation.Quantity)
		if err != nil {
			return translateLockError(err)
		}
		if affected == 0 {
			logger.Errorw("stock_release_cas_failed",
				"stock_lot_id", reservation.StockLotID,
				"reservation_id", reservation.ID,
				"quantity", reservation.Quantity,
			)
			return ErrInvariantViolation
		}

		_, err = s.verifyLotInvariant(lotRepo, reservation.StockLotID, "release_reservation")
		return err
	})
}

// ListReservations 查询预占记录列表
func (s *ReservationService) ListReservations(filter repository.ReservationListFilter) ([]models.Reservation, int64, error) {
	return s.reservationRepo.List(filter)
}

// lockLotsForReservations 按预占涉及的批次去重后按 id 升序加锁
func (s *ReservationService) lockLotsForReservations(lotRepo repository.StockLotRepository, reservations []models.Reservation) (map[uint]*models.StockLot, error) {
	seen := make(map[uint]bool, len(reservations))
	ids := make([]uint, 0, len(reservations))
	for i := range reservations {
		if !seen[reservations[i].StockLotID] {
			seen[reservations[i].StockLotID] = true
			ids = append(ids, reservations[i].StockLotID)
		}
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}

	lots := make(map[uint]*models.StockLot, len(ids))
	for _, id := range ids {
		lot, err := lotRepo.LockByID(id)
		if err != nil {
			return nil, translateLockError(err)
		}
		if lot == nil {
			return nil, ErrStockLotNotFound
		}
		lots[id] = lot
	}
	return lots, nil
}

// verifyLotInvariant 写后复核批次数量不变量
func (s *ReservationService) verifyLotInvariant(lotRepo repository.StockLotRepository, lotID uint, operation string) (*models.StockLot, error) {
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
