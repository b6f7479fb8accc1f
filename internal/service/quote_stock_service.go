package service

import (
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/logger"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/queue"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/repository"

	"gorm.io/gorm"
)

// QuoteStockService 报价单与库存的协调层：多行全有或全无预占、
// 成交消耗、放弃释放与派生库存状态查询。
type QuoteStockService struct {
	quoteRepo       repository.QuoteRepository
	productRepo     repository.ProductRepository
	lotRepo         repository.StockLotRepository
	reservationRepo repository.ReservationRepository
	reservations    *ReservationService
	queueClient     *queue.Client
	reservationTTL  time.Duration
}

// NewQuoteStockService 创建报价单库存协调服务
func NewQuoteStockService(
	quoteRepo repository.QuoteRepository,
	productRepo repository.ProductRepository,
	lotRepo repository.StockLotRepository,
	reservationRepo repository.ReservationRepository,
	reservations *ReservationService,
	queueClient *queue.Client,
	reservationTTL time.Duration,
) *QuoteStockService {
	if reservationTTL <= 0 {
		reservationTTL = time.Duration(constants.DefaultReservationTTLHours) * time.Hour
	}
	return &QuoteStockService{
		quoteRepo:       quoteRepo,
		productRepo:     productRepo,
		lotRepo:         lotRepo,
		reservationRepo: reservationRepo,
		reservations:    reservations,
		queueClient:     queueClient,
		reservationTTL:  reservationTTL,
	}
}

// CreateQuote 创建报价单（连同行项目），行项目商品必须存在且数量为正
func (s *QuoteStockService) CreateQuote(quote *models.Quote) error {
	if quote == nil || len(quote.Lines) == 0 {
		return ErrQuoteEmpty
	}
	for i := range quote.Lines {
		if quote.Lines[i].Quantity <= 0 {
			return ErrInsufficientStock
		}
		product, err := s.productRepo.GetByID(quote.Lines[i].ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}
	}
	return s.quoteRepo.Create(quote)
}

// GetQuote 获取报价单（含行项目）
func (s *QuoteStockService) GetQuote(quoteID uint) (*models.Quote, error) {
	quote, err := s.quoteRepo.GetByID(quoteID)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, ErrQuoteNotFound
	}
	return quote, nil
}

// ReserveForQuote 为报价单的全部行项目预占库存，单事务全有或全无。
// 每行按到期日 FIFO 跨批次贪心分配，任一行凑不够整体回滚并返回
// ErrInsufficientStock。报价单已有活动预占时幂等成功（不叠加）。
// 提交成功后推送延迟释放任务，到期未成交由任务或清扫循环归还库存。
func (s *QuoteStockService) ReserveForQuote(quoteID uint) ([]models.Reservation, error) {
	quote, err := s.GetQuote(quoteID)
	if err != nil {
		return nil, err
	}
	if len(quote.Lines) == 0 {
		return nil, ErrQuoteEmpty
	}

	var created []models.Reservation
	alreadyReserved := false
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		lotRepo := s.lotRepo.WithTx(tx)
		reservationRepo := s.reservationRepo.WithTx(tx)

		active, err := reservationRepo.HasActiveByQuote(quote.ID)
		if err != nil {
			return err
		}
		if active {
			alreadyReserved = true
			return nil
		}

		for i := range quote.Lines {
			line := &quote.Lines[i]
			candidates, err := lotRepo.LockCandidates(line.ProductID, quote.WarehouseID)
			if err != nil {
				return translateLockError(err)
			}

			remaining := line.Quantity
			for j := range candidates {
				if remaining <= 0 {
					break
				}
				take := candidates[j].AvailableQty
				if take > remaining {
					take = remaining
				}
				if take <= 0 {
					continue
				}
				reservation, err := s.reservations.ReserveOneTx(tx, candidates[j].ID, quote.ID, take, s.reservationTTL)
				if err != nil {
					return err
				}
				created = append(created, *reservation)
				remaining -= take
			}
			if remaining > 0 {
				logger.Infow("stock_reserve_shortfall",
					"quote_id", quote.ID,
					"product_id", line.ProductID,
					"requested", line.Quantity,
					"short_by", remaining,
				)
				return ErrInsufficientStock
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if alreadyReserved {
		return s.reservationRepo.ListActiveByQuote(quoteID)
	}

	logger.Infow("stock_reserved_for_quote",
		"quote_id", quoteID,
		"reservations", len(created),
	)
	if err := s.queueClient.EnqueueQuoteTimeoutRelease(
		queue.QuoteTimeoutReleasePayload{QuoteID: quoteID},
		s.reservationTTL,
	); err != nil {
		// 任务推送失败不回滚预占，清扫循环会兜底释放
		logger.Warnw("stock_timeout_task_enqueue_failed", "quote_id", quoteID, "error", err)
	}
	return created, nil
}

// ConsumeForQuote 成交确认：消耗报价单全部活动预占。
// 返回 false 代表没有可消耗的预占（重复确认的幂等空操作）。
func (s *QuoteStockService) ConsumeForQuote(quoteID uint, documentRef string, actorID uint) (bool, error) {
	if _, err := s.GetQuote(quoteID); err != nil {
		return false, err
	}
	return s.reservations.ConsumeAll(quoteID, documentRef, actorID)
}

// ReleaseForQuote 放弃报价：尽力释放全部活动预占，返回释放条数
func (s *QuoteStockService) ReleaseForQuote(quoteID uint, reason string) (int, error) {
	if _, err := s.GetQuote(quoteID); err != nil {
		return 0, err
	}
	if reason == "" {
		reason = constants.ReleaseReasonAbandoned
	}
	return s.reservations.ReleaseAll(quoteID, reason)
}

// StockStatus 派生报价单库存状态：有活动预占为 reserved；否则看历史——
// 消耗过为 consumed，只释放过为 released，从未预占为 none。
func (s *QuoteStockService) StockStatus(quoteID uint) (string, []models.Reservation, error) {
	if _, err := s.GetQuote(quoteID); err != nil {
		return "", nil, err
	}
	reservations, err := s.reservationRepo.ListByQuote(quoteID)
	if err != nil {
		return "", nil, err
	}

	status := constants.QuoteStockStatusNone
	for i := range reservations {
		switch reservations[i].Status {
		case constants.ReservationStatusActive:
			return constants.QuoteStockStatusReserved, reservations, nil
		case constants.ReservationStatusConsumed:
			status = constants.QuoteStockStatusConsumed
		case constants.ReservationStatusReleased:
			if status == constants.QuoteStockStatusNone {
				status = constants.QuoteStockStatusReleased
			}
		}
	}
	return status, reservations, nil
}
