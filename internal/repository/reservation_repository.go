package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"

	"gorm.io/gorm"
)

// ReservationRepository 预占记录数据访问接口。
// MarkConsumed/MarkReleased 带状态前置条件（仅 active 可迁移），
// 返回受影响行数，0 行代表状态已被并发迁移走。
type ReservationRepository interface {
	Create(reservation *models.Reservation) error
	GetByID(id uint) (*models.Reservation, error)
	ListByQuote(quoteID uint) ([]models.Reservation, error)
	ListActiveByQuote(quoteID uint) ([]models.Reservation, error)
	LockActiveByQuote(quoteID uint) ([]models.Reservation, error)
	HasActiveByQuote(quoteID uint) (bool, error)
	ListExpired(now time.Time, limit int) ([]models.Reservation, error)
	MarkConsumed(id uint) (int64, error)
	MarkReleased(id uint, reason string) (int64, error)
	List(filter ReservationListFilter) ([]models.Reservation, int64, error)
	WithTx(tx *gorm.DB) ReservationRepository
}

// GormReservationRepository GORM 实现
type GormReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预占仓库
func NewReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReservationRepository) WithTx(tx *gorm.DB) ReservationRepository {
	if tx == nil {
		return r
	}
	return &GormReservationRepository{db: tx}
}

// Create 创建预占记录
func (r *GormReservationRepository) Create(reservation *models.Reservation) error {
	if reservation == nil {
		return errors.New("reservation is nil")
	}
	if reservation.Status == "" {
		reservation.Status = constants.ReservationStatusActive
	}
	return r.db.Create(reservation).Error
}

// GetByID 根据 ID 获取预占记录
func (r *GormReservationRepository) GetByID(id uint) (*models.Reservation, error) {
	if id == 0 {
		return nil, errors.New("invalid reservation id")
	}
	var reservation models.Reservation
	if err := r.db.First(&reservation, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

// ListByQuote 获取报价单全部预占记录（含终态）
func (r *GormReservationRepository) ListByQuote(quoteID uint) ([]models.Reservation, error) {
	if quoteID == 0 {
		return nil, errors.New("invalid quote id")
	}
	var reservations []models.Reservation
	if err := r.db.Where("quote_id = ?", quoteID).Order("id ASC").Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// ListActiveByQuote 获取报价单的活动预占
func (r *GormReservationRepository) ListActiveByQuote(quoteID uint) ([]models.Reservation, error) {
	if quoteID == 0 {
		return nil, errors.New("invalid quote id")
	}
	var reservations []models.Reservation
	err := r.db.Where("quote_id = ? AND status = ?", quoteID, constants.ReservationStatusActive).
		Order("id ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// LockActiveByQuote 加行锁获取报价单的活动预占（消耗路径使用，按 id 升序加锁）
func (r *GormReservationRepository) LockActiveByQuote(quoteID uint) ([]models.Reservation, error) {
	if quoteID == 0 {
		return nil, errors.New("invalid quote id")
	}
	if err := applyLockWaitTimeout(r.db); err != nil {
		return nil, err
	}
	var reservations []models.Reservation
	err := withRowLock(r.db).
		Where("quote_id = ? AND status = ?", quoteID, constants.ReservationStatusActive).
		Order("id ASC").
		Find(&reservations).Error
	if err != nil {
		return nil, err
	}
	return reservations, nil
}

// HasActiveByQuote 判断报价单是否已有活动预占
func (r *GormReservationRepository) HasActiveByQuote(quoteID uint) (bool, error) {
	if quoteID == 0 {
		return false, errors.New("invalid quote id")
	}
	var count int64
	err := r.db.Model(&models.Reservation{}).
		Where("quote_id = ? AND status = ?", quoteID, constants.ReservationStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListExpired 跨报价单选取已过期的活动预占（清扫任务使用）
func (r *GormReservationRepository) ListExpired(now time.Time, limit int) ([]models.Reservation, error) {
	query := r.db.Where("status = ? AND expires_at < ?", constants.ReservationStatusActive, now).
		Order("expires_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var reservations []models.Reservation
	if err := query.Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

// MarkConsumed 活动预占迁移为已消耗（终态），状态不匹配时返回 0 行
func (r *GormReservationRepository) MarkConsumed(id uint) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid reservation id")
	}
	result := r.db.Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, constants.ReservationStatusActive).
		Update("status", constants.ReservationStatusConsumed)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// MarkReleased 活动预占迁移为已释放（终态），状态不匹配时返回 0 行
func (r *GormReservationRepository) MarkReleased(id uint, reason string) (int64, error) {
	if id == 0 {
		return 0, errors.New("invalid reservation id")
	}
	result := r.db.Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, constants.ReservationStatusActive).
		Updates(map[string]interface{}{
			"status":          constants.ReservationStatusReleased,
			"released_reason": strings.TrimSpace(reason),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// List 查询预占记录列表
func (r *GormReservationRepository) List(filter ReservationListFilter) ([]models.Reservation, int64, error) {
	query := r.db.Model(&models.Reservation{})
	if filter.QuoteID != 0 {
		query = query.Where("quote_id = ?", filter.QuoteID)
	}
	if filter.StockLotID != 0 {
		query = query.Where("stock_lot_id = ?", filter.StockLotID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reservations []models.Reservation
	if err := applyPagination(query.Order("id DESC"), filter.Page, filter.PageSize).
		Find(&reservations).Error; err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}
