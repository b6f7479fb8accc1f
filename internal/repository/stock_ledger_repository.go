package repository

import (
	"errors"
	"strings"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"

	"gorm.io/gorm"
)

// StockLedgerRepository 库存台账数据访问接口。只追加：没有更新或删除入口。
type StockLedgerRepository interface {
	Append(entry *models.StockLedgerEntry) error
	GetByID(id uint) (*models.StockLedgerEntry, error)
	List(filter LedgerListFilter) ([]models.StockLedgerEntry, int64, error)
	CountByLot(lotID uint) (int64, error)
	WithTx(tx *gorm.DB) StockLedgerRepository
}

// GormStockLedgerRepository GORM 实现
type GormStockLedgerRepository struct {
	db *gorm.DB
}

// NewStockLedgerRepository 创建台账仓库
func NewStockLedgerRepository(db *gorm.DB) *GormStockLedgerRepository {
	return &GormStockLedgerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormStockLedgerRepository) WithTx(tx *gorm.DB) StockLedgerRepository {
	if tx == nil {
		return r
	}
	return &GormStockLedgerRepository{db: tx}
}

// Append 追加一条台账流水
func (r *GormStockLedgerRepository) Append(entry *models.StockLedgerEntry) error {
	if entry == nil {
		return errors.New("ledger entry is nil")
	}
	if entry.StockLotID == 0 {
		return errors.New("ledger entry missing stock lot id")
	}
	if entry.QuantityAfter != entry.QuantityBefore+entry.Delta {
		return errors.New("ledger entry delta mismatch")
	}
	return r.db.Create(entry).Error
}

// GetByID 根据 ID 获取流水
func (r *GormStockLedgerRepository) GetByID(id uint) (*models.StockLedgerEntry, error) {
	if id == 0 {
		return nil, errors.New("invalid ledger entry id")
	}
	var entry models.StockLedgerEntry
	if err := r.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// List 查询台账流水列表
func (r *GormStockLedgerRepository) List(filter LedgerListFilter) ([]models.StockLedgerEntry, int64, error) {
	query := r.db.Model(&models.StockLedgerEntry{})
	if filter.StockLotID != 0 {
		query = query.Where("stock_lot_id = ?", filter.StockLotID)
	}
	if kind := strings.TrimSpace(filter.Kind); kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if ref := strings.TrimSpace(filter.DocumentRef); ref != "" {
		query = query.Where("document_ref = ?", ref)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.StockLedgerEntry
	if err := applyPagination(query.Order("id DESC"), filter.Page, filter.PageSize).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// CountByLot 统计批次的流水条数
func (r *GormStockLedgerRepository) CountByLot(lotID uint) (int64, error) {
	if lotID == 0 {
		return 0, errors.New("invalid stock lot id")
	}
	var count int64
	if err := r.db.Model(&models.StockLedgerEntry{}).Where("stock_lot_id = ?", lotID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
