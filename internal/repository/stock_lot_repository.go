package repository

import (
	"errors"
	"sort"
	"strings"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"

	"gorm.io/gorm"
)

// StockLotRepository 库存批次数据访问接口。
// Reserve/Release/Consume/AdjustTotal 是条件更新（CAS）原语：返回受影响行数，
// 0 行代表前置条件在写入时刻不成立（余量不足或并发竞争失败），调用方必须检查。
type StockLotRepository interface {
	GetByID(id uint) (*models.StockLot, error)
	GetByIdentity(productID, warehouseID uint, lotCode string) (*models.StockLot, error)
	Create(lot *models.StockLot) error
	List(filter StockLotListFilter) ([]models.StockLot, int64, error)
	LockCandidates(productID uint, warehouseID *uint) ([]models.StockLot, error)
	LockByID(id uint) (*models.StockLot, error)
	Reserve(lotID uint, qty int64) (int64, error)
	Release(lotID uint, qty int64) (int64, error)
	Consume(lotID uint, qty int64) (int64, error)
	AdjustTotal(lotID uint, delta int64) (int64, error)
	Retire(lotID uint) (int64, error)
	SumAvailableByProduct(productID uint, warehouseID *uint) (int64, error)
	WithTx(tx *gorm.DB) StockLotRepository
}

// GormStockLotRepository GORM 实现
type GormStockLotRepository struct {
	db *gorm.DB
}

// NewStockLotRepository 创建库存批次仓库
func NewStockLotRepository(db *gorm.DB) *GormStockLotRepository {
	return &GormStockLotRepository{db: db}
}

// WithTx 绑定事务
func (r *GormStockLotRepository) WithTx(tx *gorm.DB) StockLotRepository {
	if tx == nil {
		return r
	}
	return &GormStockLotRepository{db: tx}
}

// GetByID 根据 ID 获取批次
func (r *GormStockLotRepository) GetByID(id uint) (*models.StockLot, error) {
	if id == 0 {
		return nil, errors.New("invalid stock lot id")
	}
	var lot models.StockLot
	if err := r.db.First(&lot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

// GetByIdentity 按 (商品, 仓库, 批次编码) 获取批次
func (r *GormStockLotRepository) GetByIdentity(productID, warehouseID uint, lotCode string) (*models.StockLot, error) {
	if productID == 0 || warehouseID == 0 {
		return nil, errors.New("invalid stock lot identity")
	}
	code := strings.TrimSpace(lotCode)
	if code == "" {
		code = models.DefaultLotCode
	}
	var lot models.StockLot
	err := r.db.Where("product_id = ? AND warehouse_id = ? AND lot_code = ?", productID, warehouseID, code).
		First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

// Create 创建批次
func (r *GormStockLotRepository) Create(lot *models.StockLot) error {
	if lot == nil {
		return errors.New("stock lot is nil")
	}
	if strings.TrimSpace(lot.LotCode) == "" {
		lot.LotCode = models.DefaultLotCode
	}
	return r.db.Create(lot).Error
}

// List 查询批次列表
func (r *GormStockLotRepository) List(filter StockLotListFilter) ([]models.StockLot, int64, error) {
	query := r.db.Model(&models.StockLot{})
	if filter.IncludeRetired {
		query = query.Unscoped()
	}
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.WarehouseID != 0 {
		query = query.Where("warehouse_id = ?", filter.WarehouseID)
	}
	if code := strings.TrimSpace(filter.LotCode); code != "" {
		query = query.Where("lot_code = ?", code)
	}
	if filter.OnlyAvailable {
		query = query.Where("available_qty > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var lots []models.StockLot
	if err := applyPagination(query.Order(expiryFIFOOrderExpr(r.db)), filter.Page, filter.PageSize).
		Find(&lots).Error; err != nil {
		return nil, 0, err
	}
	return lots, total, nil
}

// LockCandidates 选取候选批次并加行锁。候选按到期日 FIFO 排序；
// 加锁按 id 升序进行，避免两个协调者对重叠批次集互相死锁，
// 锁定后再恢复 FIFO 顺序返回给分配方。
func (r *GormStockLotRepository) LockCandidates(productID uint, warehouseID *uint) ([]models.StockLot, error) {
	if productID == 0 {
		return nil, errors.New("invalid product id")
	}

	idQuery := r.db.Model(&models.StockLot{}).
		Where("product_id = ? AND available_qty > 0", productID)
	if warehouseID != nil && *warehouseID != 0 {
		idQuery = idQuery.Where("warehouse_id = ?", *warehouseID)
	}

	var fifoIDs []uint
	if err := idQuery.Order(expiryFIFOOrderExpr(r.db)).Pluck("id", &fifoIDs).Error; err != nil {
		return nil, err
	}
	if len(fifoIDs) == 0 {
		return []models.StockLot{}, nil
	}

	lockIDs := make([]uint, len(fifoIDs))
	copy(lockIDs, fifoIDs)
	sort.Slice(lockIDs, func(i, j int) bool { return lockIDs[i] < lockIDs[j] })

	if err := applyLockWaitTimeout(r.db); err != nil {
		return nil, err
	}
	var locked []models.StockLot
	if err := withRowLock(r.db).
		Where("id IN ?", lockIDs).
		Order("id ASC").
		Find(&locked).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.StockLot, len(locked))
	for _, lot := range locked {
		byID[lot.ID] = lot
	}
	ordered := make([]models.StockLot, 0, len(locked))
	for _, id := range fifoIDs {
		if lot, ok := byID[id]; ok {
			ordered = append(ordered, lot)
		}
	}
	return ordered, nil
}

// LockByID 按 ID 加行锁读取批次
func (r *GormStockLotRepository) LockByID(id uint) (*models.StockLot, error) {
	if id == 0 {
		return nil, errors.New("invalid stock lot id")
	}
	if err := applyLockWaitTimeout(r.db); err != nil {
		return nil, err
	}
	var lot models.StockLot
	if err := withRowLock(r.db).First(&lot, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

// Reserve 预占库存：available -= qty, reserved += qty，仅当 available >= qty
func (r *GormStockLotRepository) Reserve(lotID uint, qty int64) (int64, error) {
	if lotID == 0 || qty <= 0 {
		return 0, errors.New("invalid stock reserve params")
	}
	result := r.db.Model(&models.StockLot{}).
		Where("id = ? AND available_qty >= ?", lotID, qty).
		Updates(map[string]interface{}{
			"available_qty": gorm.Expr("available_qty - ?", qty),
			"reserved_qty":  gorm.Expr("reserved_qty + ?", qty),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Release 释放预占：available += qty, reserved -= qty，仅当 reserved >= qty
func (r *GormStockLotRepository) Release(lotID uint, qty int64) (int64, error) {
	if lotID == 0 || qty <= 0 {
		return 0, errors.New("invalid stock release params")
	}
	result := r.db.Model(&models.StockLot{}).
		Where("id = ? AND reserved_qty >= ?", lotID, qty).
		Updates(map[string]interface{}{
			"available_qty": gorm.Expr("available_qty + ?", qty),
			"reserved_qty":  gorm.Expr("reserved_qty - ?", qty),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Consume 消耗预占：total -= qty, reserved -= qty，仅当 reserved >= qty 且 total >= qty。
// 这是唯一改变 total 的预占路径，调用方必须在同一事务内写台账流水。
func (r *GormStockLotRepository) Consume(lotID uint, qty int64) (int64, error) {
	if lotID == 0 || qty <= 0 {
		return 0, errors.New("invalid stock consume params")
	}
	result := r.db.Model(&models.StockLot{}).
		Where("id = ? AND reserved_qty >= ? AND total_qty >= ?", lotID, qty, qty).
		Updates(map[string]interface{}{
			"total_qty":    gorm.Expr("total_qty - ?", qty),
			"reserved_qty": gorm.Expr("reserved_qty - ?", qty),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// AdjustTotal 入库或更正：total 与 available 同向变化，不触碰 reserved。
// 负向调整仅在不会使 total 或 available 变负时生效。
func (r *GormStockLotRepository) AdjustTotal(lotID uint, delta int64) (int64, error) {
	if lotID == 0 || delta == 0 {
		return 0, errors.New("invalid stock adjust params")
	}
	result := r.db.Model(&models.StockLot{}).
		Where("id = ? AND total_qty + ? >= 0 AND available_qty + ? >= 0", lotID, delta, delta).
		Updates(map[string]interface{}{
			"total_qty":     gorm.Expr("total_qty + ?", delta),
			"available_qty": gorm.Expr("available_qty + ?", delta),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Retire 软删除归零批次（仍保留历史台账），有余量或在途预占时不生效
func (r *GormStockLotRepository) Retire(lotID uint) (int64, error) {
	if lotID == 0 {
		return 0, errors.New("invalid stock lot id")
	}
	result := r.db.Where("id = ? AND total_qty = 0 AND available_qty = 0 AND reserved_qty = 0", lotID).
		Delete(&models.StockLot{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SumAvailableByProduct 汇总商品在指定仓库（或全部仓库）的可用量
func (r *GormStockLotRepository) SumAvailableByProduct(productID uint, warehouseID *uint) (int64, error) {
	if productID == 0 {
		return 0, errors.New("invalid product id")
	}
	query := r.db.Model(&models.StockLot{}).Where("product_id = ?", productID)
	if warehouseID != nil && *warehouseID != 0 {
		query = query.Where("warehouse_id = ?", *warehouseID)
	}
	var sum int64
	if err := query.Select("COALESCE(SUM(available_qty), 0)").Scan(&sum).Error; err != nil {
		return 0, err
	}
	return sum, nil
}
