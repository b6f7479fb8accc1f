package repository

import (
	"errors"
	"strings"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"

	"gorm.io/gorm"
)

// WarehouseRepository 仓库主档数据访问接口
type WarehouseRepository interface {
	GetByID(id uint) (*models.Warehouse, error)
	GetByCode(code string) (*models.Warehouse, error)
	Create(warehouse *models.Warehouse) error
	WithTx(tx *gorm.DB) WarehouseRepository
}

// GormWarehouseRepository GORM 实现
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewWarehouseRepository 创建仓库主档仓库
func NewWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormWarehouseRepository) WithTx(tx *gorm.DB) WarehouseRepository {
	if tx == nil {
		return r
	}
	return &GormWarehouseRepository{db: tx}
}

// GetByID 根据 ID 获取仓库
func (r *GormWarehouseRepository) GetByID(id uint) (*models.Warehouse, error) {
	if id == 0 {
		return nil, errors.New("invalid warehouse id")
	}
	var warehouse models.Warehouse
	if err := r.db.First(&warehouse, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &warehouse, nil
}

// GetByCode 根据编码获取仓库
func (r *GormWarehouseRepository) GetByCode(code string) (*models.Warehouse, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return nil, errors.New("invalid warehouse code")
	}
	var warehouse models.Warehouse
	if err := r.db.Where("code = ?", trimmed).First(&warehouse).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &warehouse, nil
}

// Create 创建仓库
func (r *GormWarehouseRepository) Create(warehouse *models.Warehouse) error {
	if warehouse == nil {
		return errors.New("warehouse is nil")
	}
	return r.db.Create(warehouse).Error
}
