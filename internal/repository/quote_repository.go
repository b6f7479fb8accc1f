package repository

import (
	"errors"
	"strings"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"

	"gorm.io/gorm"
)

// QuoteRepository 报价单数据访问接口
type QuoteRepository interface {
	Create(quote *models.Quote) error
	GetByID(id uint) (*models.Quote, error)
	GetByQuoteNo(quoteNo string) (*models.Quote, error)
	WithTx(tx *gorm.DB) QuoteRepository
}

// GormQuoteRepository GORM 实现
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewQuoteRepository 创建报价单仓库
func NewQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// WithTx 绑定事务
func (r *GormQuoteRepository) WithTx(tx *gorm.DB) QuoteRepository {
	if tx == nil {
		return r
	}
	return &GormQuoteRepository{db: tx}
}

// Create 创建报价单（连同行项目）
func (r *GormQuoteRepository) Create(quote *models.Quote) error {
	if quote == nil {
		return errors.New("quote is nil")
	}
	if strings.TrimSpace(quote.QuoteNo) == "" {
		return errors.New("quote no is empty")
	}
	return r.db.Create(quote).Error
}

// GetByID 根据 ID 获取报价单（含行项目）
func (r *GormQuoteRepository) GetByID(id uint) (*models.Quote, error) {
	if id == 0 {
		return nil, errors.New("invalid quote id")
	}
	var quote models.Quote
	if err := r.db.Preload("Lines").First(&quote, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &quote, nil
}

// GetByQuoteNo 根据单号获取报价单（含行项目）
func (r *GormQuoteRepository) GetByQuoteNo(quoteNo string) (*models.Quote, error) {
	trimmed := strings.TrimSpace(quoteNo)
	if trimmed == "" {
		return nil, errors.New("invalid quote no")
	}
	var quote models.Quote
	if err := r.db.Preload("Lines").Where("quote_no = ?", trimmed).First(&quote).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &quote, nil
}
