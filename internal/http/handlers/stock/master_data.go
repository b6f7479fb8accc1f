package stock

import (
	"strings"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/http/handlers/shared"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/http/response"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"

	"github.com/gin-gonic/gin"
)

// createProductRequest 创建商品请求
type createProductRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
	Unit string `json:"unit"`
}

// CreateProduct 创建商品主档
func (h *Handler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "商品参数无效", err)
		return
	}
	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = "unit"
	}
	product := &models.Product{
		Code:     strings.TrimSpace(req.Code),
		Name:     strings.TrimSpace(req.Name),
		Unit:     unit,
		IsActive: true,
	}
	if err := h.ProductRepo.Create(product); err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, product)
}

// GetProduct 获取商品主档
func (h *Handler) GetProduct(c *gin.Context) {
	productID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "商品 ID 无效", nil)
		return
	}
	product, err := h.ProductRepo.GetByID(productID)
	if err != nil {
		respondStockError(c, err)
		return
	}
	if product == nil {
		shared.RespondError(c, response.CodeNotFound, "商品不存在", nil)
		return
	}
	response.Success(c, product)
}

// createWarehouseRequest 创建仓库请求
type createWarehouseRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// CreateWarehouse 创建仓库主档
func (h *Handler) CreateWarehouse(c *gin.Context) {
	var req createWarehouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "仓库参数无效", err)
		return
	}
	warehouse := &models.Warehouse{
		Code:     strings.TrimSpace(req.Code),
		Name:     strings.TrimSpace(req.Name),
		IsActive: true,
	}
	if err := h.WarehouseRepo.Create(warehouse); err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, warehouse)
}

// GetWarehouse 获取仓库主档
func (h *Handler) GetWarehouse(c *gin.Context) {
	warehouseID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "仓库 ID 无效", nil)
		return
	}
	warehouse, err := h.WarehouseRepo.GetByID(warehouseID)
	if err != nil {
		respondStockError(c, err)
		return
	}
	if warehouse == nil {
		shared.RespondError(c, response.CodeNotFound, "仓库不存在", nil)
		return
	}
	response.Success(c, warehouse)
}
