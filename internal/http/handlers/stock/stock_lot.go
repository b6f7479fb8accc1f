package stock

import (
	"strings"
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/http/handlers/shared"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/http/response"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/repository"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/service"

	"github.com/gin-gonic/gin"
)

// receiveStockRequest 采购入库请求
type receiveStockRequest struct {
	ProductID      uint          `json:"product_id" binding:"required"`
	WarehouseID    uint          `json:"warehouse_id" binding:"required"`
	LotCode        string        `json:"lot_code"`
	ExpirationDate *time.Time    `json:"expiration_date"`
	Quantity       int64         `json:"quantity" binding:"required,gt=0"`
	UnitCost       *models.Money `json:"unit_cost"`
	DocumentRef    string        `json:"document_ref"`
	ActorID        uint          `json:"actor_id"`
}

// ReceiveStock 采购入库
func (h *Handler) ReceiveStock(c *gin.Context) {
	var req receiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "入库参数无效", err)
		return
	}
	lot, err := h.StockService.ReceiveStock(service.ReceiveStockInput{
		ProductID:      req.ProductID,
		WarehouseID:    req.WarehouseID,
		LotCode:        req.LotCode,
		ExpirationDate: req.ExpirationDate,
		Quantity:       req.Quantity,
		UnitCost:       req.UnitCost,
		DocumentRef:    req.DocumentRef,
		ActorID:        req.ActorID,
	})
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, lot)
}

// adjustStockRequest 库存更正请求
type adjustStockRequest struct {
	Delta       int64  `json:"delta" binding:"required"`
	DocumentRef string `json:"document_ref"`
	ActorID     uint   `json:"actor_id"`
}

// AdjustStock 库存更正
func (h *Handler) AdjustStock(c *gin.Context) {
	lotID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "批次 ID 无效", nil)
		return
	}
	var req adjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "更正参数无效", err)
		return
	}
	lot, err := h.StockService.AdjustStock(lotID, req.Delta, req.DocumentRef, req.ActorID)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, lot)
}

// recountStockRequest 盘点更正请求
type recountStockRequest struct {
	CountedTotal int64  `json:"counted_total" binding:"gte=0"`
	DocumentRef  string `json:"document_ref"`
	ActorID      uint   `json:"actor_id"`
}

// RecountStock 盘点更正
func (h *Handler) RecountStock(c *gin.Context) {
	lotID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "批次 ID 无效", nil)
		return
	}
	var req recountStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "盘点参数无效", err)
		return
	}
	lot, clamped, err := h.StockService.RecountStock(lotID, req.CountedTotal, req.DocumentRef, req.ActorID)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, gin.H{
		"lot":     lot,
		"clamped": clamped,
	})
}

// reversePurchaseRequest 采购冲销请求
type reversePurchaseRequest struct {
	Quantity    int64  `json:"quantity" binding:"required,gt=0"`
	DocumentRef string `json:"document_ref"`
	ActorID     uint   `json:"actor_id"`
}

// ReversePurchase 采购冲销
func (h *Handler) ReversePurchase(c *gin.Context) {
	lotID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "批次 ID 无效", nil)
		return
	}
	var req reversePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "冲销参数无效", err)
		return
	}
	lot, err := h.StockService.ReversePurchase(lotID, req.Quantity, req.DocumentRef, req.ActorID)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, lot)
}

// RetireLot 退役归零批次
func (h *Handler) RetireLot(c *gin.Context) {
	lotID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "批次 ID 无效", nil)
		return
	}
	if err := h.StockService.RetireLot(lotID); err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, nil)
}

// GetStockLot 获取批次快照
func (h *Handler) GetStockLot(c *gin.Context) {
	lotID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "批次 ID 无效", nil)
		return
	}
	lot, err := h.StockService.GetLot(lotID)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, lot)
}

// ListStockLots 查询批次列表
func (h *Handler) ListStockLots(c *gin.Context) {
	page, pageSize := shared.QueryPagination(c)
	filter := repository.StockLotListFilter{
		Page:           page,
		PageSize:       pageSize,
		ProductID:      shared.QueryUint(c, "product_id"),
		WarehouseID:    shared.QueryUint(c, "warehouse_id"),
		LotCode:        strings.TrimSpace(c.Query("lot_code")),
		OnlyAvailable:  c.Query("only_available") == "true",
		IncludeRetired: c.Query("include_retired") == "true",
	}
	lots, total, err := h.StockService.ListLots(filter)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.SuccessWithPage(c, lots, response.NewPagination(page, pageSize, total))
}

// ListLedger 查询台账流水
func (h *Handler) ListLedger(c *gin.Context) {
	page, pageSize := shared.QueryPagination(c)
	filter := repository.LedgerListFilter{
		Page:        page,
		PageSize:    pageSize,
		StockLotID:  shared.QueryUint(c, "stock_lot_id"),
		Kind:        strings.TrimSpace(c.Query("kind")),
		DocumentRef: strings.TrimSpace(c.Query("document_ref")),
	}
	entries, total, err := h.StockService.ListLedger(filter)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.SuccessWithPage(c, entries, response.NewPagination(page, pageSize, total))
}

// GetProductAvailability 汇总商品可用量
func (h *Handler) GetProductAvailability(c *gin.Context) {
	productID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "商品 ID 无效", nil)
		return
	}
	var warehouseID *uint
	if id := shared.QueryUint(c, "warehouse_id"); id != 0 {
		warehouseID = &id
	}
	available, err := h.StockService.ProductAvailability(productID, warehouseID)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, gin.H{
		"product_id": productID,
		"available":  available,
	})
}

// ListReservations 查询预占记录
func (h *Handler) ListReservations(c *gin.Context) {
	page, pageSize := shared.QueryPagination(c)
	filter := repository.ReservationListFilter{
		Page:       page,
		PageSize:   pageSize,
		QuoteID:    shared.QueryUint(c, "quote_id"),
		StockLotID: shared.QueryUint(c, "stock_lot_id"),
		Status:     strings.TrimSpace(c.Query("status")),
	}
	reservations, total, err := h.ReservationService.ListReservations(filter)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.SuccessWithPage(c, reservations, response.NewPagination(page, pageSize, total))
}
