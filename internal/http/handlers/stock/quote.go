package stock

import (
	"strings"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/http/handlers/shared"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/http/response"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"

	"github.com/gin-gonic/gin"
)

// createQuoteRequest 创建报价单请求
type createQuoteRequest struct {
	QuoteNo     string `json:"quote_no" binding:"required"`
	WarehouseID *uint  `json:"warehouse_id"`
	Lines       []struct {
		ProductID uint  `json:"product_id" binding:"required"`
		Quantity  int64 `json:"quantity" binding:"required,gt=0"`
	} `json:"lines" binding:"required,min=1"`
}

// CreateQuote 创建报价单
func (h *Handler) CreateQuote(c *gin.Context) {
	var req createQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		shared.RespondError(c, response.CodeBadRequest, "报价单参数无效", err)
		return
	}
	quote := &models.Quote{
		QuoteNo:     strings.TrimSpace(req.QuoteNo),
		WarehouseID: req.WarehouseID,
	}
	for _, line := range req.Lines {
		quote.Lines = append(quote.Lines, models.QuoteLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}
	if err := h.QuoteStockService.CreateQuote(quote); err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, quote)
}

// GetQuote 获取报价单
func (h *Handler) GetQuote(c *gin.Context) {
	quoteID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "报价单 ID 无效", nil)
		return
	}
	quote, err := h.QuoteStockService.GetQuote(quoteID)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, quote)
}

// ReserveQuoteStock 为报价单预占库存（全有或全无）
func (h *Handler) ReserveQuoteStock(c *gin.Context) {
	quoteID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "报价单 ID 无效", nil)
		return
	}
	reservations, err := h.QuoteStockService.ReserveForQuote(quoteID)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, reservations)
}

// consumeQuoteStockRequest 成交确认请求
type consumeQuoteStockRequest struct {
	DocumentRef string `json:"document_ref"`
	ActorID     uint   `json:"actor_id"`
}

// ConsumeQuoteStock 成交确认：消耗报价单全部活动预占
func (h *Handler) ConsumeQuoteStock(c *gin.Context) {
	quoteID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "报价单 ID 无效", nil)
		return
	}
	// 两个字段都可选，空请求体直接走默认值
	var req consumeQuoteStockRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		shared.RespondError(c, response.CodeBadRequest, "确认参数无效", err)
		return
	}
	consumed, err := h.QuoteStockService.ConsumeForQuote(quoteID, req.DocumentRef, req.ActorID)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, gin.H{"consumed": consumed})
}

// releaseQuoteStockRequest 放弃报价请求
type releaseQuoteStockRequest struct {
	Reason string `json:"reason"`
}

// ReleaseQuoteStock 放弃报价：释放全部活动预占
func (h *Handler) ReleaseQuoteStock(c *gin.Context) {
	quoteID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "报价单 ID 无效", nil)
		return
	}
	var req releaseQuoteStockRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		shared.RespondError(c, response.CodeBadRequest, "释放参数无效", err)
		return
	}
	released, err := h.QuoteStockService.ReleaseForQuote(quoteID, strings.TrimSpace(req.Reason))
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, gin.H{"released": released})
}

// GetQuoteStockStatus 查询报价单库存状态
func (h *Handler) GetQuoteStockStatus(c *gin.Context) {
	quoteID, ok := shared.ParamUint(c, "id")
	if !ok {
		shared.RespondError(c, response.CodeBadRequest, "报价单 ID 无效", nil)
		return
	}
	status, reservations, err := h.QuoteStockService.StockStatus(quoteID)
	if err != nil {
		respondStockError(c, err)
		return
	}
	response.Success(c, gin.H{
		"status":       status,
		"reservations": reservations,
	})
}
