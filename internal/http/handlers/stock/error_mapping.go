package stock

import (
	"errors"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/http/handlers/shared"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/http/response"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

var stockCommonErrorRules = []mappedHandlerError{
	{target: service.ErrProductNotFound, code: response.CodeNotFound, msg: "商品不存在"},
	{target: service.ErrWarehouseNotFound, code: response.CodeNotFound, msg: "仓库不存在"},
	{target: service.ErrStockLotNotFound, code: response.CodeNotFound, msg: "库存批次不存在"},
	{target: service.ErrStockLotNotEmpty, code: response.CodeConflict, msg: "批次仍有余量或在途预占"},
	{target: service.ErrQuoteNotFound, code: response.CodeNotFound, msg: "报价单不存在"},
	{target: service.ErrQuoteEmpty, code: response.CodeBadRequest, msg: "报价单没有行项目"},
	{target: service.ErrInsufficientStock, code: response.CodeConflict, msg: "可用库存不足"},
	{target: service.ErrReservationExpired, code: response.CodeConflict, msg: "预占已过期，请重新预占"},
	{target: service.ErrLockTimeout, code: response.CodeTooManyRequests, msg: "库存繁忙，请稍后重试"},
	{target: service.ErrInvariantViolation, code: response.CodeInternal, msg: "库存数据异常，操作已回滚"},
}

func respondStockError(c *gin.Context, err error) {
	for _, rule := range stockCommonErrorRules {
		if errors.Is(err, rule.target) {
			shared.RespondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	shared.RespondError(c, response.CodeInternal, "库存操作失败", err)
}
