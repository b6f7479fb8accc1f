package router

import (
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/config"
	stockhandlers "github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/http/handlers/stock"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/logger"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	stockHandler := stockhandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 主档
		apiV1.POST("/products", stockHandler.CreateProduct)
		apiV1.GET("/products/:id", stockHandler.GetProduct)
		apiV1.GET("/products/:id/availability", stockHandler.GetProductAvailability)
		apiV1.POST("/warehouses", stockHandler.CreateWarehouse)
		apiV1.GET("/warehouses/:id", stockHandler.GetWarehouse)

		// 库存批次与台账
		stock := apiV1.Group("/stock")
		{
			stock.POST("/receipts", stockHandler.ReceiveStock)
			stock.GET("/lots", stockHandler.ListStockLots)
			stock.GET("/lots/:id", stockHandler.GetStockLot)
			stock.POST("/lots/:id/adjust", stockHandler.AdjustStock)
			stock.POST("/lots/:id/recount", stockHandler.RecountStock)
			stock.POST("/lots/:id/reverse", stockHandler.ReversePurchase)
			stock.DELETE("/lots/:id", stockHandler.RetireLot)
			stock.GET("/ledger", stockHandler.ListLedger)
			stock.GET("/reservations", stockHandler.ListReservations)
		}

		// 报价单库存协调
		quotes := apiV1.Group("/quotes")
		{
			quotes.POST("", stockHandler.CreateQuote)
			quotes.GET("/:id", stockHandler.GetQuote)
			quotes.POST("/:id/reserve", stockHandler.ReserveQuoteStock)
			quotes.POST("/:id/consume", stockHandler.ConsumeQuoteStock)
			quotes.POST("/:id/release", stockHandler.ReleaseQuoteStock)
			quotes.GET("/:id/stock-status", stockHandler.GetQuoteStockStatus)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
