package provider

import (
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/cache"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/config"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/logger"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/queue"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/repository"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	ProductRepo     repository.ProductRepository
	WarehouseRepo   repository.WarehouseRepository
	QuoteRepo       repository.QuoteRepository
	StockLotRepo    repository.StockLotRepository
	ReservationRepo repository.ReservationRepository
	StockLedgerRepo repository.StockLedgerRepository

	// Services
	StockService       *service.StockService
	ReservationService *service.ReservationService
	QuoteStockService  *service.QuoteStockService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	repository.SetLockWaitTimeout(c.Config.Stock.LockTimeoutMS)
	db := models.DB
	c.ProductRepo = repository.NewProductRepository(db)
	c.WarehouseRepo = repository.NewWarehouseRepository(db)
	c.QuoteRepo = repository.NewQuoteRepository(db)
	c.StockLotRepo = repository.NewStockLotRepository(db)
	c.ReservationRepo = repository.NewReservationRepository(db)
	c.StockLedgerRepo = repository.NewStockLedgerRepository(db)
}

func (c *Container) initServices() {
	stockCfg := c.Config.Stock
	alerter := service.NewLowStockAlerter(
		stockCfg.LowStockThreshold,
		time.Duration(stockCfg.AlertDedupeMinutes)*time.Minute,
	)

	c.StockService = service.NewStockService(
		c.StockLotRepo,
		c.StockLedgerRepo,
		c.ProductRepo,
		c.WarehouseRepo,
		alerter,
	)
	c.ReservationService = service.NewReservationService(
		c.StockLotRepo,
		c.ReservationRepo,
		c.StockLedgerRepo,
	)
	c.QuoteStockService = service.NewQuoteStockService(
		c.QuoteRepo,
		c.ProductRepo,
		c.StockLotRepo,
		c.ReservationRepo,
		c.ReservationService,
		c.QueueClient,
		time.Duration(stockCfg.ReservationTTLHours)*time.Hour,
	)
}
