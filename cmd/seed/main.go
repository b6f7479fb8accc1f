package main

import (
	"fmt"
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/config"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/logger"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/provider"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/service"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	container := provider.NewContainer(cfg)

	// 添加仓库
	warehouses := []models.Warehouse{
		{Code: "WH-CENTRAL", Name: "中央仓", IsActive: true},
		{Code: "WH-NORTH", Name: "北区配送仓", IsActive: true},
	}
	for i := range warehouses {
		existing, err := container.WarehouseRepo.GetByCode(warehouses[i].Code)
		if err != nil {
			stdLog.Printf("Failed to load warehouse %s: %v", warehouses[i].Code, err)
			continue
		}
		if existing != nil {
			warehouses[i] = *existing
			stdLog.Printf("Warehouse already exists: %s", existing.Code)
			continue
		}
		if err := container.WarehouseRepo.Create(&warehouses[i]); err != nil {
			stdLog.Printf("Failed to create warehouse %s: %v", warehouses[i].Code, err)
		} else {
			stdLog.Printf("Created warehouse: %s", warehouses[i].Code)
		}
	}

	// 添加商品
	products := []models.Product{
		{Code: "SKU-RICE-25KG", Name: "大米 25kg", Unit: "bag", IsActive: true},
		{Code: "SKU-OIL-5L", Name: "食用油 5L", Unit: "bottle", IsActive: true},
		{Code: "SKU-MILK-1L", Name: "盒装牛奶 1L", Unit: "box", IsActive: true},
		{Code: "SKU-SUGAR-1KG", Name: "白糖 1kg", Unit: "bag", IsActive: true},
	}
	for i := range products {
		existing, err := container.ProductRepo.GetByCode(products[i].Code)
		if err != nil {
			stdLog.Printf("Failed to load product %s: %v", products[i].Code, err)
			continue
		}
		if existing != nil {
			products[i] = *existing
			stdLog.Printf("Product already exists: %s", existing.Code)
			continue
		}
		if err := container.ProductRepo.Create(&products[i]); err != nil {
			stdLog.Printf("Failed to create product %s: %v", products[i].Code, err)
		} else {
			stdLog.Printf("Created product: %s", products[i].Code)
		}
	}

	// 走采购入库路径灌入库存，保证每笔初始库存都有台账流水
	nearExpiry := time.Now().AddDate(0, 1, 0)
	farExpiry := time.Now().AddDate(1, 0, 0)
	receipts := []service.ReceiveStockInput{
		{ProductID: products[0].ID, WarehouseID: warehouses[0].ID, LotCode: "LOT-2026-08-A", ExpirationDate: &nearExpiry, Quantity: 100, DocumentRef: "seed-po-0001"},
		{ProductID: products[0].ID, WarehouseID: warehouses[0].ID, LotCode: "LOT-2026-12-B", ExpirationDate: &farExpiry, Quantity: 70, DocumentRef: "seed-po-0002"},
		{ProductID: products[1].ID, WarehouseID: warehouses[0].ID, LotCode: "LOT-OIL-01", ExpirationDate: &farExpiry, Quantity: 60, DocumentRef: "seed-po-0003"},
		{ProductID: products[2].ID, WarehouseID: warehouses[1].ID, LotCode: "LOT-MILK-01", ExpirationDate: &nearExpiry, Quantity: 200, DocumentRef: "seed-po-0004"},
		{ProductID: products[3].ID, WarehouseID: warehouses[1].ID, Quantity: 50, DocumentRef: "seed-po-0005"},
	}
	unitCosts := []string{"85.50", "85.50", "42.00", "6.80", "4.20"}
	for i, input := range receipts {
		if input.ProductID == 0 || input.WarehouseID == 0 {
			stdLog.Printf("Skip receipt %s: missing product or warehouse", input.DocumentRef)
			continue
		}
		cost, err := models.NewMoneyFromString(unitCosts[i])
		if err == nil {
			input.UnitCost = &cost
		}
		lot, err := container.StockService.ReceiveStock(input)
		if err != nil {
			stdLog.Printf("Failed to receive stock %s: %v", input.DocumentRef, err)
			continue
		}
		stdLog.Printf("Received stock: lot=%d product=%d qty=%d", lot.ID, input.ProductID, input.Quantity)
	}

	// 示例报价单
	quote := &models.Quote{
		QuoteNo:     "Q-SEED-0001",
		WarehouseID: &warehouses[0].ID,
		Lines: []models.QuoteLine{
			{ProductID: products[0].ID, Quantity: 30},
			{ProductID: products[1].ID, Quantity: 10},
		},
	}
	if existing, err := container.QuoteRepo.GetByQuoteNo(quote.QuoteNo); err == nil && existing == nil {
		if err := container.QuoteStockService.CreateQuote(quote); err != nil {
			stdLog.Printf("Failed to create quote %s: %v", quote.QuoteNo, err)
		} else {
			stdLog.Printf("Created quote: %s", quote.QuoteNo)
		}
	} else if existing != nil {
		stdLog.Printf("Quote already exists: %s", quote.QuoteNo)
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 2 Warehouses")
	fmt.Println("- 4 Products")
	fmt.Println("- 5 Stock receipts (with ledger entries)")
	fmt.Println("- 1 Sample quote")
}
