package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/config"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/queue"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupQuoteStockTest(t *testing.T) (*QuoteStockService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:quote_stock_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Warehouse{},
		&models.StockLot{},
		&models.Reservation{},
		&models.StockLedgerEntry{},
		&models.Quote{},
		&models.QuoteLine{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	lotRepo := repository.NewStockLotRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	reservations := NewReservationService(lotRepo, reservationRepo, repository.NewStockLedgerRepository(db))
	queueClient, err := queue.NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("create queue client failed: %v", err)
	}

	svc := NewQuoteStockService(
		repository.NewQuoteRepository(db),
		repository.NewProductRepository(db),
		lotRepo,
		reservationRepo,
		reservations,
		queueClient,
		time.Hour,
	)
	return svc, db
}

func createQuoteTestLot(t *testing.T, db *gorm.DB, productID, warehouseID uint, lotCode string, total int64, expiry *time.Time) *models.StockLot {
	t.Helper()
	lot := &models.StockLot{
		ProductID:      productID,
		WarehouseID:    warehouseID,
		LotCode:        lotCode,
		TotalQty:       total,
		AvailableQty:   total,
		ExpirationDate: expiry,
	}
	if err := db.Create(lot).Error; err != nil {
		t.Fatalf("create stock lot failed: %v", err)
	}
	return lot
}

func createQuoteForTest(t *testing.T, svc *QuoteStockService, quoteNo string, warehouseID *uint, lines []models.QuoteLine) *models.Quote {
	t.Helper()
	quote := &models.Quote{QuoteNo: quoteNo, WarehouseID: warehouseID, Lines: lines}
	if err := svc.CreateQuote(quote); err != nil {
		t.Fatalf("create quote failed: %v", err)
	}
	return quote
}

func TestCreateQuoteValidation(t *testing.T) {
	svc, db := setupQuoteStockTest(t)
	product := createTestProduct(t, db, "SKU-A")

	if err := svc.CreateQuote(&models.Quote{QuoteNo: "Q-1"}); err != ErrQuoteEmpty {
		t.Fatalf("expected ErrQuoteEmpty, got %v", err)
	}
	if err := svc.CreateQuote(&models.Quote{QuoteNo: "Q-1", Lines: []models.QuoteLine{{ProductID: product.ID, Quantity: 0}}}); err != ErrInsufficientStock {
		t.Fatalf("expected ErrInsufficientStock for zero quantity, got %v", err)
	}
	if err := svc.CreateQuote(&models.Quote{QuoteNo: "Q-1", Lines: []models.QuoteLine{{ProductID: 999, Quantity: 1}}}); err != ErrProductNotFound {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if err := svc.CreateQuote(&models.Quote{QuoteNo: "Q-1", Lines: []models.QuoteLine{{ProductID: product.ID, Quantity: 3}}}); err != nil {
		t.Fatalf("valid quote failed: %v", err)
	}
}

func TestReserveForQuoteFIFOAcrossLots(t *testing.T) {
	svc, db := setupQuoteStockTest(t)
	product := createTestProduct(t, db, "SKU-A")
	warehouse := createTestWarehouse(t, db, "WH-A")

	far := time.Now().AddDate(1, 0, 0)
	near := time.Now().AddDate(0, 1, 0)
	// 先建远期批次，近效期批次 id 更大，验证排序确实按到期日
	farLot := createQuoteTestLot(t, db, product.ID, warehouse.ID, "LOT-FAR", 70, &far)
	nearLot := createQuoteTestLot(t, db, product.ID, warehouse.ID, "LOT-NEAR", 100, &near)

	quote := createQuoteForTest(t, svc, "Q-1", &warehouse.ID, []models.QuoteLine{
		{ProductID: product.ID, Quantity: 130},
	})

	reservations, err := svc.ReserveForQuote(quote.ID)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if len(reservations) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(reservations))
	}
	// 近效期批次吃满，剩余落到远期批次
	if reservations[0].StockLotID != nearLot.ID || reservations[0].Quantity != 100 {
		t.Fatalf("unexpected first reservation: lot=%d qty=%d", reservations[0].StockLotID, reservations[0].Quantity)
	}
	if reservations[1].StockLotID != farLot.ID || reservations[1].Quantity != 30 {
		t.Fatalf("unexpected second reservation: lot=%d qty=%d", reservations[1].StockLotID, reservations[1].Quantity)
	}

	gotNear := reloadServiceLot(t, db, nearLot.ID)
	gotFar := reloadServiceLot(t, db, farLot.ID)
	if gotNear.AvailableQty != 0 || gotFar.AvailableQty != 40 {
		t.Fatalf("unexpected availability: near=%d far=%d", gotNear.AvailableQty, gotFar.AvailableQty)
	}
}

func TestReserveForQuoteAllOrNothing(t *testing.T) {
	svc, db := setupQuoteStockTest(t)
	productA := createTestProduct(t, db, "SKU-A")
	productB := createTestProduct(t, db, "SKU-B")
	warehouse := createTestWarehouse(t, db, "WH-A")

	lotA := createQuoteTestLot(t, db, productA.ID, warehouse.ID, "LOT-A", 50, nil)
	lotB := createQuoteTestLot(t, db, productB.ID, warehouse.ID, "LOT-B", 5, nil)

	quote := createQuoteForTest(t, svc, "Q-1", &warehouse.ID, []models.QuoteLine{
		{ProductID: productA.ID, Quantity: 40}, // 够
		{ProductID: productB.ID, Quantity: 10}, // 不够
	})

	// 第二行缺口导致整体回滚，第一行的预占也不能留下
	if _, err := svc.ReserveForQuote(quote.ID); err != ErrInsufficientStock {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	gotA := reloadServiceLot(t, db, lotA.ID)
	gotB := reloadServiceLot(t, db, lotB.ID)
	if gotA.AvailableQty != 50 || gotA.ReservedQty != 0 {
		t.Fatalf("lot A must be untouched: available=%d reserved=%d", gotA.AvailableQty, gotA.ReservedQty)
	}
	if gotB.AvailableQty != 5 || gotB.ReservedQty != 0 {
		t.Fatalf("lot B must be untouched: available=%d reserved=%d", gotB.AvailableQty, gotB.ReservedQty)
	}
	var count int64
	if err := db.Model(&models.Reservation{}).Count(&count).Error; err != nil || count != 0 {
		t.Fatalf("expected no reservations, count=%d err=%v", count, err)
	}
}

func TestReserveForQuoteIdempotent(t *testing.T) {
	svc, db := setupQuoteStockTest(t)
	product := createTestProduct(t, db, "SKU-A")
	warehouse := createTestWarehouse(t, db, "WH-A")
	lot := createQuoteTestLot(t, db, product.ID, warehouse.ID, "LOT-A", 100, nil)

	quote := createQuoteForTest(t, svc, "Q-1", &warehouse.ID, []models.QuoteLine{
		{ProductID: product.ID, Quantity: 30},
	})

	first, err := svc.ReserveForQuote(quote.ID)
	if err != nil || len(first) != 1 {
		t.Fatalf("first reserve failed: len=%d err=%v", len(first), err)
	}

	// 重复预占：返回已有活动预占，不叠加扣减
	second, err := svc.ReserveForQuote(quote.ID)
	if err != nil {
		t.Fatalf("repeat reserve failed: %v", err)
	}
	if len(second) != 1 || second[0].ID != first[0].ID {
		t.Fatalf("expected existing reservation back, got %d rows", len(second))
	}

	got := reloadServiceLot(t, db, lot.ID)
	if got.AvailableQty != 70 || got.ReservedQty != 30 {
		t.Fatalf("unexpected quantities: available=%d reserved=%d", got.AvailableQty, got.ReservedQty)
	}
}

func TestConsumeForQuoteLifecycle(t *testing.T) {
	svc, db := setupQuoteStockTest(t)
	product := createTestProduct(t, db, "SKU-A")
	warehouse := createTestWarehouse(t, db, "WH-A")
	lot := createQuoteTestLot(t, db, product.ID, warehouse.ID, "LOT-A", 100, nil)

	quote := createQuoteForTest(t, svc, "Q-1", &warehouse.ID, []models.QuoteLine{
		{ProductID: product.ID, Quantity: 30},
	})
	if _, err := svc.ReserveForQuote(quote.ID); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	status, _, err := svc.StockStatus(quote.ID)
	if err != nil || status != constants.QuoteStockStatusReserved {
		t.Fatalf("expected reserved status, got %s err=%v", status, err)
	}

	consumed, err := svc.ConsumeForQuote(quote.ID, "sale-1", 0)
	if err != nil || !consumed {
		t.Fatalf("consume failed: consumed=%v err=%v", consumed, err)
	}
	got := reloadServiceLot(t, db, lot.ID)
	if got.TotalQty != 70 || got.ReservedQty != 0 {
		t.Fatalf("unexpected quantities: total=%d reserved=%d", got.TotalQty, got.ReservedQty)
	}

	// 重复确认幂等
	consumed, err = svc.ConsumeForQuote(quote.ID, "sale-1", 0)
	if err != nil || consumed {
		t.Fatalf("repeat consume must be a no-op: consumed=%v err=%v", consumed, err)
	}

	status, _, err = svc.StockStatus(quote.ID)
	if err != nil || status != constants.QuoteStockStatusConsumed {
		t.Fatalf("expected consumed status, got %s err=%v", status, err)
	}
}

func TestReleaseForQuoteDefaultsReason(t *testing.T) {
	svc, db := setupQuoteStockTest(t)
	product := createTestProduct(t, db, "SKU-A")
	warehouse := createTestWarehouse(t, db, "WH-A")
	createQuoteTestLot(t, db, product.ID, warehouse.ID, "LOT-A", 100, nil)

	quote := createQuoteForTest(t, svc, "Q-1", &warehouse.ID, []models.QuoteLine{
		{ProductID: product.ID, Quantity: 30},
	})
	if _, err := svc.ReserveForQuote(quote.ID); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	released, err := svc.ReleaseForQuote(quote.ID, "")
	if err != nil || released != 1 {
		t.Fatalf("release failed: released=%d err=%v", released, err)
	}

	var reservation models.Reservation
	if err := db.Where("quote_id = ?", quote.ID).First(&reservation).Error; err != nil {
		t.Fatalf("load reservation failed: %v", err)
	}
	if reservation.ReleasedReason != constants.ReleaseReasonAbandoned {
		t.Fatalf("expected default abandon reason, got %s", reservation.ReleasedReason)
	}

	status, _, err := svc.StockStatus(quote.ID)
	if err != nil || status != constants.QuoteStockStatusReleased {
		t.Fatalf("expected released status, got %s err=%v", status, err)
	}
}

func TestStockStatusUnknownQuote(t *testing.T) {
	svc, _ := setupQuoteStockTest(t)

	if _, _, err := svc.StockStatus(999); err != ErrQuoteNotFound {
		t.Fatalf("expected ErrQuoteNotFound, got %v", err)
	}
	if _, err := svc.ReserveForQuote(999); err != ErrQuoteNotFound {
		t.Fatalf("expected ErrQuoteNotFound, got %v", err)
	}
}
