package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupReservationServiceTest(t *testing.T) (*ReservationService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:reservation_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := NewReservationService(
		repository.NewStockLotRepository(db),
		repository.NewReservationRepository(db),
		repository.NewStockLedgerRepository(db),
	)
	return svc, db
}

func createServiceTestLot(t *testing.T, db *gorm.DB, productID uint, lotCode string, total int64) *models.StockLot {
	t.Helper()
	lot := &models.StockLot{
		ProductID:    productID,
		WarehouseID:  1,
		LotCode:      lotCode,
		TotalQty:     total,
		AvailableQty: total,
	}
	if err := db.Create(lot).Error; err != nil {
		t.Fatalf("create stock lot failed: %v", err)
	}
	return lot
}

func reserveForTest(t *testing.T, svc *ReservationService, lotID, quoteID uint, qty int64, ttl time.Duration) *models.Reservation {
	t.Helper()
	var reservation *models.Reservation
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		reservation, err = svc.ReserveOneTx(tx, lotID, quoteID, qty, ttl)
		return err
	})
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	return reservation
}

func reloadServiceLot(t *testing.T, db *gorm.DB, id uint) *models.StockLot {
	t.Helper()
	var lot models.StockLot
	if err := db.First(&lot, id).Error; err != nil {
		t.Fatalf("reload stock lot failed: %v", err)
	}
	return &lot
}

func TestReserveOneTxInsufficientStock(t *testing.T) {
	svc, db := setupReservationServiceTest(t)
	lot := createServiceTestLot(t, db, 1, "LOT-A", 10)

	reservation := reserveForTest(t, svc, lot.ID, 100, 6, time.Hour)
	if reservation.Status != constants.ReservationStatusActive || reservation.Quantity != 6 {
		t.Fatalf("unexpected reservation: status=%s quantity=%d", reservation.Status, reservation.Quantity)
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ReserveOneTx(tx, lot.ID, 101, 5, time.Hour)
		return err
	})
	if err != ErrInsufficientStock {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	got := reloadServiceLot(t, db, lot.ID)
	if got.AvailableQty != 4 || got.ReservedQty != 6 {
		t.Fatalf("unexpected quantities: available=%d reserved=%d", got.AvailableQty, got.ReservedQty)
	}
}

func TestReserveOneTxConcurrentRace(t *testing.T) {
	svc, db := setupReservationServiceTest(t)
	lot := createServiceTestLot(t, db, 1, "LOT-A", 5)

	// 两个并发预占抢同一批次的全部可用量，恰好一个成功
	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(quoteID uint) {
			defer wg.Done()
			results <- models.DB.Transaction(func(tx *gorm.DB) error {
				_, err := svc.ReserveOneTx(tx, lot.ID, quoteID, 5, time.Hour)
				return err
			})
		}(uint(100 + i))
	}
	wg.Wait()
	close(results)

	succeeded, insufficient := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || insufficient != 1 {
		t.Fatalf("expected exactly one winner: succeeded=%d insufficient=%d", succeeded, insufficient)
	}

	got := reloadServiceLot(t, db, lot.ID)
	if got.TotalQty != 5 || got.AvailableQty != 0 || got.ReservedQty != 5 {
		t.Fatalf("unexpected quantities: total=%d available=%d reserved=%d", got.TotalQty, got.AvailableQty, got.ReservedQty)
	}
	if !got.InvariantHolds() {
		t.Fatalf("invariant broken after concurrent reserve")
	}
}

func TestReserveOneTxRecheckDetectsCorruption(t *testing.T) {
	svc, db := setupReservationServiceTest(t)
	lot := createServiceTestLot(t, db, 1, "LOT-A", 5)

	// 直接制造 total != available + reserved 的脏数据
	if err := db.Model(&models.StockLot{}).Where("id = ?", lot.ID).
		Update("available_qty", 9).Error; err != nil {
		t.Fatalf("corrupt lot failed: %v", err)
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		_, err := svc.ReserveOneTx(tx, lot.ID, 100, 5, time.Hour)
		return err
	})
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected ErrInvariantViolation, got %v", err)
	}

	// 事务回滚，不留下预占记录
	var count int64
	if err := db.Model(&models.Reservation{}).Count(&count).Error; err != nil || count != 0 {
		t.Fatalf("expected no reservations after rollback, count=%d err=%v", count, err)
	}
}

func TestConsumeAllAllOrNothing(t *testing.T) {
	svc, db := setupReservationServiceTest(t)
	lotA := createServiceTestLot(t, db, 1, "LOT-A", 50)
	lotB := createServiceTestLot(t, db, 2, "LOT-B", 30)

	reserveForTest(t, svc, lotA.ID, 100, 20, time.Hour)
	reserveForTest(t, svc, lotB.ID, 100, 10, time.Hour)

	consumed, err := svc.ConsumeAll(100, "sale-1", 7)
	if err != nil {
		t.Fatalf("consume failed: %v", err)
	}
	if !consumed {
		t.Fatalf("expected consumed=true")
	}

	gotA := reloadServiceLot(t, db, lotA.ID)
	gotB := reloadServiceLot(t, db, lotB.ID)
	if gotA.TotalQty != 30 || gotA.ReservedQty != 0 || gotA.AvailableQty != 30 {
		t.Fatalf("unexpected lot A: total=%d available=%d reserved=%d", gotA.TotalQty, gotA.AvailableQty, gotA.ReservedQty)
	}
	if gotB.TotalQty != 20 || gotB.ReservedQty != 0 {
		t.Fatalf("unexpected lot B: total=%d reserved=%d", gotB.TotalQty, gotB.ReservedQty)
	}

	var entries []models.StockLedgerEntry
	if err := db.Where("kind = ?", constants.LedgerKindReserveConsume).Find(&entries).Error; err != nil {
		t.Fatalf("load ledger failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 consume entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.DocumentRef != "sale-1" || entry.ActorID != 7 {
			t.Fatalf("unexpected ledger entry: ref=%s actor=%d", entry.DocumentRef, entry.ActorID)
		}
	}

	// 重复消耗：无活动预占，幂等空操作
	consumed, err = svc.ConsumeAll(100, "sale-1", 7)
	if err != nil || consumed {
		t.Fatalf("repeat consume must be a no-op: consumed=%v err=%v", consumed, err)
	}
}

func TestConsumeAllRejectsExpired(t *testing.T) {
	svc, db := setupReservationServiceTest(t)
	lotA := createServiceTestLot(t, db, 1, "LOT-A", 50)
	lotB := createServiceTestLot(t, db, 2, "LOT-B", 30)

	reserveForTest(t, svc, lotA.ID, 100, 20, time.Hour)
	expired := reserveForTest(t, svc, lotB.ID, 100, 10, time.Hour)
	if err := db.Model(&models.Reservation{}).Where("id = ?", expired.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate reservation failed: %v", err)
	}

	// 任一预占过期则整体拒绝，库存分毫不动
	consumed, err := svc.ConsumeAll(100, "sale-1", 0)
	if err != ErrReservationExpired || consumed {
		t.Fatalf("expected ErrReservationExpired, got consumed=%v err=%v", consumed, err)
	}

	gotA := reloadServiceLot(t, db, lotA.ID)
	if gotA.TotalQty != 50 || gotA.ReservedQty != 20 {
		t.Fatalf("lot A must be untouched: total=%d reserved=%d", gotA.TotalQty, gotA.ReservedQty)
	}
	var count int64
	if err := db.Model(&models.StockLedgerEntry{}).Count(&count).Error; err != nil || count != 0 {
		t.Fatalf("expected empty ledger, count=%d err=%v", count, err)
	}
}

func TestConsumeAllMultipleReservationsSameLot(t *testing.T) {
	svc, db := setupReservationServiceTest(t)
	lot := createServiceTestLot(t, db, 1, "LOT-A", 40)

	reserveForTest(t, svc, lot.ID, 100, 15, time.Hour)
	reserveForTest(t, svc, lot.ID, 100, 10, time.Hour)

	consumed, err := svc.ConsumeAll(100, "sale-1", 0)
	if err != nil || !consumed {
		t.Fatalf("consume failed: consumed=%v err=%v", consumed, err)
	}

	got := reloadServiceLot(t, db, lot.ID)
	if got.TotalQty != 15 || got.AvailableQty != 15 || got.ReservedQty != 0 {
		t.Fatalf("unexpected quantities: total=%d available=%d reserved=%d", got.TotalQty, got.AvailableQty, got.ReservedQty)
	}

	// 同一批次的两条流水 before/after 必须首尾相接
	var entries []models.StockLedgerEntry
	if err := db.Where("stock_lot_id = ?", lot.ID).Order("id asc").Find(&entries).Error; err != nil {
		t.Fatalf("load ledger failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].QuantityBefore != 40 || entries[0].QuantityAfter != 25 {
		t.Fatalf("unexpected first entry: before=%d after=%d", entries[0].QuantityBefore, entries[0].QuantityAfter)
	}
	if entries[1].QuantityBefore != 25 || entries[1].QuantityAfter != 15 {
		t.Fatalf("unexpected second entry: before=%d after=%d", entries[1].QuantityBefore, entries[1].QuantityAfter)
	}
}

func TestReleaseAllRestoresAvailability(t *testing.T) {
	svc, db := setupReservationServiceTest(t)
	lot := createServiceTestLot(t, db, 1, "LOT-A", 30)

	reserveForTest(t, svc, lot.ID, 100, 12, time.Hour)
	reserveForTest(t, svc, lot.ID, 100, 8, time.Hour)

	released, err := svc.ReleaseAll(100, constants.ReleaseReasonAbandoned)
	if err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if released != 2 {
		t.Fatalf("expected 2 released, got %d", released)
	}

	got := reloadServiceLot(t, db, lot.ID)
	if got.TotalQty != 30 || got.AvailableQty != 30 || got.ReservedQty != 0 {
		t.Fatalf("unexpected quantities: total=%d available=%d reserved=%d", got.TotalQty, got.AvailableQty, got.ReservedQty)
	}

	var reservations []models.Reservation
	if err := db.Where("quote_id = ?", 100).Find(&reservations).Error; err != nil {
		t.Fatalf("load reservations failed: %v", err)
	}
	for _, r := range reservations {
		if r.Status != constants.ReservationStatusReleased || r.ReleasedReason != constants.ReleaseReasonAbandoned {
			t.Fatalf("unexpected reservation state: status=%s reason=%s", r.Status, r.ReleasedReason)
		}
	}

	// 再次释放：无活动预占，返回 0
	released, err = svc.ReleaseAll(100, constants.ReleaseReasonAbandoned)
	if err != nil || released != 0 {
		t.Fatalf("repeat release must be a no-op: released=%d err=%v", released, err)
	}
}

func TestReleaseExpiredSweepsOnlyExpired(t *testing.T) {
	svc, db := setupReservationServiceTest(t)
	lot := createServiceTestLot(t, db, 1, "LOT-A", 30)

	expired := reserveForTest(t, svc, lot.ID, 100, 10, time.Hour)
	reserveForTest(t, svc, lot.ID, 101, 5, time.Hour)
	if err := db.Model(&models.Reservation{}).Where("id = ?", expired.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate reservation failed: %v", err)
	}

	released, err := svc.ReleaseExpired(time.Now(), 100)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if released != 1 {
		t.Fatalf("expected 1 released, got %d", released)
	}

	got := reloadServiceLot(t, db, lot.ID)
	if got.AvailableQty != 25 || got.ReservedQty != 5 {
		t.Fatalf("unexpected quantities: available=%d reserved=%d", got.AvailableQty, got.ReservedQty)
	}

	var swept models.Reservation
	if err := db.First(&swept, expired.ID).Error; err != nil {
		t.Fatalf("load reservation failed: %v", err)
	}
	if swept.Status != constants.ReservationStatusReleased || swept.ReleasedReason != constants.ReleaseReasonExpired {
		t.Fatalf("unexpected swept state: status=%s reason=%s", swept.Status, swept.ReleasedReason)
	}
}

func TestReleaseExpiredByQuoteSkipsAlive(t *testing.T) {
	svc, db := setupReservationServiceTest(t)
	lot := createServiceTestLot(t, db, 1, "LOT-A", 30)

	expired := reserveForTest(t, svc, lot.ID, 100, 10, time.Hour)
	alive := reserveForTest(t, svc, lot.ID, 100, 5, time.Hour)
	if err := db.Model(&models.Reservation{}).Where("id = ?", expired.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error; err != nil {
		t.Fatalf("backdate reservation failed: %v", err)
	}

	// 超时任务只释放已过期的，未到期的预占不受影响
	released, err := svc.ReleaseExpiredByQuote(100, time.Now())
	if err != nil || released != 1 {
		t.Fatalf("expected 1 released, got %d err=%v", released, err)
	}

	var kept models.Reservation
	if err := db.First(&kept, alive.ID).Error; err != nil {
		t.Fatalf("load reservation failed: %v", err)
	}
	if kept.Status != constants.ReservationStatusActive {
		t.Fatalf("alive reservation must stay active, got %s", kept.Status)
	}
}
