package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupReservationRepoTest(t *testing.T) (*GormReservationRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:reservation_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.StockLot{}, &models.Reservation{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewReservationRepository(db), db
}

func TestReservationStateTransitions(t *testing.T) {
	repo, _ := setupReservationRepoTest(t)

	reservation := &models.Reservation{
		StockLotID: 1,
		QuoteID:    10,
		Quantity:   5,
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	if err := repo.Create(reservation); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if reservation.Status != constants.ReservationStatusActive {
		t.Fatalf("expected default active status, got %s", reservation.Status)
	}

	affected, err := repo.MarkConsumed(reservation.ID)
	if err != nil {
		t.Fatalf("mark consumed failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected consume transition, affected=%d", affected)
	}

	// 终态不可再迁移
	if affected, err := repo.MarkReleased(reservation.ID, constants.ReleaseReasonManual); err != nil || affected != 0 {
		t.Fatalf("release after consume should not apply: affected=%d err=%v", affected, err)
	}
	if affected, err := repo.MarkConsumed(reservation.ID); err != nil || affected != 0 {
		t.Fatalf("double consume should not apply: affected=%d err=%v", affected, err)
	}

	got, err := repo.GetByID(reservation.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != constants.ReservationStatusConsumed {
		t.Fatalf("expected consumed, got %s", got.Status)
	}
}

func TestReservationMarkReleasedStoresReason(t *testing.T) {
	repo, _ := setupReservationRepoTest(t)

	reservation := &models.Reservation{
		StockLotID: 1,
		QuoteID:    11,
		Quantity:   3,
		ExpiresAt:  time.Now().Add(time.Hour),
	}
	if err := repo.Create(reservation); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	affected, err := repo.MarkReleased(reservation.ID, constants.ReleaseReasonAbandoned)
	if err != nil || affected != 1 {
		t.Fatalf("mark released failed: affected=%d err=%v", affected, err)
	}

	got, err := repo.GetByID(reservation.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != constants.ReservationStatusReleased || got.ReleasedReason != constants.ReleaseReasonAbandoned {
		t.Fatalf("unexpected release state: status=%s reason=%s", got.Status, got.ReleasedReason)
	}
}

func TestReservationListExpired(t *testing.T) {
	repo, _ := setupReservationRepoTest(t)
	now := time.Now()

	expired := &models.Reservation{StockLotID: 1, QuoteID: 20, Quantity: 2, ExpiresAt: now.Add(-time.Minute)}
	alive := &models.Reservation{StockLotID: 1, QuoteID: 21, Quantity: 2, ExpiresAt: now.Add(time.Hour)}
	terminal := &models.Reservation{StockLotID: 1, QuoteID: 22, Quantity: 2, ExpiresAt: now.Add(-time.Hour)}
	for _, r := range []*models.Reservation{expired, alive, terminal} {
		if err := repo.Create(r); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if affected, err := repo.MarkReleased(terminal.ID, constants.ReleaseReasonExpired); err != nil || affected != 1 {
		t.Fatalf("mark released failed: affected=%d err=%v", affected, err)
	}

	// 只有过期且仍为 active 的预占进入清扫范围
	got, err := repo.ListExpired(now, 10)
	if err != nil {
		t.Fatalf("list expired failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != expired.ID {
		t.Fatalf("expected only the expired active reservation, got %d rows", len(got))
	}

	active, err := repo.HasActiveByQuote(21)
	if err != nil || !active {
		t.Fatalf("expected quote 21 to have active reservation: %v", err)
	}
	active, err = repo.HasActiveByQuote(22)
	if err != nil || active {
		t.Fatalf("expected quote 22 to have no active reservation: %v", err)
	}
}
