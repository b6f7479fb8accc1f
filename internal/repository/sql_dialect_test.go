package repository

import (
	"testing"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"
)

func TestLockTimeoutStatementByDialect(t *testing.T) {
	got := lockTimeoutStatement("postgres", 3000)
	if got != "SET LOCAL lock_timeout = '3000ms'" {
		t.Fatalf("unexpected postgres statement: %s", got)
	}
	if got := lockTimeoutStatement("postgresql", 500); got != "SET LOCAL lock_timeout = '500ms'" {
		t.Fatalf("unexpected postgresql statement: %s", got)
	}
	// sqlite 由连接串 busy_timeout 承担等待上限，不发语句
	if got := lockTimeoutStatement("sqlite", 3000); got != "" {
		t.Fatalf("expected empty statement for sqlite, got %s", got)
	}
	if got := lockTimeoutStatement("", 3000); got != "" {
		t.Fatalf("expected empty statement for unknown dialect, got %s", got)
	}
}

func TestSetLockWaitTimeout(t *testing.T) {
	defer SetLockWaitTimeout(constants.DefaultLockTimeoutMilliseconds)

	SetLockWaitTimeout(750)
	if lockWaitTimeoutMS != 750 {
		t.Fatalf("expected 750, got %d", lockWaitTimeoutMS)
	}
	// 非正值忽略，保持上一次配置
	SetLockWaitTimeout(0)
	if lockWaitTimeoutMS != 750 {
		t.Fatalf("zero must be ignored, got %d", lockWaitTimeoutMS)
	}
	SetLockWaitTimeout(-1)
	if lockWaitTimeoutMS != 750 {
		t.Fatalf("negative must be ignored, got %d", lockWaitTimeoutMS)
	}
}

func TestExpiryFIFOOrderExprByDialect(t *testing.T) {
	if got := expiryFIFOOrderExprByDialect("postgres"); got != "expiration_date ASC NULLS LAST, id ASC" {
		t.Fatalf("unexpected postgres order expr: %s", got)
	}
	sqliteExpr := expiryFIFOOrderExprByDialect("sqlite")
	if sqliteExpr != "CASE WHEN expiration_date IS NULL THEN 1 ELSE 0 END, expiration_date ASC, id ASC" {
		t.Fatalf("unexpected sqlite order expr: %s", sqliteExpr)
	}
}
