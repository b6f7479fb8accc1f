package repository

import (
	"fmt"
	"strings"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var lockWaitTimeoutMS = constants.DefaultLockTimeoutMilliseconds

// SetLockWaitTimeout 配置行锁等待超时（毫秒），启动时由配置注入，非正值忽略。
func SetLockWaitTimeout(ms int) {
	if ms > 0 {
		lockWaitTimeoutMS = ms
	}
}

// lockTimeoutStatement 构建行锁等待超时语句。仅 postgres 需要：
// SET LOCAL 随事务结束自动失效。sqlite 的写等待上限由连接串的
// busy_timeout 承担，返回空串。
func lockTimeoutStatement(dialect string, ms int) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)
	default:
		return ""
	}
}

// applyLockWaitTimeout 在持锁查询前设置等待上限，让 FOR UPDATE 超时报错
// 而非无限阻塞；超时错误由 service 层翻译为可重试的 ErrLockTimeout。
func applyLockWaitTimeout(db *gorm.DB) error {
	stmt := lockTimeoutStatement(dbDialectName(db), lockWaitTimeoutMS)
	if stmt == "" {
		return nil
	}
	return db.Exec(stmt).Error
}

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

// expiryFIFOOrderExpr 构建按到期日先进先出的排序表达式，NULL（无到期日）排在最后，
// 同到期日按插入顺序（id 升序）兜底。兼容 sqlite 与 postgres。
func expiryFIFOOrderExpr(db *gorm.DB) string {
	return expiryFIFOOrderExprByDialect(dbDialectName(db))
}

func expiryFIFOOrderExprByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "expiration_date ASC NULLS LAST, id ASC"
	default:
		// sqlite 默认把 NULL 排在最前，用 CASE 把无到期日的批次压到末尾
		return "CASE WHEN expiration_date IS NULL THEN 1 ELSE 0 END, expiration_date ASC, id ASC"
	}
}

// withRowLock 在支持行锁的方言上附加 SELECT ... FOR UPDATE。
// sqlite 是单写者引擎且语法不支持 FOR UPDATE，直接跳过。
func withRowLock(db *gorm.DB) *gorm.DB {
	switch dbDialectName(db) {
	case "postgres", "postgresql":
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	default:
		return db
	}
}
