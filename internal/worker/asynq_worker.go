package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/logger"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/provider"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/queue"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskQuoteTimeoutRelease, c.handleQuoteTimeoutRelease)
}

// handleQuoteTimeoutRelease 预占超时释放任务。只释放确已过期的预占：
// 报价单已消耗或已释放时任务自然落空，无需额外去重。
func (c *Consumer) handleQuoteTimeoutRelease(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_quote_timeout_release_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.QuoteTimeoutReleasePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_quote_timeout_release_unmarshal_failed", "error", err)
		return err
	}
	if payload.QuoteID == 0 {
		logger.Debugw("worker_quote_timeout_release_skip_invalid_payload", "quote_id", payload.QuoteID)
		return nil
	}
	if c.ReservationService == nil {
		logger.Warnw("worker_quote_timeout_release_skip_service_nil", "quote_id", payload.QuoteID)
		return nil
	}
	released, err := c.ReservationService.ReleaseExpiredByQuote(payload.QuoteID, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrQuoteNotFound):
			logger.Debugw("worker_quote_timeout_release_skip_quote_not_found", "quote_id", payload.QuoteID)
			return nil
		case errors.Is(err, service.ErrLockTimeout):
			logger.Warnw("worker_quote_timeout_release_lock_timeout", "quote_id", payload.QuoteID, "error", err)
			return err
		default:
			logger.Warnw("worker_quote_timeout_release_failed", "quote_id", payload.QuoteID, "error", err)
			return err
		}
	}
	if released > 0 {
		logger.Infow("worker_quote_timeout_released", "quote_id", payload.QuoteID, "released", released)
	}
	return nil
}
