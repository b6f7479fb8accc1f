package queue

import (
	"encoding/json"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskQuoteTimeoutRelease 报价单预占超时释放任务
	TaskQuoteTimeoutRelease = constants.TaskQuoteTimeoutRelease
)

// QuoteTimeoutReleasePayload 超时释放任务载荷
type QuoteTimeoutReleasePayload struct {
	QuoteID uint `json:"quote_id"`
}

// NewQuoteTimeoutReleaseTask 创建超时释放任务
func NewQuoteTimeoutReleaseTask(payload QuoteTimeoutReleasePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuoteTimeoutRelease, body), nil
}
