package worker

import (
	"context"
	"errors"
	"time"

	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/cache"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/config"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/constants"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/logger"
	"github.com/FernandoPintoL/distribuidora-paucara-sub013/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	sweepBatchLimit = 500
)

// Service 异步队列服务：承载超时释放任务消费与过期预占清扫循环
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.ReservationService != nil {
		go s.runExpirySweepLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runExpirySweepLoop 过期预占清扫循环。延迟任务丢失时的兜底路径：
// 周期性释放所有已过期的活动预占。多实例部署时通过 Redis SETNX
// 保证每个周期只有一个实例实际执行。
func (s *Service) runExpirySweepLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.ReservationService == nil {
		return
	}
	interval := s.sweepInterval()

	runOnce := func() {
		acquired, err := cache.AcquireOnce(ctx, "sweep:leader", interval/2)
		if err != nil {
			logger.Warnw("worker_sweep_leader_check_failed", "error", err)
			return
		}
		if !acquired {
			return
		}
		released, err := s.consumer.ReservationService.ReleaseExpired(time.Now(), sweepBatchLimit)
		if err != nil {
			logger.Warnw("worker_expiry_sweep_failed", "error", err)
			return
		}
		if released > 0 {
			logger.Infow("worker_expiry_sweep_done", "released", released)
		}
	}
	runOnce()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

func (s *Service) sweepInterval() time.Duration {
	minutes := constants.DefaultSweepIntervalMinutes
	if s.consumer != nil && s.consumer.Config != nil && s.consumer.Config.Stock.SweepIntervalMinutes > 0 {
		minutes = s.consumer.Config.Stock.SweepIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}
