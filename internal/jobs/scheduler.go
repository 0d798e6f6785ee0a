package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/yourusername/parajuriste-api/internal/service"
	"github.com/yourusername/parajuriste-api/pkg/logger"
)

const (
	statsLockKey = "jobs:stats:lock"
	jobTimeout   = 2 * time.Minute
)

// StatsRefresher пересчитывает снимок статистики для сотрудников
type StatsRefresher interface {
	RefreshStatistics(ctx context.Context) (*service.StatisticsView, error)
}

// Locker — распределенная блокировка, чтобы задачу выполнял один инстанс
type Locker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}

// Scheduler запускает фоновые задачи по cron расписанию
type Scheduler struct {
	cron     *cron.Cron
	stats    StatsRefresher
	locker   Locker
	schedule string
	log      *zap.Logger
	timeout  time.Duration
}

// NewScheduler создает планировщик. locker может быть nil
func NewScheduler(stats StatsRefresher, locker Locker, schedule string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		stats:    stats,
		locker:   locker,
		schedule: schedule,
		log:      logger.Log.Named("jobs"),
		timeout:  jobTimeout,
	}
}

// Start регистрирует задачи и запускает cron
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.RefreshStats); err != nil {
		return fmt.Errorf("invalid stats cron schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()
	s.log.Info("scheduler started", zap.String("stats_schedule", s.schedule))
	return nil
}

// Stop останавливает cron и ждет завершения текущих задач
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

// RefreshStats пересчитывает статистику, если блокировка получена
func (s *Scheduler) RefreshStats() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if s.locker != nil {
		ok, err := s.locker.SetNX(ctx, statsLockKey, time.Now().Unix(), s.timeout)
		if err != nil {
			// Redis недоступен, считаем локально
			s.log.Warn("stats lock unavailable", zap.Error(err))
		} else if !ok {
			s.log.Debug("stats refresh already running elsewhere")
			return
		}
	}

	started := time.Now()
	view, err := s.stats.RefreshStatistics(ctx)
	if err != nil {
		s.log.Error("stats refresh failed", zap.Error(err))
		return
	}
	s.log.Info("stats refreshed",
		zap.Int64("total_users", view.TotalUsers),
		zap.Duration("took", time.Since(started)),
	)
}
