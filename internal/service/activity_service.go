package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
	"github.com/yourusername/parajuriste-api/pkg/logger"
)

// ActivityService ведет журнал действий пользователя
type ActivityService struct {
	activityRepo repository.ActivityRepository
	listLimit    int
	now          func() time.Time
}

// NewActivityService создает сервис журнала активности
func NewActivityService(activityRepo repository.ActivityRepository, listLimit int) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		listLimit:    listLimit,
		now:          time.Now,
	}
}

// Record stores one activity. The type must be one of the canonical activity types.
func (s *ActivityService) Record(
	ctx context.Context,
	userID uint,
	activityType string,
	moduleID *uint,
	details map[string]interface{},
	meta RequestMeta,
) (*entity.UserActivity, error) {
	if !entity.IsValidActivityType(activityType) {
		return nil, fmt.Errorf("%w: unknown activity type %q", apperrors.ErrValidation, activityType)
	}
	if details == nil {
		details = map[string]interface{}{}
	}

	activity := &entity.UserActivity{
		UserID:       userID,
		ActivityType: activityType,
		ModuleID:     moduleID,
		Details:      datatypes.JSONMap(details),
		Timestamp:    s.now(),
		SessionID:    meta.SessionID,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
	}
	if err := s.activityRepo.Create(ctx, activity); err != nil {
		return nil, fmt.Errorf("record %s activity: %w", activityType, err)
	}
	return activity, nil
}

// RecordBestEffort is Record for side effects that must not fail the caller.
func (s *ActivityService) RecordBestEffort(
	ctx context.Context,
	userID uint,
	activityType string,
	moduleID *uint,
	details map[string]interface{},
	meta RequestMeta,
) {
	if _, err := s.Record(ctx, userID, activityType, moduleID, details, meta); err != nil {
		logger.Log.Named("activity").Warn("failed to record activity",
			zap.Uint("user_id", userID),
			zap.String("type", activityType),
			zap.Error(err),
		)
	}
}

// List возвращает последние действия пользователя
func (s *ActivityService) List(ctx context.Context, userID uint) ([]entity.UserActivity, error) {
	return s.activityRepo.ListByUser(ctx, userID, s.listLimit)
}
