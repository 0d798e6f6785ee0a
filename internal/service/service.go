package service

import (
	"context"
	"fmt"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
)

// ProgressAggregator recomputes a user's overall progress. Implemented by progress.Aggregator.
type ProgressAggregator interface {
	Recompute(ctx context.Context, user *entity.User) (*entity.OverallProgress, error)
	NextModule(ctx context.Context, user *entity.User) (*entity.Module, error)
	CompletedModules(ctx context.Context, user *entity.User) (map[uint]bool, []entity.Module, error)
}

// RequestMeta описывает клиента, выполнившего запрос (для журнала активности)
type RequestMeta struct {
	SessionID string
	IPAddress string
	UserAgent string
}

func loadUser(ctx context.Context, users repository.UserRepository, userID uint) (*entity.User, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user #%d: %w", userID, err)
	}
	return user, nil
}

func requireStaff(ctx context.Context, users repository.UserRepository, userID uint) error {
	user, err := loadUser(ctx, users, userID)
	if err != nil {
		return err
	}
	if !user.IsStaff {
		return fmt.Errorf("%w: staff only", apperrors.ErrForbidden)
	}
	return nil
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
