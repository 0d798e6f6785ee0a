package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
)

// ActivityRepository is the append-only user activity log.
type ActivityRepository interface {
	Create(ctx context.Context, activity *entity.UserActivity) error
	// ListByUser returns newest first; limit <= 0 means no limit.
	ListByUser(ctx context.Context, userID uint, limit int) ([]entity.UserActivity, error)
	CountActiveUsersSince(ctx context.Context, since time.Time) (int64, error)
}

// KeyCount is a grouped count, e.g. reports per status.
type KeyCount struct {
	Key   string
	Count int64
}

// ReportRepository stores community reports.
type ReportRepository interface {
	Create(ctx context.Context, report *entity.CommunityReport) error
	ListByUser(ctx context.Context, userID uint) ([]entity.CommunityReport, error)
	// GetByUser returns ErrNotFound for reports of other users.
	GetByUser(ctx context.Context, userID uint, reportID uuid.UUID) (*entity.CommunityReport, error)
	// DeletePending deletes the report only while it is PENDING and created after createdAfter.
	// false means nothing matched.
	DeletePending(ctx context.Context, userID uint, reportID uuid.UUID, createdAfter time.Time) (bool, error)
	CountByStatus(ctx context.Context) ([]KeyCount, error)
	CountByProblemType(ctx context.Context) ([]KeyCount, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	// ListResolved returns RESOLVED reports that carry resolved_at.
	ListResolved(ctx context.Context) ([]entity.CommunityReport, error)
}
