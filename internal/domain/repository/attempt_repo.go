package repository

import (
	"context"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
)

// QuizModuleStats aggregates the attempts of one module.
type QuizModuleStats struct {
	TotalAttempts  int64   `json:"total_attempts"`
	UniqueUsers    int64   `json:"unique_users"`
	AverageScore   float64 `json:"average_score"`
	PassedAttempts int64   `json:"passed_attempts"`
}

// AttemptRepository is the durable store of quiz attempts and their answers.
type AttemptRepository interface {
	// CreateAttempt assigns AttemptNumber = 1 + max existing for (user, module)
	// and persists the attempt with its answers in one transaction.
	CreateAttempt(ctx context.Context, attempt *entity.QuizAttempt, answers []entity.QuizAnswer) error
	// BestAttempt returns the highest score, ties broken by latest completed_at.
	BestAttempt(ctx context.Context, userID, moduleID uint) (*entity.QuizAttempt, error)
	// BestAttempts returns the best attempt per module, keyed by module ID.
	// Modules without attempts are absent from the map.
	BestAttempts(ctx context.Context, userID uint, moduleIDs []uint) (map[uint]entity.QuizAttempt, error)
	// ListAttempts returns attempts newest first; moduleID 0 means all modules.
	ListAttempts(ctx context.Context, userID, moduleID uint) ([]entity.QuizAttempt, error)
	CountAttempts(ctx context.Context, userID uint, moduleIDs []uint) (int64, error)
	ModuleStats(ctx context.Context, moduleID uint) (*QuizModuleStats, error)
	CountPassedUsers(ctx context.Context, moduleID uint) (int64, error)
}
