package repository

import (
	"context"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
)

// AudioModuleStats aggregates audio progress of one module.
type AudioModuleStats struct {
	TotalUsers     int64 `json:"total_users"`
	CompletedUsers int64 `json:"completed_users"`
}

// AudioProgressUpdate describes what an audio progress update did.
type AudioProgressUpdate struct {
	Progress *entity.ModuleProgress
	// Created is true when the record did not exist before.
	Created bool
	// Advanced is true when the stored percentage moved forward.
	Advanced bool
	// JustCompleted is true on the transition into IsCompleted.
	JustCompleted bool
}

// ModuleProgressRepository хранит прогресс прослушивания по модулям
type ModuleProgressRepository interface {
	// UpdateAudioProgress applies the no-regression rule atomically with the read
	// of the stored percentage. Reaching 100 always completes the module.
	UpdateAudioProgress(ctx context.Context, userID, moduleID uint, percentage float64, position int) (*AudioProgressUpdate, error)
	GetOrCreate(ctx context.Context, userID, moduleID uint) (*entity.ModuleProgress, error)
	Get(ctx context.Context, userID, moduleID uint) (*entity.ModuleProgress, error)
	// ListByUser preloads Module and orders by module number.
	ListByUser(ctx context.Context, userID uint) ([]entity.ModuleProgress, error)
	ModuleStats(ctx context.Context, moduleID uint) (*AudioModuleStats, error)
}

// LeaderboardRow is one ranked OverallProgress joined with the user's commune.
type LeaderboardRow struct {
	UserID               uint
	Commune              string
	CompletionPercentage float64
	CompletedModules     int
	AverageQuizScore     *float64
}

// OverallProgressRepository хранит агрегированный прогресс пользователя
type OverallProgressRepository interface {
	GetOrCreate(ctx context.Context, userID uint) (*entity.OverallProgress, error)
	// Save persists a recomputed snapshot; completed_at is only ever filled, never cleared.
	Save(ctx context.Context, progress *entity.OverallProgress) error
	MarkCertificateRequested(ctx context.Context, userID uint) error
	// ListRanked orders by completion_percentage desc, completed_modules desc.
	ListRanked(ctx context.Context) ([]LeaderboardRow, error)
	CountFullyCompleted(ctx context.Context) (int64, error)
	ListCompleted(ctx context.Context) ([]entity.OverallProgress, error)
}
