package repository

import (
	"context"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
)

// ModuleRepository определяет методы для работы с модулями и их вопросами
type ModuleRepository interface {
	Create(ctx context.Context, module *entity.Module) error
	// GetActiveByID returns ErrNotFound for missing or inactive modules.
	GetActiveByID(ctx context.Context, id uint) (*entity.Module, error)
	// GetWithQuestions preloads active questions and their choices, ordered by position.
	GetWithQuestions(ctx context.Context, id uint) (*entity.Module, error)
	ListActive(ctx context.Context) ([]entity.Module, error)
	// ListActiveTraining returns active modules numbered below the reporting module.
	ListActiveTraining(ctx context.Context) ([]entity.Module, error)
}
