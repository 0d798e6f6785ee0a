package repository

import (
	"context"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
)

// CommuneCount is a (commune, users) pair used by staff statistics.
type CommuneCount struct {
	Commune string `json:"commune"`
	Count   int64  `json:"count"`
}

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uint) (*entity.User, error)
	GetByPhone(ctx context.Context, phone string) (*entity.User, error)
	ListIDs(ctx context.Context) ([]uint, error)
	Count(ctx context.Context) (int64, error)
	CountByLanguage(ctx context.Context, language string) (int64, error)
	TopCommunes(ctx context.Context, limit int) ([]CommuneCount, error)
}
