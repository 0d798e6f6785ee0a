package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
)

// UserRepo реализует repository.UserRepository
type UserRepo struct {
	db *gorm.DB
}

// NewUserRepo создает новый репозиторий пользователей
func NewUserRepo(db *gorm.DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create создает нового пользователя
func (r *UserRepo) Create(ctx context.Context, user *entity.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", repository.ErrDuplicatePhone, user.PhoneNumber)
		}
		return err
	}
	return nil
}

// GetByID возвращает пользователя по ID
func (r *UserRepo) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// GetByPhone возвращает пользователя по номеру телефона
func (r *UserRepo) GetByPhone(ctx context.Context, phone string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("phone_number = ?", phone).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// ListIDs возвращает ID всех пользователей
func (r *UserRepo) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&entity.User{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

// Count возвращает общее число пользователей
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&n).Error
	return n, err
}

// CountByLanguage возвращает число пользователей выбранного трека
func (r *UserRepo) CountByLanguage(ctx context.Context, language string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).
		Where("preferred_language = ?", language).
		Count(&n).Error
	return n, err
}

// TopCommunes возвращает коммуны с наибольшим числом пользователей
func (r *UserRepo) TopCommunes(ctx context.Context, limit int) ([]repository.CommuneCount, error) {
	var rows []repository.CommuneCount
	err := r.db.WithContext(ctx).Model(&entity.User{}).
		Select("commune, COUNT(*) AS count").
		Where("commune <> ''").
		Group("commune").
		Order("count DESC, commune").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}
