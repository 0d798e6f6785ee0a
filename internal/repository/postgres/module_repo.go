package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
)

// ModuleRepo реализует repository.ModuleRepository
type ModuleRepo struct {
	db *gorm.DB
}

// NewModuleRepo создает новый репозиторий модулей
func NewModuleRepo(db *gorm.DB) *ModuleRepo {
	return &ModuleRepo{db: db}
}

// Create создает модуль вместе с вопросами и вариантами ответа
func (r *ModuleRepo) Create(ctx context.Context, module *entity.Module) error {
	return r.db.WithContext(ctx).Create(module).Error
}

// GetActiveByID возвращает активный модуль без вопросов
func (r *ModuleRepo) GetActiveByID(ctx context.Context, id uint) (*entity.Module, error) {
	var module entity.Module
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&module).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &module, nil
}

// GetWithQuestions возвращает активный модуль с активными вопросами и вариантами ответа
func (r *ModuleRepo) GetWithQuestions(ctx context.Context, id uint) (*entity.Module, error) {
	var module entity.Module
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("position")
		}).
		Preload("Questions.Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Where("id = ? AND is_active = ?", id, true).
		First(&module).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &module, nil
}

// ListActive возвращает все активные модули по порядку номеров
func (r *ModuleRepo) ListActive(ctx context.Context) ([]entity.Module, error) {
	var modules []entity.Module
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("number").
		Find(&modules).Error
	return modules, err
}

// ListActiveTraining возвращает активные учебные модули (без модуля сообщений)
func (r *ModuleRepo) ListActiveTraining(ctx context.Context) ([]entity.Module, error) {
	var modules []entity.Module
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND number >= 1 AND number < ?", true, entity.ReportingModuleNumber).
		Order("number").
		Find(&modules).Error
	return modules, err
}
