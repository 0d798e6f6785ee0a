package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
)

// maxAttemptNumberRetries ограничивает число повторов при гонке за номер попытки
const maxAttemptNumberRetries = 5

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
	// onConflict вызывается при каждом повторе из-за занятого номера попытки (метрики)
	onConflict func()
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// WithConflictHook регистрирует колбэк, вызываемый на каждом конфликте номера попытки
func (r *AttemptRepo) WithConflictHook(fn func()) *AttemptRepo {
	r.onConflict = fn
	return r
}

// CreateAttempt сохраняет попытку и ответы, назначая attempt_number = MAX + 1.
// Уникальный индекс (user_id, module_id, attempt_number) отсекает параллельную вставку,
// после чего вычисление повторяется.
func (r *AttemptRepo) CreateAttempt(ctx context.Context, attempt *entity.QuizAttempt, answers []entity.QuizAnswer) error {
	if attempt.CompletedAt.IsZero() {
		attempt.CompletedAt = time.Now()
	}

	for i := 0; i < maxAttemptNumberRetries; i++ {
		err := r.createOnce(ctx, attempt, answers)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) {
			return err
		}
		if r.onConflict != nil {
			r.onConflict()
		}
		attempt.ID = 0
		attempt.Answers = nil
	}

	return fmt.Errorf("%w: user #%d module #%d", repository.ErrDuplicateAttempt, attempt.UserID, attempt.ModuleID)
}

func (r *AttemptRepo) createOnce(ctx context.Context, attempt *entity.QuizAttempt, answers []entity.QuizAnswer) error {
	tx := r.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if tx.Error != nil {
		return tx.Error
	}

	var last int
	err := tx.Model(&entity.QuizAttempt{}).
		Where("user_id = ? AND module_id = ?", attempt.UserID, attempt.ModuleID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&last).Error
	if err != nil {
		tx.Rollback()
		return err
	}
	attempt.AttemptNumber = last + 1

	if err := tx.Omit("Answers").Create(attempt).Error; err != nil {
		tx.Rollback()
		return err
	}

	rows := make([]entity.QuizAnswer, len(answers))
	copy(rows, answers)
	for i := range rows {
		rows[i].ID = 0
		rows[i].AttemptID = attempt.ID
		if rows[i].AnsweredAt.IsZero() {
			rows[i].AnsweredAt = attempt.CompletedAt
		}
	}
	if len(rows) > 0 {
		// варианты ответа уже существуют, пишем только строки связующей таблицы
		if err := tx.Omit("SelectedChoices.*").Create(&rows).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}
	attempt.Answers = rows
	return nil
}

// BestAttempt возвращает лучшую попытку: максимальный балл, при равенстве самая поздняя
func (r *AttemptRepo) BestAttempt(ctx context.Context, userID, moduleID uint) (*entity.QuizAttempt, error) {
	var attempt entity.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		Order("score DESC, completed_at DESC, id DESC").
		First(&attempt).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &attempt, nil
}

// BestAttempts возвращает лучшие попытки пользователя по каждому из модулей
func (r *AttemptRepo) BestAttempts(ctx context.Context, userID uint, moduleIDs []uint) (map[uint]entity.QuizAttempt, error) {
	best := make(map[uint]entity.QuizAttempt, len(moduleIDs))
	if len(moduleIDs) == 0 {
		return best, nil
	}

	var attempts []entity.QuizAttempt
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id IN ?", userID, moduleIDs).
		Order("module_id, score DESC, completed_at DESC, id DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}

	for _, a := range attempts {
		if _, ok := best[a.ModuleID]; !ok {
			best[a.ModuleID] = a
		}
	}
	return best, nil
}

// ListAttempts возвращает попытки пользователя, новые первыми
func (r *AttemptRepo) ListAttempts(ctx context.Context, userID, moduleID uint) ([]entity.QuizAttempt, error) {
	var attempts []entity.QuizAttempt
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if moduleID != 0 {
		q = q.Where("module_id = ?", moduleID)
	}
	err := q.Order("completed_at DESC, id DESC").Find(&attempts).Error
	return attempts, err
}

// CountAttempts возвращает число попыток пользователя по заданным модулям
func (r *AttemptRepo) CountAttempts(ctx context.Context, userID uint, moduleIDs []uint) (int64, error) {
	var n int64
	if len(moduleIDs) == 0 {
		return 0, nil
	}
	err := r.db.WithContext(ctx).Model(&entity.QuizAttempt{}).
		Where("user_id = ? AND module_id IN ?", userID, moduleIDs).
		Count(&n).Error
	return n, err
}

// ModuleStats возвращает агрегаты попыток по модулю
func (r *AttemptRepo) ModuleStats(ctx context.Context, moduleID uint) (*repository.QuizModuleStats, error) {
	var stats repository.QuizModuleStats
	err := r.db.WithContext(ctx).Model(&entity.QuizAttempt{}).
		Select(`COUNT(*) AS total_attempts,
			COUNT(DISTINCT user_id) AS unique_users,
			COALESCE(AVG(score), 0) AS average_score,
			COALESCE(SUM(CASE WHEN is_passed THEN 1 ELSE 0 END), 0) AS passed_attempts`).
		Where("module_id = ?", moduleID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// CountPassedUsers возвращает число пользователей, сдавших модуль хотя бы раз
func (r *AttemptRepo) CountPassedUsers(ctx context.Context, moduleID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.QuizAttempt{}).
		Where("module_id = ? AND is_passed = ?", moduleID, true).
		Distinct("user_id").
		Count(&n).Error
	return n, err
}
