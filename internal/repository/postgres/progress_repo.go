package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
)

// ModuleProgressRepo реализует repository.ModuleProgressRepository
type ModuleProgressRepo struct {
	db *gorm.DB
}

// NewModuleProgressRepo создает новый репозиторий прогресса по модулям
func NewModuleProgressRepo(db *gorm.DB) *ModuleProgressRepo {
	return &ModuleProgressRepo{db: db}
}

// UpdateAudioProgress применяет правило "без регрессии" под блокировкой строки.
// Запись создается с начальными значениями при первом вызове.
func (r *ModuleProgressRepo) UpdateAudioProgress(ctx context.Context, userID, moduleID uint, percentage float64, position int) (*repository.AudioProgressUpdate, error) {
	tx := r.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if tx.Error != nil {
		return nil, tx.Error
	}

	seed := entity.ModuleProgress{UserID: userID, ModuleID: moduleID}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed)
	if res.Error != nil {
		tx.Rollback()
		return nil, res.Error
	}
	created := res.RowsAffected == 1

	var progress entity.ModuleProgress
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&progress).Error
	if err != nil {
		tx.Rollback()
		return nil, notFound(err)
	}

	update := &repository.AudioProgressUpdate{Progress: &progress, Created: created}
	wasCompleted := progress.IsCompleted
	changed := false

	if created || percentage > progress.ProgressPercentage {
		if delta := position - progress.LastAudioPosition; delta > 0 {
			progress.TotalListeningTime += delta
		}
		progress.ProgressPercentage = percentage
		progress.LastAudioPosition = position
		progress.ListeningSessions++
		update.Advanced = !created
		changed = true
	}
	if percentage >= entity.CompletePercentage && !progress.IsCompleted {
		progress.IsCompleted = true
		changed = true
	}

	if changed {
		progress.SyncCompletion(time.Now())
		if err := tx.Save(&progress).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	update.JustCompleted = progress.IsCompleted && !wasCompleted
	return update, nil
}

// GetOrCreate возвращает запись прогресса, создавая пустую при отсутствии
func (r *ModuleProgressRepo) GetOrCreate(ctx context.Context, userID, moduleID uint) (*entity.ModuleProgress, error) {
	db := r.db.WithContext(ctx)
	seed := entity.ModuleProgress{UserID: userID, ModuleID: moduleID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	return r.Get(ctx, userID, moduleID)
}

// Get возвращает запись прогресса пользователя по модулю
func (r *ModuleProgressRepo) Get(ctx context.Context, userID, moduleID uint) (*entity.ModuleProgress, error) {
	var progress entity.ModuleProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND module_id = ?", userID, moduleID).
		First(&progress).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &progress, nil
}

// ListByUser возвращает прогресс пользователя по всем модулям в порядке номеров
func (r *ModuleProgressRepo) ListByUser(ctx context.Context, userID uint) ([]entity.ModuleProgress, error) {
	var list []entity.ModuleProgress
	err := r.db.WithContext(ctx).
		Preload("Module").
		Select("module_progress.*").
		Joins("JOIN modules ON modules.id = module_progress.module_id").
		Where("module_progress.user_id = ?", userID).
		Order("modules.number").
		Find(&list).Error
	return list, err
}

// ModuleStats возвращает агрегаты прослушивания по модулю
func (r *ModuleProgressRepo) ModuleStats(ctx context.Context, moduleID uint) (*repository.AudioModuleStats, error) {
	var stats repository.AudioModuleStats
	err := r.db.WithContext(ctx).Model(&entity.ModuleProgress{}).
		Select(`COUNT(DISTINCT user_id) AS total_users,
			COUNT(DISTINCT CASE WHEN is_completed THEN user_id END) AS completed_users`).
		Where("module_id = ?", moduleID).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// OverallProgressRepo реализует repository.OverallProgressRepository
type OverallProgressRepo struct {
	db *gorm.DB
}

// NewOverallProgressRepo создает новый репозиторий общего прогресса
func NewOverallProgressRepo(db *gorm.DB) *OverallProgressRepo {
	return &OverallProgressRepo{db: db}
}

// GetOrCreate возвращает общий прогресс пользователя, создавая его при первом обращении
func (r *OverallProgressRepo) GetOrCreate(ctx context.Context, userID uint) (*entity.OverallProgress, error) {
	db := r.db.WithContext(ctx)
	seed := entity.OverallProgress{UserID: userID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}

	var progress entity.OverallProgress
	if err := db.Where("user_id = ?", userID).First(&progress).Error; err != nil {
		return nil, notFound(err)
	}
	return &progress, nil
}

// Save сохраняет пересчитанные поля. completed_at только заполняется, но не очищается:
// параллельный пересчет не может затереть уже выставленную отметку.
func (r *OverallProgressRepo) Save(ctx context.Context, progress *entity.OverallProgress) error {
	updates := map[string]interface{}{
		"total_modules":         progress.TotalModules,
		"completed_modules":     progress.CompletedModules,
		"completion_percentage": progress.CompletionPercentage,
		"total_quiz_attempts":   progress.TotalQuizAttempts,
		"average_quiz_score":    progress.AverageQuizScore,
		"total_audio_time":      progress.TotalAudioTime,
		"can_get_certificate":   progress.CanGetCertificate,
		"updated_at":            time.Now(),
	}
	if progress.CompletedAt != nil {
		updates["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", *progress.CompletedAt)
	}

	res := r.db.WithContext(ctx).Model(&entity.OverallProgress{}).
		Where("user_id = ?", progress.UserID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound)
	}
	return nil
}

// MarkCertificateRequested выставляет флаг запроса сертификата
func (r *OverallProgressRepo) MarkCertificateRequested(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&entity.OverallProgress{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"certificate_requested": true,
			"updated_at":            time.Now(),
		}).Error
}

// ListRanked возвращает общий прогресс всех пользователей в порядке рейтинга
func (r *OverallProgressRepo) ListRanked(ctx context.Context) ([]repository.LeaderboardRow, error) {
	var rows []repository.LeaderboardRow
	err := r.db.WithContext(ctx).Model(&entity.OverallProgress{}).
		Select(`overall_progress.user_id, users.commune, overall_progress.completion_percentage,
			overall_progress.completed_modules, overall_progress.average_quiz_score`).
		Joins("JOIN users ON users.id = overall_progress.user_id").
		Order("overall_progress.completion_percentage DESC, overall_progress.completed_modules DESC, overall_progress.user_id").
		Scan(&rows).Error
	return rows, err
}

// CountFullyCompleted возвращает число пользователей со 100% прогресса
func (r *OverallProgressRepo) CountFullyCompleted(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.OverallProgress{}).
		Where("completion_percentage >= ?", 100).
		Count(&n).Error
	return n, err
}

// ListCompleted возвращает записи, у которых выставлена отметка завершения
func (r *OverallProgressRepo) ListCompleted(ctx context.Context) ([]entity.OverallProgress, error) {
	var list []entity.OverallProgress
	err := r.db.WithContext(ctx).
		Where("completed_at IS NOT NULL").
		Find(&list).Error
	return list, err
}
