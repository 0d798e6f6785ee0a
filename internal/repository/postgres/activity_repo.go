package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
)

// ActivityRepo реализует repository.ActivityRepository
type ActivityRepo struct {
	db *gorm.DB
}

// NewActivityRepo создает новый репозиторий журнала активности
func NewActivityRepo(db *gorm.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

// Create добавляет запись в журнал
func (r *ActivityRepo) Create(ctx context.Context, activity *entity.UserActivity) error {
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now()
	}
	return r.db.WithContext(ctx).Create(activity).Error
}

// ListByUser возвращает записи пользователя, новые первыми
func (r *ActivityRepo) ListByUser(ctx context.Context, userID uint, limit int) ([]entity.UserActivity, error) {
	var list []entity.UserActivity
	q := r.db.WithContext(ctx).
		Preload("Module").
		Where("user_id = ?", userID).
		Order("timestamp DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&list).Error
	return list, err
}

// CountActiveUsersSince возвращает число пользователей с активностью после since
func (r *ActivityRepo) CountActiveUsersSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.UserActivity{}).
		Where("timestamp >= ?", since).
		Distinct("user_id").
		Count(&n).Error
	return n, err
}

// ReportRepo реализует repository.ReportRepository
type ReportRepo struct {
	db *gorm.DB
}

// NewReportRepo создает новый репозиторий сообщений сообщества
func NewReportRepo(db *gorm.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// Create сохраняет новое сообщение
func (r *ReportRepo) Create(ctx context.Context, report *entity.CommunityReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

// ListByUser возвращает сообщения пользователя, новые первыми
func (r *ReportRepo) ListByUser(ctx context.Context, userID uint) ([]entity.CommunityReport, error) {
	var list []entity.CommunityReport
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// GetByUser возвращает сообщение пользователя по публичному идентификатору
func (r *ReportRepo) GetByUser(ctx context.Context, userID uint, reportID uuid.UUID) (*entity.CommunityReport, error) {
	var report entity.CommunityReport
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND report_id = ?", userID, reportID).
		First(&report).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &report, nil
}

// DeletePending удаляет сообщение одним запросом с условием, чтобы смена статуса
// между проверкой и удалением не прошла незамеченной
func (r *ReportRepo) DeletePending(ctx context.Context, userID uint, reportID uuid.UUID, createdAfter time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND report_id = ? AND status = ? AND created_at >= ?",
			userID, reportID, entity.ReportStatusPending, createdAfter).
		Delete(&entity.CommunityReport{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CountByStatus возвращает число сообщений по статусам
func (r *ReportRepo) CountByStatus(ctx context.Context) ([]repository.KeyCount, error) {
	return r.countBy(ctx, "status")
}

// CountByProblemType возвращает число сообщений по типам проблем
func (r *ReportRepo) CountByProblemType(ctx context.Context) ([]repository.KeyCount, error) {
	return r.countBy(ctx, "problem_type")
}

func (r *ReportRepo) countBy(ctx context.Context, column string) ([]repository.KeyCount, error) {
	var rows []repository.KeyCount
	err := r.db.WithContext(ctx).Model(&entity.CommunityReport{}).
		Select(column + ` AS "key", COUNT(*) AS "count"`).
		Group(column).
		Scan(&rows).Error
	return rows, err
}

// CountSince возвращает число сообщений, созданных после since
func (r *ReportRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.CommunityReport{}).
		Where("created_at >= ?", since).
		Count(&n).Error
	return n, err
}

// ListResolved возвращает решенные сообщения с датой решения
func (r *ReportRepo) ListResolved(ctx context.Context) ([]entity.CommunityReport, error) {
	var list []entity.CommunityReport
	err := r.db.WithContext(ctx).
		Select("id", "created_at", "resolved_at").
		Where("status = ? AND resolved_at IS NOT NULL", entity.ReportStatusResolved).
		Find(&list).Error
	return list, err
}
