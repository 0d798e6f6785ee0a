package postgres

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
)

// CertificateRepo реализует repository.CertificateRepository
type CertificateRepo struct {
	db *gorm.DB
}

// NewCertificateRepo создает новый репозиторий сертификатов
func NewCertificateRepo(db *gorm.DB) *CertificateRepo {
	return &CertificateRepo{db: db}
}

// Create вставляет сертификат. Нарушение любого уникального индекса
// (действующий сертификат пользователя или код проверки) возвращает ErrDuplicateCertificate.
func (r *CertificateRepo) Create(ctx context.Context, certificate *entity.Certificate) error {
	if err := r.db.WithContext(ctx).Create(certificate).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user #%d", repository.ErrDuplicateCertificate, certificate.UserID)
		}
		return err
	}
	return nil
}

// GetValidByUser возвращает действующий сертификат пользователя
func (r *CertificateRepo) GetValidByUser(ctx context.Context, userID uint) (*entity.Certificate, error) {
	var certificate entity.Certificate
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_valid = ?", userID, true).
		First(&certificate).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &certificate, nil
}

// GetValidByCode возвращает действующий сертификат по коду проверки
func (r *CertificateRepo) GetValidByCode(ctx context.Context, code string) (*entity.Certificate, error) {
	var certificate entity.Certificate
	err := r.db.WithContext(ctx).
		Where("verification_code = ? AND is_valid = ?", code, true).
		First(&certificate).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &certificate, nil
}

// ExistsByCode проверяет, занят ли код проверки (включая отозванные сертификаты)
func (r *CertificateRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.Certificate{}).
		Where("verification_code = ?", code).
		Count(&n).Error
	return n > 0, err
}

// ListValidByUser возвращает действующие сертификаты пользователя
func (r *CertificateRepo) ListValidByUser(ctx context.Context, userID uint) ([]entity.Certificate, error) {
	var list []entity.Certificate
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_valid = ?", userID, true).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// Invalidate отзывает действующий сертификат по коду проверки
func (r *CertificateRepo) Invalidate(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).Model(&entity.Certificate{}).
		Where("verification_code = ? AND is_valid = ?", code, true).
		Updates(map[string]interface{}{
			"is_valid":   false,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound(gorm.ErrRecordNotFound)
	}
	return nil
}

// CountValid возвращает число действующих сертификатов, выданных не раньше since
func (r *CertificateRepo) CountValid(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(&entity.Certificate{}).Where("is_valid = ?", true)
	if !since.IsZero() {
		q = q.Where("completion_date >= ?", since)
	}
	err := q.Count(&n).Error
	return n, err
}
