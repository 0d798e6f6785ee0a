package repository

import (
	"context"
	"time"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
)

// CertificateRepository определяет методы для работы с сертификатами
type CertificateRepository interface {
	// Create returns ErrDuplicateCertificate on any uniqueness violation.
	Create(ctx context.Context, certificate *entity.Certificate) error
	GetValidByUser(ctx context.Context, userID uint) (*entity.Certificate, error)
	GetValidByCode(ctx context.Context, code string) (*entity.Certificate, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ListValidByUser(ctx context.Context, userID uint) ([]entity.Certificate, error)
	// Invalidate flips is_valid to false; ErrNotFound if no valid certificate has the code.
	Invalidate(ctx context.Context, code string) error
	// CountValid counts valid certificates completed at or after since (zero means all).
	CountValid(ctx context.Context, since time.Time) (int64, error)
}
