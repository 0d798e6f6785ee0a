package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
)

// CertificateRequest — запрос сертификата. full_name проверяет сервис, трек Fon его не требует
type CertificateRequest struct {
	FullName string `json:"full_name" binding:"max=100"`
}

// CertificateResponse — выданный сертификат
type CertificateResponse struct {
	CertificateID         uuid.UUID  `json:"certificate_id"`
	VerificationCode      string     `json:"verification_code"`
	FullName              string     `json:"full_name"`
	CompletionDate        time.Time  `json:"completion_date"`
	TotalModulesCompleted int        `json:"total_modules_completed"`
	AverageScore          *float64   `json:"average_score"`
	IsValid               bool       `json:"is_valid"`
	SignedBy              string     `json:"signed_by"`
	SignatureDate         *time.Time `json:"signature_date"`
	VerificationURL       string     `json:"verification_url"`
}

// NewCertificateResponse создает CertificateResponse из entity.Certificate
func NewCertificateResponse(c *entity.Certificate, verificationURL string) *CertificateResponse {
	return &CertificateResponse{
		CertificateID:         c.CertificateID,
		VerificationCode:      c.VerificationCode,
		FullName:              c.FullName,
		CompletionDate:        c.CompletionDate,
		TotalModulesCompleted: c.TotalModulesCompleted,
		AverageScore:          c.AverageScore,
		IsValid:               c.IsValid,
		SignedBy:              c.SignedBy,
		SignatureDate:         c.SignatureDate,
		VerificationURL:       verificationURL,
	}
}

// RevokeRequest — отзыв сертификата сотрудником
type RevokeRequest struct {
	VerificationCode string `json:"verification_code" binding:"required,len=12"`
}
