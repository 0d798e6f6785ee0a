package entity

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// VerificationCodeLength is the length of a public verification code.
	VerificationCodeLength = 12
	// VerificationCodeAlphabet lists the characters a code is drawn from.
	VerificationCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Certificate is the completion certificate of a user.
// At most one valid certificate exists per user (partial unique index on user_id where is_valid).
type Certificate struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	CertificateID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"certificate_id"`
	UserID                uint       `gorm:"not null;index;uniqueIndex:idx_certificates_valid_user,where:is_valid = true" json:"user_id"`
	VerificationCode      string     `gorm:"size:20;not null;uniqueIndex" json:"verification_code"`
	FullName              string     `gorm:"size:100;not null" json:"full_name"`
	CompletionDate        time.Time  `gorm:"not null;index" json:"completion_date"`
	TotalModulesCompleted int        `gorm:"not null;default:0" json:"total_modules_completed"`
	AverageScore          *float64   `json:"average_score"`
	IsValid               bool       `gorm:"not null" json:"is_valid"`
	SignedBy              string     `gorm:"size:100;not null;default:''" json:"signed_by"`
	SignatureDate         *time.Time `json:"signature_date,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Certificate) TableName() string {
	return "certificates"
}

// VerificationURL builds the public verification link.
func (c *Certificate) VerificationURL(baseURL string) string {
	return fmt.Sprintf("%s/verify/%s", strings.TrimRight(baseURL, "/"), c.VerificationCode)
}

// GenerateVerificationCode draws a code from crypto/rand.
func GenerateVerificationCode() (string, error) {
	return generateVerificationCode(rand.Reader)
}

func generateVerificationCode(r io.Reader) (string, error) {
	alphabetLen := big.NewInt(int64(len(VerificationCodeAlphabet)))
	var b strings.Builder
	b.Grow(VerificationCodeLength)
	for i := 0; i < VerificationCodeLength; i++ {
		n, err := rand.Int(r, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("generate verification code: %w", err)
		}
		b.WriteByte(VerificationCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// IsWellFormedVerificationCode checks length and alphabet only.
func IsWellFormedVerificationCode(code string) bool {
	if len(code) != VerificationCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(VerificationCodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
