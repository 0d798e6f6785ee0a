package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/parajuriste-api/internal/handler/dto"
	"github.com/yourusername/parajuriste-api/internal/handler/helper"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
	"github.com/yourusername/parajuriste-api/internal/service"
)

// CertificateUseCases — выдача и проверка сертификатов
type CertificateUseCases interface {
	Request(ctx context.Context, userID uint, fullName string, meta service.RequestMeta) (*service.CertificateOutcome, error)
	FonInfo(ctx context.Context, userID uint) (*service.ManualVerificationInstructions, error)
	Verify(ctx context.Context, code string) (*service.VerificationView, error)
	Revoke(ctx context.Context, requesterID uint, code string) error
}

// CertificateHandler обрабатывает запросы сертификатов
type CertificateHandler struct {
	certificateService CertificateUseCases
}

// NewCertificateHandler создает новый обработчик сертификатов
func NewCertificateHandler(certificateService CertificateUseCases) *CertificateHandler {
	return &CertificateHandler{certificateService: certificateService}
}

// Request выдает сертификат или инструкции ручной проверки для трека Fon
func (h *CertificateHandler) Request(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.CertificateRequest
	// тело необязательно для трека Fon
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	outcome, err := h.certificateService.Request(c.Request.Context(), userID, req.FullName, helper.RequestMeta(c))
	if err != nil {
		respondError(c, err)
		return
	}

	switch outcome.Outcome {
	case service.OutcomeManual:
		c.JSON(http.StatusOK, gin.H{
			"verification_type": "manual",
			"instructions":      outcome.Manual,
		})
	case service.OutcomeExisting:
		c.JSON(http.StatusOK, gin.H{
			"message":     "Vous avez déjà un certificat valide",
			"certificate": dto.NewCertificateResponse(outcome.Certificate, outcome.VerificationURL),
		})
	default:
		c.JSON(http.StatusCreated, gin.H{
			"message":     "Certificat généré avec succès",
			"certificate": dto.NewCertificateResponse(outcome.Certificate, outcome.VerificationURL),
		})
	}
}

// FonInfo возвращает инструкции ручной проверки для пользователей Fon
func (h *CertificateHandler) FonInfo(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	info, err := h.certificateService.FonInfo(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// Verify — публичная проверка сертификата по коду
func (h *CertificateHandler) Verify(c *gin.Context) {
	view, err := h.certificateService.Verify(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"is_valid": false,
				"message":  "Certificat non trouvé ou invalide",
			})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Revoke отзывает сертификат (только сотрудники)
func (h *CertificateHandler) Revoke(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req dto.RevokeRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.certificateService.Revoke(c.Request.Context(), userID, req.VerificationCode); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Certificat révoqué"})
}
