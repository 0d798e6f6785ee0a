package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
	"github.com/yourusername/parajuriste-api/internal/service"
)

func testCertificate() *entity.Certificate {
	return &entity.Certificate{
		CertificateID:         uuid.New(),
		UserID:                7,
		VerificationCode:      "ABCDEF123456",
		FullName:              "Afi Dossou",
		CompletionDate:        time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		TotalModulesCompleted: 9,
		IsValid:               true,
	}
}

func TestRequestCertificate_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		outcome     *service.CertificateOutcome
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "new certificate",
			outcome:     &service.CertificateOutcome{Outcome: service.OutcomeIssued, Certificate: testCertificate(), VerificationURL: "https://yourapp.com/verify/ABCDEF123456"},
			wantStatus:  http.StatusCreated,
			wantMessage: "Certificat généré avec succès",
		},
		{
			name:        "existing certificate",
			outcome:     &service.CertificateOutcome{Outcome: service.OutcomeExisting, Certificate: testCertificate(), VerificationURL: "https://yourapp.com/verify/ABCDEF123456"},
			wantStatus:  http.StatusOK,
			wantMessage: "Vous avez déjà un certificat valide",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockCertificateUseCases{}
			handler := NewCertificateHandler(svc)
			svc.On("Request", mock.Anything, uint(7), "Afi Dossou", mock.Anything).Return(tt.outcome, nil)

			c, w := newTestGinContext(http.MethodPost, "/api/certificates/request", map[string]string{"full_name": "Afi Dossou"})
			asUser(c, 7)

			handler.Request(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := parseJSONResponse(t, w)
			assert.Equal(t, tt.wantMessage, resp["message"])
			cert := resp["certificate"].(map[string]interface{})
			assert.Equal(t, "https://yourapp.com/verify/ABCDEF123456", cert["verification_url"])
		})
	}
}

func TestRequestCertificate_FonManualWithoutBody(t *testing.T) {
	svc := &MockCertificateUseCases{}
	handler := NewCertificateHandler(svc)
	svc.On("Request", mock.Anything, uint(8), "", mock.Anything).Return(&service.CertificateOutcome{
		Outcome: service.OutcomeManual,
		Manual: &service.ManualVerificationInstructions{
			Message:          "Vous avez terminé 3/9 modules",
			CompletionStatus: service.CompletionStatus{Completed: 3, Total: 9},
		},
	}, nil)

	c, w := newTestGinContext(http.MethodPost, "/api/certificates/request", nil)
	asUser(c, 8)

	handler.Request(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, "manual", resp["verification_type"])
	assert.NotContains(t, resp, "certificate")
}

func TestRequestCertificate_Ineligible(t *testing.T) {
	svc := &MockCertificateUseCases{}
	handler := NewCertificateHandler(svc)
	svc.On("Request", mock.Anything, uint(7), "Afi Dossou", mock.Anything).Return(nil, apperrors.NewIneligibleError(1, 9))

	c, w := newTestGinContext(http.MethodPost, "/api/certificates/request", map[string]string{"full_name": "Afi Dossou"})
	asUser(c, 7)

	handler.Request(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, float64(1), parseJSONResponse(t, w)["remaining_modules"])
}

func TestVerifyCertificate_NotFound(t *testing.T) {
	svc := &MockCertificateUseCases{}
	handler := NewCertificateHandler(svc)
	svc.On("Verify", mock.Anything, "BADCODE0000").Return(nil, apperrors.ErrNotFound)

	c, w := newTestGinContext(http.MethodGet, "/api/certificates/verify/BADCODE0000", nil)
	c.AddParam("code", "BADCODE0000")

	handler.Verify(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, false, resp["is_valid"])
	assert.Equal(t, "Certificat non trouvé ou invalide", resp["message"])
}

func TestVerifyCertificate_Valid(t *testing.T) {
	svc := &MockCertificateUseCases{}
	handler := NewCertificateHandler(svc)
	svc.On("Verify", mock.Anything, "ABCDEF123456").Return(&service.VerificationView{
		IsValid:     true,
		Certificate: service.PublicCertificate{FullName: "Afi Dossou", VerificationCode: "ABCDEF123456"},
		VerifiedAt:  time.Now(),
	}, nil)

	c, w := newTestGinContext(http.MethodGet, "/api/certificates/verify/ABCDEF123456", nil)
	c.AddParam("code", "ABCDEF123456")

	handler.Verify(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := parseJSONResponse(t, w)
	assert.Equal(t, true, resp["is_valid"])
	assert.Contains(t, resp, "verified_at")
}

func TestRevokeCertificate(t *testing.T) {
	svc := &MockCertificateUseCases{}
	handler := NewCertificateHandler(svc)
	svc.On("Revoke", mock.Anything, uint(1), "ABCDEF123456").Return(nil)

	c, w := newTestGinContext(http.MethodPost, "/api/certificates/revoke", map[string]string{"verification_code": "ABCDEF123456"})
	asUser(c, 1)

	handler.Revoke(c)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestFonInfo_NonFonUser(t *testing.T) {
	svc := &MockCertificateUseCases{}
	handler := NewCertificateHandler(svc)
	svc.On("FonInfo", mock.Anything, uint(7)).Return(nil, apperrors.ErrValidation)

	c, w := newTestGinContext(http.MethodGet, "/api/certificates/fon-info", nil)
	asUser(c, 7)

	handler.FonInfo(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
