package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/yourusername/parajuriste-api/internal/config"
	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
	"github.com/yourusername/parajuriste-api/pkg/logger"
	"github.com/yourusername/parajuriste-api/pkg/monitoring"
	"github.com/yourusername/parajuriste-api/pkg/tracing"
)

// CertificateService выдает, проверяет и отзывает сертификаты
type CertificateService struct {
	userRepo    repository.UserRepository
	certRepo    repository.CertificateRepository
	overallRepo repository.OverallProgressRepository
	attemptRepo repository.AttemptRepository
	moduleRepo  repository.ModuleRepository
	aggregator  ProgressAggregator
	activities  *ActivityService
	cfg         config.CertificateConfig

	newCode func() (string, error)
	now     func() time.Time
}

// CertificateDeps группирует репозитории CertificateService
type CertificateDeps struct {
	Users        repository.UserRepository
	Certificates repository.CertificateRepository
	Overall      repository.OverallProgressRepository
	Attempts     repository.AttemptRepository
	Modules      repository.ModuleRepository
}

// NewCertificateService создает сервис сертификатов
func NewCertificateService(deps CertificateDeps, aggregator ProgressAggregator, activities *ActivityService, cfg config.CertificateConfig) *CertificateService {
	if cfg.MaxCodeRetries <= 0 {
		cfg.MaxCodeRetries = 10
	}
	return &CertificateService{
		userRepo:    deps.Users,
		certRepo:    deps.Certificates,
		overallRepo: deps.Overall,
		attemptRepo: deps.Attempts,
		moduleRepo:  deps.Modules,
		aggregator:  aggregator,
		activities:  activities,
		cfg:         cfg,
		newCode:     entity.GenerateVerificationCode,
		now:         time.Now,
	}
}

// Request issues a certificate to an eligible French-track user, at most one valid per user.
// Fon-track users get manual verification instructions instead.
func (s *CertificateService) Request(ctx context.Context, userID uint, fullName string, meta RequestMeta) (*CertificateOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "certificate.Request", attribute.Int64("user.id", int64(userID)))
	defer span.End()

	out, err := s.request(ctx, userID, fullName, meta)
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, apperrors.ErrIneligible):
			outcome = "ineligible"
		case errors.Is(err, apperrors.ErrConflict):
			outcome = "conflict"
		}
		monitoring.CertificateRequests.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	monitoring.CertificateRequests.WithLabelValues(out.Outcome).Inc()
	span.SetAttributes(attribute.String("certificate.outcome", out.Outcome))
	return out, nil
}

func (s *CertificateService) request(ctx context.Context, userID uint, fullName string, meta RequestMeta) (*CertificateOutcome, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.certRepo.GetValidByUser(ctx, user.ID)
	if err == nil {
		return s.outcome(OutcomeExisting, existing), nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("existing certificate: %w", err)
	}

	if user.IsAudioTrack() {
		manual, err := s.manualInstructions(ctx, user)
		if err != nil {
			return nil, err
		}
		return &CertificateOutcome{Outcome: OutcomeManual, Manual: manual}, nil
	}

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", apperrors.ErrValidation)
	}

	progress, err := s.aggregator.Recompute(ctx, user)
	if err != nil {
		return nil, err
	}
	if !progress.CanGetCertificate {
		return nil, apperrors.NewIneligibleError(progress.RemainingModules(), progress.TotalModules)
	}

	completed, average, err := s.passedSummary(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	cert, created, err := s.issue(ctx, user.ID, fullName, completed, average)
	if err != nil {
		return nil, err
	}
	if !created {
		return s.outcome(OutcomeExisting, cert), nil
	}

	// записаны после коммита сертификата; ошибки не откатывают выдачу
	if err := s.overallRepo.MarkCertificateRequested(ctx, user.ID); err != nil {
		logger.Log.Named("certificate").Warn("failed to flag certificate request",
			zap.Uint("user_id", user.ID),
			zap.Error(err),
		)
	}
	if s.activities != nil {
		s.activities.RecordBestEffort(ctx, user.ID, entity.ActivityCertificateRequest, nil,
			map[string]interface{}{"certificate_id": cert.CertificateID.String()}, meta)
	}

	logger.Log.Named("certificate").Info("certificate issued",
		zap.Uint("user_id", user.ID),
		zap.String("certificate_id", cert.CertificateID.String()),
	)
	return s.outcome(OutcomeIssued, cert), nil
}

// passedSummary returns the number of passed training modules and the mean of their best scores.
func (s *CertificateService) passedSummary(ctx context.Context, userID uint) (int, *float64, error) {
	modules, err := s.moduleRepo.ListActiveTraining(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("list training modules: %w", err)
	}
	ids := make([]uint, len(modules))
	for i, m := range modules {
		ids[i] = m.ID
	}
	best, err := s.attemptRepo.BestAttempts(ctx, userID, ids)
	if err != nil {
		return 0, nil, fmt.Errorf("best attempts: %w", err)
	}

	count, sum := 0, 0.0
	for _, a := range best {
		if a.IsPassed {
			count++
			sum += a.Score
		}
	}
	avg := 0.0
	if count > 0 {
		avg = round2(sum / float64(count))
	}
	return count, &avg, nil
}

// issue inserts the certificate, retrying on verification code collisions.
// A concurrent winner for the same user is returned with created == false.
func (s *CertificateService) issue(ctx context.Context, userID uint, fullName string, completed int, average *float64) (*entity.Certificate, bool, error) {
	log := logger.Log.Named("certificate")

	for try := 1; try <= s.cfg.MaxCodeRetries; try++ {
		code, err := s.newCode()
		if err != nil {
			return nil, false, err
		}
		taken, err := s.certRepo.ExistsByCode(ctx, code)
		if err != nil {
			return nil, false, fmt.Errorf("check verification code: %w", err)
		}
		if taken {
			monitoring.WriteConflicts.WithLabelValues("verification_code").Inc()
			continue
		}

		now := s.now()
		cert := &entity.Certificate{
			CertificateID:         uuid.New(),
			UserID:                userID,
			VerificationCode:      code,
			FullName:              fullName,
			CompletionDate:        now,
			TotalModulesCompleted: completed,
			AverageScore:          average,
			IsValid:               true,
			SignedBy:              s.cfg.SignedBy,
			SignatureDate:         &now,
		}
		err = s.certRepo.Create(ctx, cert)
		if err == nil {
			return cert, true, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCertificate) {
			return nil, false, fmt.Errorf("create certificate: %w", err)
		}

		// either another request for this user won, or the code was taken in between
		winner, gerr := s.certRepo.GetValidByUser(ctx, userID)
		if gerr == nil {
			monitoring.WriteConflicts.WithLabelValues("certificate").Inc()
			return winner, false, nil
		}
		if !errors.Is(gerr, apperrors.ErrNotFound) {
			return nil, false, fmt.Errorf("refetch certificate: %w", gerr)
		}
		monitoring.WriteConflicts.WithLabelValues("verification_code").Inc()
		log.Debug("verification code collision, retrying", zap.Int("try", try))
	}

	log.Error("verification code retries exhausted",
		zap.Uint("user_id", userID),
		zap.Int("retries", s.cfg.MaxCodeRetries),
	)
	return nil, false, fmt.Errorf("%w: could not allocate a unique verification code", apperrors.ErrConflict)
}

func (s *CertificateService) outcome(kind string, cert *entity.Certificate) *CertificateOutcome {
	return &CertificateOutcome{
		Outcome:         kind,
		Certificate:     cert,
		VerificationURL: cert.VerificationURL(s.cfg.VerificationBaseURL),
	}
}

// FonInfo returns the manual verification payload for a Fon-track user.
func (s *CertificateService) FonInfo(ctx context.Context, userID uint) (*ManualVerificationInstructions, error) {
	user, err := loadUser(ctx, s.userRepo, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsAudioTrack() {
		return nil, fmt.Errorf("%w: Cette vue est réservée aux utilisateurs en langue Fon", apperrors.ErrValidation)
	}
	return s.manualInstructions(ctx, user)
}

func (s *CertificateService) manualInstructions(ctx context.Context, user *entity.User) (*ManualVerificationInstructions, error) {
	progress, err := s.aggregator.Recompute(ctx, user)
	if err != nil {
		return nil, err
	}

	done := progress.TotalModules > 0 && progress.CompletedModules >= progress.TotalModules
	message := fmt.Sprintf("Vous avez terminé %d/%d modules. Continuez votre formation pour être éligible à l'attestation.",
		progress.CompletedModules, progress.TotalModules)
	if done {
		message = "Félicitations ! Vous avez terminé tous les modules audio. " +
			"Pour obtenir votre attestation, vous devez passer l'examen au siège de HAI ou dans une annexe. " +
			"Envoyez une capture d'écran de votre progression à 100% avec vos informations " +
			"(nom, prénom, lieu de résidence) au numéro WhatsApp ci-dessous."
	}

	return &ManualVerificationInstructions{
		Message: message,
		ContactInfo: ContactInfo{
			WhatsAppNumber: s.cfg.ContactWhatsApp,
			Organization:   s.cfg.Organization,
			RequiredInfo:   s.cfg.RequiredInfo,
		},
		ProgressScreenshotRequired: done,
		WhatsAppNumber:             s.cfg.ContactWhatsApp,
		CompletionStatus: CompletionStatus{
			Completed:  progress.CompletedModules,
			Total:      progress.TotalModules,
			Percentage: round1(progress.CompletionPercentage),
		},
	}, nil
}

// Verify looks up a valid certificate by its public code.
func (s *CertificateService) Verify(ctx context.Context, code string) (*VerificationView, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !entity.IsWellFormedVerificationCode(code) {
		return nil, fmt.Errorf("certificate %q: %w", code, apperrors.ErrNotFound)
	}
	cert, err := s.certRepo.GetValidByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("certificate %q: %w", code, err)
	}
	return &VerificationView{
		IsValid: true,
		Certificate: PublicCertificate{
			FullName:              cert.FullName,
			CompletionDate:        cert.CompletionDate,
			TotalModulesCompleted: cert.TotalModulesCompleted,
			AverageScore:          cert.AverageScore,
			VerificationCode:      cert.VerificationCode,
			SignedBy:              cert.SignedBy,
			SignatureDate:         cert.SignatureDate,
		},
		VerifiedAt: s.now(),
	}, nil
}

// Revoke invalidates a certificate. Staff only; progress is left untouched.
func (s *CertificateService) Revoke(ctx context.Context, requesterID uint, code string) error {
	if err := requireStaff(ctx, s.userRepo, requesterID); err != nil {
		return err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if err := s.certRepo.Invalidate(ctx, code); err != nil {
		return fmt.Errorf("revoke certificate %q: %w", code, err)
	}
	logger.Log.Named("certificate").Info("certificate revoked",
		zap.String("code", code),
		zap.Uint("by", requesterID),
	)
	return nil
}
