package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
	"github.com/yourusername/parajuriste-api/pkg/auth"
)

// AuthService предоставляет регистрацию и вход по номеру телефона
type AuthService struct {
	userRepo   repository.UserRepository
	jwtService *auth.JWTService
	activities *ActivityService
}

// RegisterInput содержит все данные для регистрации
type RegisterInput struct {
	PhoneNumber       string
	Password          string
	FullName          string
	Commune           string
	Gender            string
	EducationLevel    string
	PreferredLanguage string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	User        *entity.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
}

// NewAuthService создает новый сервис аутентификации и возвращает ошибку при проблемах
func NewAuthService(
	userRepo repository.UserRepository,
	jwtService *auth.JWTService,
	activities *ActivityService,
) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for AuthService")
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		activities: activities,
	}, nil
}

// Register создает пользователя и сразу выдает токен
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	lang := strings.ToUpper(strings.TrimSpace(in.PreferredLanguage))
	if lang == "" {
		lang = entity.LanguageFrench
	}
	if !entity.IsValidLanguage(lang) {
		return nil, fmt.Errorf("%w: unsupported language %q", apperrors.ErrValidation, in.PreferredLanguage)
	}
	if in.Gender != "" && in.Gender != entity.GenderMale && in.Gender != entity.GenderFemale {
		return nil, fmt.Errorf("%w: unsupported gender %q", apperrors.ErrValidation, in.Gender)
	}

	user := &entity.User{
		PhoneNumber:       strings.TrimSpace(in.PhoneNumber),
		Password:          in.Password,
		FullName:          strings.TrimSpace(in.FullName),
		Commune:           strings.TrimSpace(in.Commune),
		Gender:            in.Gender,
		EducationLevel:    in.EducationLevel,
		PreferredLanguage: lang,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return s.issue(user)
}

// Login проверяет пароль и выдает токен. Успешный вход записывается в журнал активности.
func (s *AuthService) Login(ctx context.Context, phone, password string, meta RequestMeta) (*AuthResult, error) {
	user, err := s.userRepo.GetByPhone(ctx, strings.TrimSpace(phone))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if !user.CheckPassword(password) {
		return nil, fmt.Errorf("%w: invalid credentials", apperrors.ErrUnauthorized)
	}

	if s.activities != nil {
		s.activities.RecordBestEffort(ctx, user.ID, entity.ActivityLogin, nil, nil, meta)
	}
	return s.issue(user)
}

// Me возвращает профиль пользователя
func (s *AuthService) Me(ctx context.Context, userID uint) (*entity.User, error) {
	return loadUser(ctx, s.userRepo, userID)
}

func (s *AuthService) issue(user *entity.User) (*AuthResult, error) {
	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.jwtService.ExpiresIn(),
	}, nil
}
