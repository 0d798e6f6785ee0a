package dto

import (
	"time"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/service"
)

// RegisterRequest представляет запрос на регистрацию
type RegisterRequest struct {
	PhoneNumber       string `json:"phone_number" binding:"required,phone"`
	Password          string `json:"password" binding:"required,min=8,max=128"`
	FullName          string `json:"full_name" binding:"required,max=150"`
	Commune           string `json:"commune" binding:"required,max=100"`
	Gender            string `json:"gender" binding:"omitempty,oneof=M F"`
	EducationLevel    string `json:"education_level" binding:"omitempty,max=50"`
	PreferredLanguage string `json:"preferred_language" binding:"omitempty,oneof=FR FON fr fon"`
}

// ToInput переводит запрос во входные данные сервиса
func (r *RegisterRequest) ToInput() service.RegisterInput {
	return service.RegisterInput{
		PhoneNumber:       r.PhoneNumber,
		Password:          r.Password,
		FullName:          r.FullName,
		Commune:           r.Commune,
		Gender:            r.Gender,
		EducationLevel:    r.EducationLevel,
		PreferredLanguage: r.PreferredLanguage,
	}
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,phone"`
	Password    string `json:"password" binding:"required"`
}

// UserResponse — профиль пользователя
type UserResponse struct {
	ID                uint      `json:"id"`
	PhoneNumber       string    `json:"phone_number"`
	FullName          string    `json:"full_name"`
	Commune           string    `json:"commune"`
	Gender            string    `json:"gender"`
	EducationLevel    string    `json:"education_level"`
	PreferredLanguage string    `json:"preferred_language"`
	IsStaff           bool      `json:"is_staff"`
	DateJoined        time.Time `json:"date_joined"`
}

// NewUserResponse создает UserResponse из entity.User
func NewUserResponse(u *entity.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:                u.ID,
		PhoneNumber:       u.PhoneNumber,
		FullName:          u.FullName,
		Commune:           u.Commune,
		Gender:            u.Gender,
		EducationLevel:    u.EducationLevel,
		PreferredLanguage: u.PreferredLanguage,
		IsStaff:           u.IsStaff,
		DateJoined:        u.CreatedAt,
	}
}

// AuthResponse возвращается после регистрации и входа
type AuthResponse struct {
	User        *UserResponse `json:"user"`
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int           `json:"expires_in"`
}

// NewAuthResponse создает AuthResponse из результата сервиса
func NewAuthResponse(r *service.AuthResult) *AuthResponse {
	return &AuthResponse{
		User:        NewUserResponse(r.User),
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
		ExpiresIn:   r.ExpiresIn,
	}
}
