package entity

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Language tracks. The track decides how module completion is measured.
const (
	LanguageFrench = "FR"
	LanguageFon    = "FON"
)

// Gender values accepted on registration.
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// User is a registered learner (or staff member)
type User struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	PhoneNumber       string    `gorm:"size:20;not null;uniqueIndex" json:"phone_number"`
	Password          string    `gorm:"size:100;not null" json:"-"`
	FullName          string    `gorm:"size:150;not null" json:"full_name"`
	Commune           string    `gorm:"size:100;not null;default:''" json:"commune"`
	Gender            string    `gorm:"size:1;not null;default:''" json:"gender"`
	EducationLevel    string    `gorm:"size:50;not null;default:''" json:"education_level"`
	PreferredLanguage string    `gorm:"size:3;not null;default:'FR'" json:"preferred_language"`
	IsStaff           bool      `gorm:"not null" json:"-"`
	CreatedAt         time.Time `json:"date_joined"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// IsQuizTrack reports whether completion is measured by quiz attempts.
func (u *User) IsQuizTrack() bool {
	return u.PreferredLanguage == LanguageFrench
}

// IsAudioTrack reports whether completion is measured by audio listening.
func (u *User) IsAudioTrack() bool {
	return u.PreferredLanguage == LanguageFon
}

// IsValidLanguage checks a track code.
func IsValidLanguage(lang string) bool {
	return lang == LanguageFrench || lang == LanguageFon
}

// BeforeSave hashes the password unless it already is a bcrypt hash.
func (u *User) BeforeSave(tx *gorm.DB) error {
	if len(u.Password) > 0 && !strings.HasPrefix(u.Password, "$2a$") &&
		!strings.HasPrefix(u.Password, "$2b$") && !strings.HasPrefix(u.Password, "$2y$") {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		u.Password = string(hashedPassword)
	}
	return nil
}

// CheckPassword compares a plain password with the stored hash.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}
