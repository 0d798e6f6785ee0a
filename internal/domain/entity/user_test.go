package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BeforeSave does not touch tx, nil is enough
var mockTx *gorm.DB = nil

func TestUser_BeforeSave_HashesPassword(t *testing.T) {
	// Arrange
	plainPassword := "mySecretPassword123"
	user := &User{
		PhoneNumber: "+22997000001",
		FullName:    "Afi Dossou",
		Password:    plainPassword,
	}

	// Act
	err := user.BeforeSave(mockTx)

	// Assert
	require.NoError(t, err)
	assert.NotEqual(t, plainPassword, user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(plainPassword)))
}

func TestUser_BeforeSave_SkipsAlreadyHashedPassword(t *testing.T) {
	// Arrange
	hashed, err := bcrypt.GenerateFromPassword([]byte("alreadyHashed"), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := &User{Password: string(hashed)}

	// Act
	err = user.BeforeSave(mockTx)

	// Assert: no double hashing
	require.NoError(t, err)
	assert.Equal(t, string(hashed), user.Password)
}

func TestUser_BeforeSave_SkipsEmptyPassword(t *testing.T) {
	user := &User{}

	require.NoError(t, user.BeforeSave(mockTx))
	assert.Equal(t, "", user.Password)
}

func TestUser_CheckPassword(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctPassword123"), bcrypt.DefaultCost)
	require.NoError(t, err)
	user := &User{Password: string(hashed)}

	assert.True(t, user.CheckPassword("correctPassword123"))
	assert.False(t, user.CheckPassword("wrongPassword456"))
	assert.False(t, user.CheckPassword(""))
}

func TestUser_Tracks(t *testing.T) {
	tests := []struct {
		name      string
		language  string
		wantQuiz  bool
		wantAudio bool
	}{
		{"french is quiz based", LanguageFrench, true, false},
		{"fon is audio based", LanguageFon, false, true},
		{"unknown is neither", "EN", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{PreferredLanguage: tt.language}
			assert.Equal(t, tt.wantQuiz, u.IsQuizTrack())
			assert.Equal(t, tt.wantAudio, u.IsAudioTrack())
		})
	}
}

func TestUser_TableName(t *testing.T) {
	assert.Equal(t, "users", User{}.TableName())
}
