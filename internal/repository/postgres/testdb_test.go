package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
)

// newTestDB открывает in-memory SQLite с той же схемой, что и миграции.
// Одно соединение: каждая база живет, пока открыто соединение.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(
		&entity.User{},
		&entity.Module{},
		&entity.QuizQuestion{},
		&entity.AnswerChoice{},
		&entity.QuizAttempt{},
		&entity.QuizAnswer{},
		&entity.ModuleProgress{},
		&entity.OverallProgress{},
		&entity.Certificate{},
		&entity.UserActivity{},
		&entity.CommunityReport{},
	)
	require.NoError(t, err)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, phone, language, commune string) *entity.User {
	t.Helper()
	u := &entity.User{
		PhoneNumber:       phone,
		Password:          "secret123",
		FullName:          "User " + phone,
		Commune:           commune,
		PreferredLanguage: language,
	}
	require.NoError(t, NewUserRepo(db).Create(context.Background(), u))
	return u
}

// createTestModules создает модули 1..n (модуль 10 - модуль сообщений) с одним вопросом на модуль
func createTestModules(t *testing.T, db *gorm.DB, n int) []entity.Module {
	t.Helper()
	repo := NewModuleRepo(db)
	modules := make([]entity.Module, 0, n)
	for i := 1; i <= n; i++ {
		m := entity.Module{
			Number:   i,
			Title:    fmt.Sprintf("Module %d", i),
			AudioFon: fmt.Sprintf("audio/module_%d.mp3", i),
			IsActive: true,
		}
		if i != entity.ReportingModuleNumber {
			m.Questions = []entity.QuizQuestion{{
				Position:     1,
				QuestionType: entity.QuestionTypeSingle,
				QuestionText: "Q",
				Points:       1,
				IsActive:     true,
				Choices: []entity.AnswerChoice{
					{Position: 1, ChoiceText: "yes", IsCorrect: true},
					{Position: 2, ChoiceText: "no"},
				},
			}}
		}
		require.NoError(t, repo.Create(context.Background(), &m))
		modules = append(modules, m)
	}
	return modules
}
