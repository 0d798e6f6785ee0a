package entity

import (
	"time"

	"gorm.io/gorm"
)

// PassThreshold is the minimum score (percent) that validates a module.
const PassThreshold = 80.0

// QuizAttempt is one scored submission of a module quiz.
// (user_id, module_id, attempt_number) is unique and numbers start at 1.
type QuizAttempt struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	UserID         uint         `gorm:"not null;uniqueIndex:idx_quiz_attempts_user_module_number" json:"user_id"`
	ModuleID       uint         `gorm:"not null;uniqueIndex:idx_quiz_attempts_user_module_number;index" json:"module_id"`
	AttemptNumber  int          `gorm:"not null;uniqueIndex:idx_quiz_attempts_user_module_number" json:"attempt_number"`
	Score          float64      `gorm:"not null;default:0" json:"score"`
	TotalQuestions int          `gorm:"not null;default:0" json:"total_questions"`
	CorrectAnswers int          `gorm:"not null;default:0" json:"correct_answers"`
	TimeTaken      *int         `json:"time_taken,omitempty"` // секунды
	IsPassed       bool         `gorm:"not null" json:"is_passed"`
	StartedAt      time.Time    `gorm:"not null" json:"started_at"`
	CompletedAt    time.Time    `gorm:"not null;index" json:"completed_at"`
	Answers        []QuizAnswer `gorm:"foreignKey:AttemptID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// IsPassingScore applies the pass threshold.
func IsPassingScore(score float64) bool {
	return score >= PassThreshold
}

// BeforeSave derives IsPassed from Score so it can never be set independently.
func (a *QuizAttempt) BeforeSave(tx *gorm.DB) error {
	a.IsPassed = IsPassingScore(a.Score)
	return nil
}

// QuizAnswer is the answer given to one question inside an attempt.
type QuizAnswer struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	AttemptID       uint           `gorm:"not null;uniqueIndex:idx_quiz_answers_attempt_question" json:"attempt_id"`
	QuestionID      uint           `gorm:"not null;uniqueIndex:idx_quiz_answers_attempt_question" json:"question_id"`
	SelectedChoices []AnswerChoice `gorm:"many2many:quiz_answer_selected_choices;" json:"selected_choices"`
	IsCorrect       bool           `gorm:"not null" json:"is_correct"`
	PointsEarned    float64        `gorm:"not null;default:0" json:"points_earned"`
	AnsweredAt      time.Time      `gorm:"not null" json:"answered_at"`
}

// TableName определяет имя таблицы для GORM
func (QuizAnswer) TableName() string {
	return "quiz_answers"
}
