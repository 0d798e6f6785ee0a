package entity

import (
	"time"
)

// Question types
const (
	QuestionTypeSingle   = "SINGLE"
	QuestionTypeMultiple = "MULTIPLE"
)

// QuizQuestion belongs to exactly one module; Position is unique within the module.
type QuizQuestion struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ModuleID     uint           `gorm:"not null;uniqueIndex:idx_quiz_questions_module_position" json:"module_id"`
	Position     int            `gorm:"not null;uniqueIndex:idx_quiz_questions_module_position" json:"order"`
	QuestionType string         `gorm:"size:10;not null;default:'SINGLE'" json:"question_type"`
	QuestionText string         `gorm:"type:text;not null" json:"question_text"`
	Explanation  string         `gorm:"type:text;not null;default:''" json:"explanation"`
	Points       int            `gorm:"not null;default:1" json:"points"`
	IsActive     bool           `gorm:"not null" json:"is_active"`
	Choices      []AnswerChoice `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"answer_choices"`
	CreatedAt    time.Time      `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// AnswerChoice belongs to exactly one question; Position is unique within the question.
type AnswerChoice struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;uniqueIndex:idx_answer_choices_question_position" json:"question_id"`
	ChoiceText string `gorm:"size:500;not null" json:"choice_text"`
	IsCorrect  bool   `gorm:"not null" json:"-"`
	Position   int    `gorm:"not null;uniqueIndex:idx_answer_choices_question_position" json:"order"`
}

// TableName определяет имя таблицы для GORM
func (AnswerChoice) TableName() string {
	return "answer_choices"
}

// IsSingleChoice reports whether exactly one selection is allowed.
func (q *QuizQuestion) IsSingleChoice() bool {
	return q.QuestionType != QuestionTypeMultiple
}

// HasChoice reports whether choiceID belongs to this question.
func (q *QuizQuestion) HasChoice(choiceID uint) bool {
	for _, c := range q.Choices {
		if c.ID == choiceID {
			return true
		}
	}
	return false
}

// CorrectChoiceIDs returns the set of correct choice IDs.
func (q *QuizQuestion) CorrectChoiceIDs() map[uint]struct{} {
	ids := make(map[uint]struct{})
	for _, c := range q.Choices {
		if c.IsCorrect {
			ids[c.ID] = struct{}{}
		}
	}
	return ids
}

// IsCorrect compares the selected set with the correct set. No partial credit.
func (q *QuizQuestion) IsCorrect(selected []uint) bool {
	correct := q.CorrectChoiceIDs()
	chosen := make(map[uint]struct{}, len(selected))
	for _, id := range selected {
		chosen[id] = struct{}{}
	}
	if len(chosen) != len(correct) {
		return false
	}
	for id := range chosen {
		if _, ok := correct[id]; !ok {
			return false
		}
	}
	return true
}

// CalculatePoints returns the full point value for a correct answer, 0 otherwise.
func (q *QuizQuestion) CalculatePoints(isCorrect bool) int {
	if !isCorrect {
		return 0
	}
	return q.Points
}
