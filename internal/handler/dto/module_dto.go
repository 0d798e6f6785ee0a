package dto

import (
	"time"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/service"
	"github.com/yourusername/parajuriste-api/internal/service/quizengine"
)

// ModuleResponse — модуль в списке
type ModuleResponse struct {
	ID            uint   `json:"id"`
	Number        int    `json:"number"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	HasAudio      bool   `json:"has_audio"`
	AudioDuration *int   `json:"audio_duration,omitempty"`
	IsReporting   bool   `json:"is_reporting"`
}

// NewModuleResponse создает ModuleResponse из entity.Module
func NewModuleResponse(m *entity.Module) ModuleResponse {
	return ModuleResponse{
		ID:            m.ID,
		Number:        m.Number,
		Title:         m.Title,
		Description:   m.Description,
		HasAudio:      m.HasAudio(),
		AudioDuration: m.AudioDuration,
		IsReporting:   m.IsReportingModule(),
	}
}

// NewListModuleResponse создает список ModuleResponse
func NewListModuleResponse(modules []entity.Module) []ModuleResponse {
	out := make([]ModuleResponse, 0, len(modules))
	for i := range modules {
		out = append(out, NewModuleResponse(&modules[i]))
	}
	return out
}

// ChoiceResponse — вариант ответа без признака правильности
type ChoiceResponse struct {
	ID         uint   `json:"id"`
	ChoiceText string `json:"choice_text"`
	Order      int    `json:"order"`
}

// QuestionResponse — вопрос квиза
type QuestionResponse struct {
	ID           uint             `json:"id"`
	Order        int              `json:"order"`
	QuestionType string           `json:"question_type"`
	QuestionText string           `json:"question_text"`
	Points       int              `json:"points"`
	Choices      []ChoiceResponse `json:"answer_choices"`
}

// ModuleDetailResponse — модуль с содержимым и вопросами
type ModuleDetailResponse struct {
	ModuleResponse
	IntroductionFR string             `json:"introduction_fr"`
	ObjectivesFR   string             `json:"objectives_fr"`
	KeyConceptsFR  string             `json:"key_concepts_fr"`
	ContentFR      string             `json:"content_fr"`
	AudioFon       string             `json:"audio_fon,omitempty"`
	Questions      []QuestionResponse `json:"questions"`
}

// NewModuleDetailResponse создает ModuleDetailResponse. Explanation и IsCorrect не раскрываются
func NewModuleDetailResponse(m *entity.Module) *ModuleDetailResponse {
	resp := &ModuleDetailResponse{
		ModuleResponse: NewModuleResponse(m),
		IntroductionFR: m.IntroductionFR,
		ObjectivesFR:   m.ObjectivesFR,
		KeyConceptsFR:  m.KeyConceptsFR,
		ContentFR:      m.ContentFR,
		AudioFon:       m.AudioFon,
		Questions:      make([]QuestionResponse, 0, len(m.Questions)),
	}
	for _, q := range m.Questions {
		qr := QuestionResponse{
			ID:           q.ID,
			Order:        q.Position,
			QuestionType: q.QuestionType,
			QuestionText: q.QuestionText,
			Points:       q.Points,
			Choices:      make([]ChoiceResponse, 0, len(q.Choices)),
		}
		for _, ch := range q.Choices {
			qr.Choices = append(qr.Choices, ChoiceResponse{ID: ch.ID, ChoiceText: ch.ChoiceText, Order: ch.Position})
		}
		resp.Questions = append(resp.Questions, qr)
	}
	return resp
}

// AnswerRequest — ответ на один вопрос
type AnswerRequest struct {
	QuestionID      uint   `json:"question_id" binding:"required"`
	SelectedChoices []uint `json:"selected_choices"`
}

// SubmitQuizRequest представляет отправку квиза
type SubmitQuizRequest struct {
	Answers   []AnswerRequest `json:"answers" binding:"required,min=1,dive"`
	StartedAt *time.Time      `json:"started_at"`
}

// ToInput переводит запрос во входные данные сервиса
func (r *SubmitQuizRequest) ToInput(moduleID uint) service.SubmitInput {
	in := service.SubmitInput{
		ModuleID: moduleID,
		Answers:  make([]quizengine.AnswerInput, 0, len(r.Answers)),
	}
	if r.StartedAt != nil {
		in.StartedAt = *r.StartedAt
	}
	for _, a := range r.Answers {
		in.Answers = append(in.Answers, quizengine.AnswerInput{QuestionID: a.QuestionID, SelectedChoiceIDs: a.SelectedChoices})
	}
	return in
}

// AttemptResponse — попытка прохождения квиза
type AttemptResponse struct {
	ID             uint      `json:"id"`
	ModuleID       uint      `json:"module_id"`
	AttemptNumber  int       `json:"attempt_number"`
	Score          float64   `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	TimeTaken      *int      `json:"time_taken"`
	IsPassed       bool      `json:"is_passed"`
	StartedAt      time.Time `json:"started_at"`
	CompletedAt    time.Time `json:"completed_at"`
}

// NewAttemptResponse создает AttemptResponse из entity.QuizAttempt
func NewAttemptResponse(a *entity.QuizAttempt) *AttemptResponse {
	if a == nil {
		return nil
	}
	return &AttemptResponse{
		ID:             a.ID,
		ModuleID:       a.ModuleID,
		AttemptNumber:  a.AttemptNumber,
		Score:          a.Score,
		TotalQuestions: a.TotalQuestions,
		CorrectAnswers: a.CorrectAnswers,
		TimeTaken:      a.TimeTaken,
		IsPassed:       a.IsPassed,
		StartedAt:      a.StartedAt,
		CompletedAt:    a.CompletedAt,
	}
}

// NewListAttemptResponse создает список AttemptResponse
func NewListAttemptResponse(attempts []entity.QuizAttempt) []*AttemptResponse {
	out := make([]*AttemptResponse, 0, len(attempts))
	for i := range attempts {
		out = append(out, NewAttemptResponse(&attempts[i]))
	}
	return out
}

// QuestionResultResponse — разбор одного ответа
type QuestionResultResponse struct {
	QuestionID      uint   `json:"question_id"`
	SelectedChoices []uint `json:"selected_choices"`
	CorrectChoices  []uint `json:"correct_choices"`
	IsCorrect       bool   `json:"is_correct"`
	PointsEarned    int    `json:"points_earned"`
	PointsPossible  int    `json:"points_possible"`
}

// SubmitQuizResponse — результат отправки квиза
type SubmitQuizResponse struct {
	Attempt *AttemptResponse         `json:"attempt"`
	Passed  bool                     `json:"passed"`
	Message string                   `json:"message"`
	Results []QuestionResultResponse `json:"results"`
}

// NewSubmitQuizResponse создает SubmitQuizResponse из результата сервиса
func NewSubmitQuizResponse(r *service.SubmitResult) *SubmitQuizResponse {
	resp := &SubmitQuizResponse{
		Attempt: NewAttemptResponse(r.Attempt),
		Passed:  r.Passed,
		Message: r.Message,
		Results: []QuestionResultResponse{},
	}
	if r.Result == nil {
		return resp
	}
	for _, q := range r.Result.Questions {
		resp.Results = append(resp.Results, QuestionResultResponse{
			QuestionID:      q.QuestionID,
			SelectedChoices: nonNil(q.SelectedChoiceIDs),
			CorrectChoices:  nonNil(q.CorrectChoiceIDs),
			IsCorrect:       q.IsCorrect,
			PointsEarned:    q.PointsEarned,
			PointsPossible:  q.PointsPossible,
		})
	}
	return resp
}

func nonNil(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}
	return ids
}
