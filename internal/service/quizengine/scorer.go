// Package quizengine scores quiz submissions. Scoring is pure: nothing is persisted here.
package quizengine

import (
	"fmt"
	"sort"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
)

// Score validates the answers against the module's active questions and scores them.
// A question is correct only when the selected set equals the correct set exactly.
func Score(module *entity.Module, answers []AnswerInput) (*Result, error) {
	if module == nil || !module.IsActive {
		return nil, fmt.Errorf("%w: module not found or inactive", apperrors.ErrValidation)
	}
	if module.IsReportingModule() {
		return nil, fmt.Errorf("%w: module %d has no quiz", apperrors.ErrValidation, module.Number)
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: at least one answer is required", apperrors.ErrValidation)
	}

	questions := make(map[uint]*entity.QuizQuestion)
	active := module.ActiveQuestions()
	for i := range active {
		questions[active[i].ID] = &active[i]
	}

	result := &Result{Questions: make([]QuestionResult, 0, len(answers))}
	seen := make(map[uint]struct{}, len(answers))

	for _, a := range answers {
		q, ok := questions[a.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: question %d does not belong to module %d", apperrors.ErrValidation, a.QuestionID, module.Number)
		}
		if _, dup := seen[a.QuestionID]; dup {
			return nil, fmt.Errorf("%w: question %d answered twice", apperrors.ErrValidation, a.QuestionID)
		}
		seen[a.QuestionID] = struct{}{}

		if q.IsSingleChoice() && len(a.SelectedChoiceIDs) != 1 {
			return nil, fmt.Errorf("%w: question %d accepts exactly one choice", apperrors.ErrValidation, q.ID)
		}
		for _, id := range a.SelectedChoiceIDs {
			if !q.HasChoice(id) {
				return nil, fmt.Errorf("%w: choice %d does not belong to question %d", apperrors.ErrValidation, id, q.ID)
			}
		}

		isCorrect := q.IsCorrect(a.SelectedChoiceIDs)
		earned := q.CalculatePoints(isCorrect)
		if isCorrect {
			result.CorrectAnswers++
		}
		result.PointsEarned += earned
		result.PointsPossible += q.Points

		result.Questions = append(result.Questions, QuestionResult{
			QuestionID:        q.ID,
			SelectedChoiceIDs: a.SelectedChoiceIDs,
			CorrectChoiceIDs:  sortedIDs(q.CorrectChoiceIDs()),
			IsCorrect:         isCorrect,
			PointsEarned:      earned,
			PointsPossible:    q.Points,
		})
	}

	result.Score = CalculateScore(result.PointsEarned, result.PointsPossible)
	result.Passed = entity.IsPassingScore(result.Score)
	return result, nil
}

// CalculateScore returns earned/possible in percent, 0 when nothing is possible.
func CalculateScore(earned, possible int) float64 {
	if possible <= 0 {
		return 0
	}
	return 100 * float64(earned) / float64(possible)
}

func sortedIDs(set map[uint]struct{}) []uint {
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
