package quizengine

// AnswerInput is the answer to one question as submitted by the user.
type AnswerInput struct {
	QuestionID        uint
	SelectedChoiceIDs []uint
}

// QuestionResult is the scored outcome of one answer.
type QuestionResult struct {
	QuestionID        uint
	SelectedChoiceIDs []uint
	CorrectChoiceIDs  []uint
	IsCorrect         bool
	PointsEarned      int
	PointsPossible    int
}

// Result is the outcome of scoring a whole submission.
type Result struct {
	// Score in percent, 0..100
	Score          float64
	PointsEarned   int
	PointsPossible int
	CorrectAnswers int
	Passed         bool
	Questions      []QuestionResult
}
