package progress

import (
	"context"
	"fmt"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
)

// TrackSnapshot is what a rule reports about one user over the training modules.
type TrackSnapshot struct {
	// Completed holds the IDs of completed training modules
	Completed         map[uint]bool
	TotalQuizAttempts int
	AverageQuizScore  *float64
	TotalAudioTime    int
}

// CompletedCount returns how many of modules are completed.
func (s *TrackSnapshot) CompletedCount(modules []entity.Module) int {
	n := 0
	for _, m := range modules {
		if s.Completed[m.ID] {
			n++
		}
	}
	return n
}

// ProgressRule decides module completion for one language track.
type ProgressRule interface {
	Track() string
	Evaluate(ctx context.Context, userID uint, modules []entity.Module) (*TrackSnapshot, error)
}

// QuizBasedRule: a module is complete when the best attempt passed.
type QuizBasedRule struct {
	attempts repository.AttemptRepository
}

// NewQuizBasedRule creates the French track rule.
func NewQuizBasedRule(attempts repository.AttemptRepository) *QuizBasedRule {
	return &QuizBasedRule{attempts: attempts}
}

func (r *QuizBasedRule) Track() string { return entity.LanguageFrench }

// Evaluate averages best-attempt scores over attempted modules only.
func (r *QuizBasedRule) Evaluate(ctx context.Context, userID uint, modules []entity.Module) (*TrackSnapshot, error) {
	ids := moduleIDs(modules)

	best, err := r.attempts.BestAttempts(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("best attempts for user #%d: %w", userID, err)
	}
	total, err := r.attempts.CountAttempts(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("count attempts for user #%d: %w", userID, err)
	}

	snap := &TrackSnapshot{Completed: make(map[uint]bool, len(ids)), TotalQuizAttempts: int(total)}
	sum := 0.0
	for _, id := range ids {
		a, ok := best[id]
		if !ok {
			continue
		}
		sum += a.Score
		if a.IsPassed {
			snap.Completed[id] = true
		}
	}
	if len(best) > 0 {
		avg := sum / float64(len(best))
		snap.AverageQuizScore = &avg
	}
	return snap, nil
}

// AudioBasedRule: a module is complete when its ModuleProgress is completed.
type AudioBasedRule struct {
	progress repository.ModuleProgressRepository
}

// NewAudioBasedRule creates the Fon track rule.
func NewAudioBasedRule(progress repository.ModuleProgressRepository) *AudioBasedRule {
	return &AudioBasedRule{progress: progress}
}

func (r *AudioBasedRule) Track() string { return entity.LanguageFon }

// Evaluate sums listening time over every tracked module, the reporting module included.
func (r *AudioBasedRule) Evaluate(ctx context.Context, userID uint, modules []entity.Module) (*TrackSnapshot, error) {
	records, err := r.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("module progress for user #%d: %w", userID, err)
	}

	training := make(map[uint]bool, len(modules))
	for _, m := range modules {
		training[m.ID] = true
	}

	snap := &TrackSnapshot{Completed: make(map[uint]bool, len(modules))}
	for _, p := range records {
		snap.TotalAudioTime += p.TotalListeningTime
		if p.IsCompleted && training[p.ModuleID] {
			snap.Completed[p.ModuleID] = true
		}
	}
	return snap, nil
}

func moduleIDs(modules []entity.Module) []uint {
	ids := make([]uint, len(modules))
	for i, m := range modules {
		ids[i] = m.ID
	}
	return ids
}
