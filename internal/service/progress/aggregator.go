// Package progress turns raw quiz attempts and audio records into a user's overall progress.
package progress

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/yourusername/parajuriste-api/internal/domain/entity"
	"github.com/yourusername/parajuriste-api/internal/domain/repository"
	apperrors "github.com/yourusername/parajuriste-api/internal/pkg/errors"
	"github.com/yourusername/parajuriste-api/pkg/logger"
	"github.com/yourusername/parajuriste-api/pkg/tracing"
)

// Aggregator recomputes OverallProgress from scratch on every call.
type Aggregator struct {
	modules repository.ModuleRepository
	overall repository.OverallProgressRepository
	rules   map[string]ProgressRule
	now     func() time.Time
}

// NewAggregator creates an aggregator with one rule per track.
func NewAggregator(
	modules repository.ModuleRepository,
	overall repository.OverallProgressRepository,
	rules ...ProgressRule,
) *Aggregator {
	a := &Aggregator{
		modules: modules,
		overall: overall,
		rules:   make(map[string]ProgressRule, len(rules)),
		now:     time.Now,
	}
	for _, r := range rules {
		a.rules[r.Track()] = r
	}
	return a
}

// RuleFor selects the rule of the user's track.
func (a *Aggregator) RuleFor(user *entity.User) (ProgressRule, error) {
	rule, ok := a.rules[user.PreferredLanguage]
	if !ok {
		return nil, fmt.Errorf("%w: unknown language track %q", apperrors.ErrValidation, user.PreferredLanguage)
	}
	return rule, nil
}

// Recompute rebuilds and stores the user's OverallProgress. Every call reads the
// current attempts itself, so a caller always sees its own committed writes.
// completed_at is latched on the first transition into eligibility and never cleared.
func (a *Aggregator) Recompute(ctx context.Context, user *entity.User) (*entity.OverallProgress, error) {
	ctx, span := tracing.StartSpan(ctx, "progress.Recompute",
		attribute.Int64("user.id", int64(user.ID)),
		attribute.String("user.track", user.PreferredLanguage),
	)
	defer span.End()

	progress, snap, modules, err := a.evaluate(ctx, user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	wasEligible := progress.CompletedAt != nil
	progress.SetCounts(snap.CompletedCount(modules), len(modules))
	progress.TotalQuizAttempts = snap.TotalQuizAttempts
	progress.AverageQuizScore = snap.AverageQuizScore
	progress.TotalAudioTime = snap.TotalAudioTime
	progress.LatchCompletion(a.now())

	if err := a.overall.Save(ctx, progress); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("save overall progress for user #%d: %w", user.ID, err)
	}

	if !wasEligible && progress.CanGetCertificate {
		logger.Log.Named("progress").Info("user became certificate eligible",
			zap.Uint("user_id", user.ID),
			zap.Int("modules", progress.TotalModules),
		)
	}
	span.SetAttributes(
		attribute.Int("progress.completed", progress.CompletedModules),
		attribute.Int("progress.total", progress.TotalModules),
	)
	return progress, nil
}

func (a *Aggregator) evaluate(ctx context.Context, user *entity.User) (*entity.OverallProgress, *TrackSnapshot, []entity.Module, error) {
	rule, err := a.RuleFor(user)
	if err != nil {
		return nil, nil, nil, err
	}
	modules, err := a.modules.ListActiveTraining(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list training modules: %w", err)
	}
	snap, err := rule.Evaluate(ctx, user.ID, modules)
	if err != nil {
		return nil, nil, nil, err
	}
	progress, err := a.overall.GetOrCreate(ctx, user.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load overall progress for user #%d: %w", user.ID, err)
	}
	return progress, snap, modules, nil
}

// CompletedModules returns the IDs of training modules the user completed, per track rule.
func (a *Aggregator) CompletedModules(ctx context.Context, user *entity.User) (map[uint]bool, []entity.Module, error) {
	rule, err := a.RuleFor(user)
	if err != nil {
		return nil, nil, err
	}
	modules, err := a.modules.ListActiveTraining(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list training modules: %w", err)
	}
	snap, err := rule.Evaluate(ctx, user.ID, modules)
	if err != nil {
		return nil, nil, err
	}
	return snap.Completed, modules, nil
}

// NextModule returns the first training module by number that is not completed,
// or nil when every module is done.
func (a *Aggregator) NextModule(ctx context.Context, user *entity.User) (*entity.Module, error) {
	completed, modules, err := a.CompletedModules(ctx, user)
	if err != nil {
		return nil, err
	}
	for i := range modules {
		if !completed[modules[i].ID] {
			return &modules[i], nil
		}
	}
	return nil, nil
}
