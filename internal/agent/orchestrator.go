// Package agent runs the companion loop for one user: trigger evaluation,
// check-in delivery and memory updates.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/lease"
	"github.com/easeaico/memorify/internal/memory"
	"github.com/easeaico/memorify/internal/trigger"
	"github.com/easeaico/memorify/internal/types"
)

// SettingsProvider loads settings and records check-in times.
type SettingsProvider interface {
	Get(ctx context.Context, id types.Identity) (types.AgentSettings, error)
	RecordCheckIn(ctx context.Context, id types.Identity, at time.Time) error
}

// Composer writes the message for a candidate.
type Composer interface {
	Compose(ctx context.Context, id types.Identity, settings types.AgentSettings, candidate trigger.Candidate) string
}

// CheckinWriter suppresses duplicates and persists check-ins.
type CheckinWriter interface {
	Check(ctx context.Context, id types.Identity, trigger types.TriggerType) error
	Write(ctx context.Context, id types.Identity, checkin *types.AgentCheckin) error
}

// MemoryUpdater mines recent entries into memories.
type MemoryUpdater interface {
	Update(ctx context.Context, id types.Identity, entries []types.DiaryEntry) (memory.UpdateReport, error)
}

// RunReport describes one run of the loop.
type RunReport struct {
	UserID     string              `json:"user_id"`
	Skipped    bool                `json:"skipped"`
	Reason     string              `json:"reason,omitempty"`
	Steps      []StepResult        `json:"steps"`
	Memory     memory.UpdateReport `json:"memory"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
}

// Raised returns the check-ins created by the run.
func (r *RunReport) Raised() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Outcome == OutcomeRaised {
			out = append(out, s)
		}
	}
	return out
}

const (
	SkipInProgress = "in_progress"
	SkipDisabled   = "agentic_mode_disabled"

	memoryStep = "update_memories"
)

// Config wires an Orchestrator.
type Config struct {
	Settings   SettingsProvider
	Evaluators []trigger.Evaluator
	Composer   Composer
	Writer     CheckinWriter
	Memory     MemoryUpdater
	Lease      lease.Lease
	LeaseTTL   time.Duration
	Logger     *slog.Logger
}

// Orchestrator sequences the trigger evaluators and the memory updater for one user.
type Orchestrator struct {
	settings   SettingsProvider
	evaluators []trigger.Evaluator
	composer   Composer
	writer     CheckinWriter
	memory     MemoryUpdater
	lease      lease.Lease
	leaseTTL   time.Duration
	logger     *slog.Logger
	nowFunc    func() time.Time
}

// New creates an Orchestrator. A nil Lease uses an in-process lease.
func New(cfg Config) *Orchestrator {
	if cfg.Lease == nil {
		cfg.Lease = lease.NewLocal()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Evaluators == nil {
		cfg.Evaluators = trigger.Evaluators(trigger.DefaultPolicy())
	}
	return &Orchestrator{
		settings:   cfg.Settings,
		evaluators: cfg.Evaluators,
		composer:   cfg.Composer,
		writer:     cfg.Writer,
		memory:     cfg.Memory,
		lease:      cfg.Lease,
		leaseTTL:   cfg.LeaseTTL,
		logger:     cfg.Logger,
		nowFunc:    time.Now,
	}
}

// Run executes the loop once. A run already in progress for the same user
// makes this call a no-op reported as skipped. Step failures are recorded in
// the report; only authentication, lease and settings failures are returned.
func (o *Orchestrator) Run(ctx context.Context, id types.Identity, entries []types.DiaryEntry) (*RunReport, error) {
	const op = "run_agent_loop"
	if !id.Valid() {
		return nil, apperr.Unauthenticated(op)
	}
	report := &RunReport{UserID: id.UserID, StartedAt: o.nowFunc()}

	key := "agent_loop:" + id.UserID
	token, ok, err := o.lease.Acquire(ctx, key, o.leaseTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		o.logger.Info("agent loop already running, skipping", "user_id", id.UserID)
		report.Skipped = true
		report.Reason = SkipInProgress
		report.FinishedAt = o.nowFunc()
		return report, nil
	}
	defer func() {
		if err := o.lease.Release(context.WithoutCancel(ctx), key, token); err != nil {
			apperr.LogWithSeverity(ctx, o.logger, err, apperr.SeverityMedium, "release_lease", "user_id", id.UserID)
		}
	}()

	settings, err := o.settings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !settings.AgenticModeEnabled {
		o.logger.Debug("agentic mode disabled, skipping", "user_id", id.UserID)
		report.Skipped = true
		report.Reason = SkipDisabled
		report.FinishedAt = o.nowFunc()
		return report, nil
	}

	sorted := types.SortNewestFirst(entries)
	for _, ev := range o.evaluators {
		report.Steps = append(report.Steps, runStep(ctx, o.logger, id.UserID, stepName(ev.Trigger), func(ctx context.Context) (StepResult, error) {
			candidate := ev.Evaluate(sorted, settings, o.nowFunc())
			if candidate == nil {
				return StepResult{Trigger: ev.Trigger, Outcome: OutcomeNone}, nil
			}
			return o.Raise(ctx, id, settings, *candidate)
		}))
	}

	if o.memory != nil {
		report.Steps = append(report.Steps, runStep(ctx, o.logger, id.UserID, memoryStep, func(ctx context.Context) (StepResult, error) {
			mem, err := o.memory.Update(ctx, id, sorted)
			report.Memory = mem
			if err != nil {
				return StepResult{}, err
			}
			return StepResult{Outcome: OutcomeUpdated}, nil
		}))
	}

	report.FinishedAt = o.nowFunc()
	o.logger.Info("agent loop finished",
		"user_id", id.UserID,
		"entries", len(entries),
		"raised", len(report.Raised()),
		"memories_created", report.Memory.Created,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

// Raise delivers one candidate: duplicate check, message composition and write.
// A duplicate is reported as an outcome, not an error.
func (o *Orchestrator) Raise(ctx context.Context, id types.Identity, settings types.AgentSettings, candidate trigger.Candidate) (StepResult, error) {
	result := StepResult{Trigger: candidate.Trigger}

	if err := o.writer.Check(ctx, id, candidate.Trigger); err != nil {
		return o.duplicateOr(ctx, id, result, err)
	}

	checkin := &types.AgentCheckin{
		TriggerType:      candidate.Trigger,
		Message:          o.composer.Compose(ctx, id, settings, candidate),
		EmotionalContext: candidate.Context,
	}
	if err := o.writer.Write(ctx, id, checkin); err != nil {
		return o.duplicateOr(ctx, id, result, err)
	}

	if err := o.settings.RecordCheckIn(ctx, id, checkin.CreatedAt); err != nil {
		apperr.LogWithSeverity(ctx, o.logger, err, apperr.SeverityLow, "record_check_in", "user_id", id.UserID)
	}
	o.logger.Info("check-in raised",
		"user_id", id.UserID,
		"trigger", string(candidate.Trigger),
		"checkin_id", checkin.ID,
	)
	result.Outcome = OutcomeRaised
	result.CheckinID = checkin.ID
	return result, nil
}

func (o *Orchestrator) duplicateOr(ctx context.Context, id types.Identity, result StepResult, err error) (StepResult, error) {
	if apperr.Is(err, apperr.KindDuplicate) {
		o.logger.DebugContext(ctx, "check-in already raised in window",
			"user_id", id.UserID,
			"trigger", string(result.Trigger),
		)
		result.Outcome = OutcomeDuplicate
		return result, nil
	}
	return result, err
}
