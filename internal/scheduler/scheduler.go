// Package scheduler runs the agent loop for every enabled owner on a cron schedule.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/easeaico/memorify/internal/agent"
	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/insight"
	"github.com/easeaico/memorify/internal/trigger"
	"github.com/easeaico/memorify/internal/types"
)

const (
	defaultConcurrency = 4
	diaryLoadLimit     = 200
	insightDay         = time.Sunday
)

// Runner runs orchestrations and raises scheduled check-ins.
type Runner interface {
	Run(ctx context.Context, id types.Identity, entries []types.DiaryEntry) (*agent.RunReport, error)
	Raise(ctx context.Context, id types.Identity, settings types.AgentSettings, candidate trigger.Candidate) (agent.StepResult, error)
}

// Engine provides settings and weekly insights.
type Engine interface {
	Settings(ctx context.Context, id types.Identity) (types.AgentSettings, error)
	GenerateWeekInsight(ctx context.Context, id types.Identity, entries []types.DiaryEntry, at time.Time) (*types.WeeklyInsight, error)
	RecentInsights(ctx context.Context, id types.Identity, limit int) ([]types.WeeklyInsight, error)
}

// Owners lists the owners with agentic mode enabled.
type Owners interface {
	ListEnabled(ctx context.Context) ([]string, error)
}

// DiaryReader loads an owner's entries, newest first.
type DiaryReader interface {
	ListRecent(ctx context.Context, userID string, limit int) ([]types.DiaryEntry, error)
}

// SweepReport summarizes one pass over all enabled owners.
type SweepReport struct {
	Owners   int
	Raised   int
	Skipped  int
	Failed   int
	Insights int
}

// Config configures a Scheduler.
type Config struct {
	Runner      Runner
	Engine      Engine
	Owners      Owners
	Diary       DiaryReader
	Schedule    string
	Concurrency int
	Logger      *slog.Logger
}

// Scheduler sweeps enabled owners periodically.
type Scheduler struct {
	runner      Runner
	engine      Engine
	owners      Owners
	diary       DiaryReader
	schedule    string
	concurrency int
	logger      *slog.Logger
	nowFunc     func() time.Time
}

// New creates a Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Scheduler{
		runner:      cfg.Runner,
		engine:      cfg.Engine,
		owners:      cfg.Owners,
		diary:       cfg.Diary,
		schedule:    cfg.Schedule,
		concurrency: concurrency,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// Start runs Sweep on the schedule until ctx is done, then waits for a running sweep to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(s.schedule, func() {
		_, _ = s.Sweep(ctx)
	}); err != nil {
		return apperr.E(apperr.KindValidation, "parse_sweep_schedule", err)
	}
	s.logger.Info("scheduler started", "schedule", s.schedule, "concurrency", s.concurrency)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}

// Sweep runs the agent loop for every enabled owner. Failures are isolated per owner.
func (s *Scheduler) Sweep(ctx context.Context) (SweepReport, error) {
	owners, err := s.owners.ListEnabled(ctx)
	if err != nil {
		apperr.Log(ctx, s.logger, err, "list_enabled_owners")
		return SweepReport{}, err
	}

	var (
		mu     sync.Mutex
		report = SweepReport{Owners: len(owners)}
	)
	now := s.nowFunc()
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, userID := range owners {
		g.Go(func() error {
			out := s.sweepOwner(ctx, types.Identity{UserID: userID}, now)
			mu.Lock()
			report.Raised += out.Raised
			report.Skipped += out.Skipped
			report.Failed += out.Failed
			report.Insights += out.Insights
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("sweep finished",
		"owners", report.Owners,
		"raised", report.Raised,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"insights", report.Insights,
		"duration", s.nowFunc().Sub(now),
	)
	return report, nil
}

func (s *Scheduler) sweepOwner(ctx context.Context, id types.Identity, now time.Time) SweepReport {
	var out SweepReport
	entries, err := s.diary.ListRecent(ctx, id.UserID, diaryLoadLimit)
	if err != nil {
		apperr.Log(ctx, s.logger, err, "load_diary_entries", "user_id", id.UserID)
		out.Failed++
		return out
	}

	run, err := s.runner.Run(ctx, id, entries)
	if err != nil {
		apperr.Log(ctx, s.logger, err, "run_agent_loop", "user_id", id.UserID)
		out.Failed++
		return out
	}
	if run.Skipped {
		out.Skipped++
		return out
	}
	out.Raised += len(run.Raised())
	for _, step := range run.Steps {
		if step.Outcome == agent.OutcomeFailed {
			out.Failed++
		}
	}

	if now.Weekday() != insightDay {
		return out
	}
	raised, created, err := s.weekly(ctx, id, entries, now)
	if err != nil {
		apperr.Log(ctx, s.logger, err, "weekly_insight", "user_id", id.UserID)
		out.Failed++
	}
	if raised {
		out.Raised++
	}
	if created {
		out.Insights++
	}
	return out
}

// weekly synthesizes the week that ended before now and raises a scheduled
// check-in. An insight already stored for that week is not regenerated.
func (s *Scheduler) weekly(ctx context.Context, id types.Identity, entries []types.DiaryEntry, now time.Time) (raised, created bool, err error) {
	settings, err := s.engine.Settings(ctx, id)
	if err != nil {
		return false, false, err
	}
	if !settings.ProactiveInsights {
		return false, false, nil
	}

	lastWeek := now.AddDate(0, 0, -1)
	start, _ := insight.WeekRange(lastWeek)
	recent, err := s.engine.RecentInsights(ctx, id, 1)
	if err != nil {
		return false, false, err
	}
	if len(recent) > 0 && recent[0].WeekStart.Equal(start) {
		return false, false, nil
	}

	if _, err := s.engine.GenerateWeekInsight(ctx, id, entries, lastWeek); err != nil {
		if apperr.Is(err, apperr.KindNoEntries) {
			return false, false, nil
		}
		return false, false, err
	}
	result, err := s.runner.Raise(ctx, id, settings, trigger.Candidate{
		Trigger: types.TriggerScheduled,
		Context: "weekly insight for " + start.Format("Jan 2"),
	})
	if err != nil {
		return false, true, err
	}
	return result.Outcome == agent.OutcomeRaised, true, nil
}

// cronLogger adapts slog to the cron logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
