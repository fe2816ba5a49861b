package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/easeaico/memorify/internal/apperr"
	"github.com/easeaico/memorify/internal/types"
)

// Outcome is how one step of a run ended.
type Outcome string

const (
	OutcomeRaised    Outcome = "raised"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeNone      Outcome = "none"
	OutcomeUpdated   Outcome = "updated"
	OutcomeFailed    Outcome = "failed"
)

// StepResult reports one evaluator or the memory update.
type StepResult struct {
	Name      string            `json:"name"`
	Trigger   types.TriggerType `json:"trigger,omitempty"`
	Outcome   Outcome           `json:"outcome"`
	CheckinID string            `json:"checkin_id,omitempty"`
	Error     string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration"`
}

type stepFunc func(ctx context.Context) (StepResult, error)

// runStep runs fn isolated from the other steps: errors and panics are
// logged and turned into a failed result.
func runStep(ctx context.Context, logger *slog.Logger, userID, name string, fn stepFunc) (result StepResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := apperr.Errorf(apperr.KindInternal, name, "panic: %v", r)
			apperr.LogWithSeverity(ctx, logger, err, apperr.SeverityCritical, name, "user_id", userID)
			result = StepResult{Name: name, Outcome: OutcomeFailed, Error: apperr.UserMessage(err)}
		}
		result.Duration = time.Since(start)
	}()

	logger.Debug("agent step start", "step", name, "user_id", userID)
	result, err := fn(ctx)
	result.Name = name
	if err != nil {
		apperr.Log(ctx, logger, err, name, "user_id", userID, "trigger", string(result.Trigger))
		result.Outcome = OutcomeFailed
		result.Error = apperr.UserMessage(err)
		return result
	}
	logger.Debug("agent step done", "step", name, "user_id", userID, "outcome", string(result.Outcome))
	return result
}

func stepName(trigger types.TriggerType) string {
	return fmt.Sprintf("evaluate_%s", trigger)
}
