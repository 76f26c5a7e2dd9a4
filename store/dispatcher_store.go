package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nilotpaul/meetsync/metrics"
	"github.com/nilotpaul/meetsync/setting"
	"github.com/nilotpaul/meetsync/types"
	"golang.org/x/sync/errgroup"
)

// StepFunc runs one automation step for a user.
type StepFunc func(ctx context.Context, userID string, step types.AutomationStep, meeting *types.MeetingArtifact) types.ActionResult

// Dispatcher runs the steps of a user's automations against a meeting. All
// steps of all matching automations run concurrently; a failing or panicking
// step never affects the others.
type Dispatcher struct {
	registry    *ProviderRegistry
	tokens      *TokenManager
	stepTimeout time.Duration
	runStep     StepFunc
	logger      *slog.Logger
}

func NewDispatcher(registry *ProviderRegistry, tokens *TokenManager, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		registry:    registry,
		tokens:      tokens,
		stepTimeout: setting.StepTimeout,
		logger:      logger,
	}
	d.runStep = d.performStep

	return d
}

// WithStepFunc replaces how steps are executed.
func (d *Dispatcher) WithStepFunc(f StepFunc) *Dispatcher {
	d.runStep = f
	return d
}

func (d *Dispatcher) Dispatch(ctx context.Context, userID string, meeting *types.MeetingArtifact, automations []*types.Automation) types.DispatchReport {
	return d.DispatchStream(ctx, userID, meeting, automations, nil)
}

// DispatchStream is Dispatch with onStep called as each step finishes. Calls
// to onStep are serialized.
func (d *Dispatcher) DispatchStream(
	ctx context.Context,
	userID string,
	meeting *types.MeetingArtifact,
	automations []*types.Automation,
	onStep func(types.StepResult),
) types.DispatchReport {
	results := make([]types.AutomationResult, len(automations))
	var (
		g      errgroup.Group
		stepMu sync.Mutex
	)

	for i, a := range automations {
		results[i] = types.AutomationResult{AutomationID: a.ID, Name: a.Name}

		if reason, skip := skipReason(a, meeting); skip {
			results[i].Status = types.StepSkip
			results[i].Reason = reason
			continue
		}

		results[i].Steps = make([]types.StepResult, len(a.Steps))
		for j, step := range a.Steps {
			// Each goroutine writes its own slot, no lock needed for results.
			g.Go(func() error {
				sr := d.safeRun(ctx, userID, a.ID, j, step, meeting)
				results[i].Steps[j] = sr
				metrics.DispatchSteps.WithLabelValues(stepLabel(d.registry, step.Type), string(sr.Status)).Inc()

				if onStep != nil {
					stepMu.Lock()
					onStep(sr)
					stepMu.Unlock()
				}
				return nil
			})
		}
	}

	// Steps report failures as data, Wait never returns an error.
	_ = g.Wait()

	executed, failed := 0, 0
	for i := range results {
		if results[i].Status == types.StepSkip {
			continue
		}

		stepsFailed := 0
		for _, sr := range results[i].Steps {
			executed++
			if sr.Status == types.StepError {
				stepsFailed++
			}
		}
		failed += stepsFailed

		if stepsFailed == 0 {
			results[i].Status = types.StepSuccess
		} else {
			results[i].Status = types.StepError
			results[i].Reason = fmt.Sprintf("%d of %d steps failed", stepsFailed, len(results[i].Steps))
		}
	}

	d.logger.InfoContext(ctx, "automations dispatched",
		"user_id", userID,
		"meeting_id", meeting.ID,
		"automations", len(automations),
		"steps", executed,
		"failed", failed,
	)

	return types.DispatchReport{
		Status:  reportStatus(executed, failed),
		Results: results,
	}
}

// reportStatus is 200 when nothing failed, 207 for a partial failure and 502
// when every executed step failed.
func reportStatus(executed, failed int) int {
	switch {
	case failed == 0:
		return http.StatusOK
	case failed < executed:
		return http.StatusMultiStatus
	default:
		return http.StatusBadGateway
	}
}

func skipReason(a *types.Automation, meeting *types.MeetingArtifact) (string, bool) {
	if !a.Enabled {
		return "automation is disabled", true
	}
	if len(a.Steps) == 0 {
		return "automation has no steps", true
	}
	if !tagsMatch(a.Tags, meeting.Tags) {
		return "meeting tags do not match", true
	}
	return "", false
}

// tagsMatch reports whether the meeting carries at least one of the
// automation's tags. An automation without tags matches every meeting.
func tagsMatch(filter, tags []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		for _, t := range tags {
			if strings.EqualFold(strings.TrimSpace(f), strings.TrimSpace(t)) {
				return true
			}
		}
	}
	return false
}

func (d *Dispatcher) safeRun(
	ctx context.Context,
	userID, automationID string,
	index int,
	step types.AutomationStep,
	meeting *types.MeetingArtifact,
) (sr types.StepResult) {
	sr = types.StepResult{AutomationID: automationID, Index: index, Type: step.Type}

	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "automation step panicked",
				"automation_id", automationID,
				"step", index,
				"type", step.Type,
				"panic", r,
			)
			sr.Status = types.StepError
			sr.Reason = fmt.Sprintf("step panicked: %v", r)
		}
	}()

	stepCtx, cancel := context.WithTimeout(ctx, d.stepTimeout)
	defer cancel()

	res := d.runStep(stepCtx, userID, step, meeting)
	if !res.Success {
		d.logger.WarnContext(ctx, "automation step failed",
			"automation_id", automationID,
			"step", index,
			"type", step.Type,
			"reason", res.Reason,
		)
		sr.Status = types.StepError
		sr.Reason = res.Reason
		return sr
	}

	sr.Status = types.StepSuccess
	sr.ExternalID = res.ExternalID
	sr.URL = res.URL
	return sr
}

// performStep resolves the step's provider, makes sure the user's credential
// is usable and runs the provider action.
func (d *Dispatcher) performStep(ctx context.Context, userID string, step types.AutomationStep, meeting *types.MeetingArtifact) types.ActionResult {
	p, err := d.registry.GetProvider(step.Type)
	if err != nil {
		return types.ActionFailed("unknown step type %q", step.Type)
	}

	cred, err := d.tokens.EnsureUsable(ctx, userID, step.Type)
	if err != nil {
		return types.ActionFailed("%s is not usable, reconnect it: %v", step.Type, err)
	}

	return p.Perform(ctx, cred, types.ActionInput{Meeting: meeting, Config: step.Config})
}

func stepLabel(r *ProviderRegistry, stepType string) string {
	if _, err := r.GetProvider(stepType); err != nil {
		return "unknown"
	}
	return stepType
}
