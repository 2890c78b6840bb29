package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/storyforge-backend/internal/domain/coursegen"
	"github.com/yungbote/storyforge-backend/internal/platform/logger"
)

// Unit is one work item of a stage: a module, an episode, a character.
type Unit struct {
	Key string
	Run func(ctx context.Context) error
	// Fail records the failure against the unit. It runs for every failed unit
	// regardless of policy; its own error is logged.
	Fail func(ctx context.Context, err error) error
}

type Runner struct {
	policies map[coursegen.Stage]FailurePolicy
	log      *logger.Logger
	tracer   trace.Tracer
}

func NewRunner(policies map[coursegen.Stage]FailurePolicy, baseLog *logger.Logger) *Runner {
	if policies == nil {
		policies = DefaultPolicies
	}
	return &Runner{
		policies: policies,
		log:      baseLog.With("component", "StageRunner"),
		tracer:   otel.Tracer("storyforge/orchestrator"),
	}
}

func (r *Runner) Policy(stage coursegen.Stage) FailurePolicy {
	return PolicyFor(r.policies, stage)
}

// Run executes units strictly in order. Under FailFast the first error stops the
// stage and is returned; remaining units are reported as skipped. Under FailIsolated
// errors are recorded per unit and Run returns nil unless ctx is cancelled.
func (r *Runner) Run(ctx context.Context, stage coursegen.Stage, units []Unit) (*StageReport, error) {
	policy := r.Policy(stage)
	ctx, span := r.tracer.Start(ctx, "stage."+string(stage),
		trace.WithAttributes(
			attribute.String("stage", string(stage)),
			attribute.String("policy", string(policy)),
			attribute.Int("units", len(units)),
		))
	defer span.End()

	report := &StageReport{
		Stage:     stage,
		Policy:    policy,
		Units:     make([]UnitResult, len(units)),
		StartedAt: time.Now().UTC(),
	}
	for i, u := range units {
		report.Units[i] = UnitResult{Key: u.Key, Status: UnitPending}
	}
	finish := func(err error) (*StageReport, error) {
		report.FinishedAt = time.Now().UTC()
		for i := range report.Units {
			if report.Units[i].Status == UnitPending {
				report.Units[i].Status = UnitSkipped
			}
		}
		span.SetAttributes(
			attribute.Int("units.succeeded", report.Succeeded()),
			attribute.Int("units.failed", report.Failed()),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return report, err
	}

	for i, u := range units {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		res := &report.Units[i]
		markStarted(res)
		res.Status = UnitRunning

		err := r.runUnit(ctx, stage, u)
		markFinished(res)
		if err == nil {
			res.Status = UnitSucceeded
			continue
		}

		res.Status = UnitFailed
		res.LastError = err.Error()
		if u.Fail != nil {
			if ferr := u.Fail(context.WithoutCancel(ctx), err); ferr != nil {
				r.log.Error("Recording unit failure failed", "stage", stage, "unit", u.Key, "error", ferr)
			}
		}
		if policy == FailFast {
			r.log.Warn("Unit failed, aborting stage", "stage", stage, "unit", u.Key, "error", err)
			return finish(fmt.Errorf("%s unit %s: %w", stage, u.Key, err))
		}
		r.log.Warn("Unit failed, continuing", "stage", stage, "unit", u.Key, "error", err)
	}
	return finish(nil)
}

func (r *Runner) runUnit(ctx context.Context, stage coursegen.Stage, u Unit) error {
	ctx, span := r.tracer.Start(ctx, "unit."+string(stage), trace.WithAttributes(attribute.String("unit", u.Key)))
	defer span.End()
	err := safeRun(ctx, u)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func safeRun(ctx context.Context, u Unit) (err error) {
	if u.Run == nil {
		return fmt.Errorf("unit %q: Run is nil", u.Key)
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unit %q panicked: %v", u.Key, rec)
		}
	}()
	return u.Run(ctx)
}

// BestEffort runs a secondary derivation whose failure must never fail the unit
// that asked for it. Panics come back as errors. The caller logs and discards.
func BestEffort[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (result T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			var zero T
			result = zero
			err = fmt.Errorf("best-effort step panicked: %v", rec)
		}
	}()
	result, err = fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func markStarted(u *UnitResult) {
	if u == nil || u.StartedAt != nil {
		return
	}
	now := time.Now().UTC()
	u.StartedAt = &now
}

func markFinished(u *UnitResult) {
	if u == nil {
		return
	}
	now := time.Now().UTC()
	u.FinishedAt = &now
}
