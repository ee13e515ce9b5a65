package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/sieve/pkg/domain"
)

// LoggingHooks logs every lifecycle event at debug level, and step
// failures at error level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_enter", "step", e.Step, "run_id", e.RunID)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_leave", "step", e.Step, "run_id", e.RunID, "duration", e.Duration)
		},
		OnStepError: func(ctx context.Context, e *domain.StepEvent) {
			logger.ErrorContext(ctx, "step_error", "step", e.Step, "run_id", e.RunID, "error", e.Err)
		},
		OnRoute: func(ctx context.Context, e *domain.RouteEvent) {
			logger.DebugContext(ctx, "route", "from", e.From, "label", e.Label, "to", e.Target, "run_id", e.RunID)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			if e.Err != nil {
				logger.DebugContext(ctx, "run_finish", "run_id", e.RunID, "failed_step", e.FailedStep, "duration", e.Duration, "error", e.Err)
				return
			}
			logger.DebugContext(ctx, "run_finish", "run_id", e.RunID, "steps", len(e.Visited), "duration", e.Duration)
		},
	}
}

// Combine returns hooks that call every non-nil hook of each set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks

	var enter, leave, fail []func(context.Context, *domain.StepEvent)
	var route []func(context.Context, *domain.RouteEvent)
	var finish []func(context.Context, *domain.RunEvent)
	for _, s := range sets {
		if s.OnStepEnter != nil {
			enter = append(enter, s.OnStepEnter)
		}
		if s.OnStepLeave != nil {
			leave = append(leave, s.OnStepLeave)
		}
		if s.OnStepError != nil {
			fail = append(fail, s.OnStepError)
		}
		if s.OnRoute != nil {
			route = append(route, s.OnRoute)
		}
		if s.OnRunFinish != nil {
			finish = append(finish, s.OnRunFinish)
		}
	}

	out.OnStepEnter = fanOut(enter)
	out.OnStepLeave = fanOut(leave)
	out.OnStepError = fanOut(fail)
	out.OnRoute = fanOut(route)
	out.OnRunFinish = fanOut(finish)
	return out
}

func fanOut[E any](fns []func(context.Context, E)) func(context.Context, E) {
	switch len(fns) {
	case 0:
		return nil
	case 1:
		return fns[0]
	}
	return func(ctx context.Context, e E) {
		for _, fn := range fns {
			fn(ctx, e)
		}
	}
}
