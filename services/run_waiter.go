package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// ErrRunTimedOut is returned when a run is still pending after the wait budget.
var ErrRunTimedOut = errors.New("run did not finish within the wait budget")

const cancelTimeout = 5 * time.Second

// IsRunPending reports whether the provider is still working on the run.
func IsRunPending(status openai.RunStatus) bool {
	switch status {
	case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
		return true
	}
	return false
}

// RunWaiter polls a run at a fixed interval until it leaves the pending
// states or the wait budget runs out.
type RunWaiter struct {
	api      AssistantAPI
	interval time.Duration
	maxWait  time.Duration
}

func NewRunWaiter(api AssistantAPI, interval, maxWait time.Duration) *RunWaiter {
	return &RunWaiter{api: api, interval: interval, maxWait: maxWait}
}

// Wait returns the first non-pending state of run. The wait budget bounds the
// whole phase, including a RetrieveRun call still in flight. When the budget is
// spent it asks the provider to cancel the run and returns ErrRunTimedOut
// together with the last state it saw. Each call gets a fresh budget.
func (w *RunWaiter) Wait(ctx context.Context, threadID string, run openai.Run) (openai.Run, error) {
	start := time.Now()
	phaseCtx, cancel := context.WithTimeout(ctx, w.maxWait)
	defer cancel()

	for IsRunPending(run.Status) {
		select {
		case <-phaseCtx.Done():
			return run, w.timedOut(ctx, threadID, run, start)
		case <-time.After(w.interval):
		}

		next, err := w.api.RetrieveRun(phaseCtx, threadID, run.ID)
		if err != nil {
			if phaseCtx.Err() != nil {
				return run, w.timedOut(ctx, threadID, run, start)
			}
			return run, fmt.Errorf("failed to retrieve run %s: %w", run.ID, err)
		}
		run = next
		log.Debug().Str("thread_id", threadID).Str("run_id", run.ID).Str("status", string(run.Status)).Msg("Run status")
	}

	return run, nil
}

// timedOut reports why the phase ended: the caller's context, or the budget.
func (w *RunWaiter) timedOut(ctx context.Context, threadID string, run openai.Run, start time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Warn().Str("thread_id", threadID).Str("run_id", run.ID).Dur("waited", time.Since(start)).Msg("Run timed out")
	w.cancel(ctx, threadID, run.ID)
	return ErrRunTimedOut
}

// cancel is best effort: the run may already have finished or failed.
func (w *RunWaiter) cancel(ctx context.Context, threadID, runID string) {
	cancelCtx, done := context.WithTimeout(ctx, cancelTimeout)
	defer done()
	if _, err := w.api.CancelRun(cancelCtx, threadID, runID); err != nil {
		log.Debug().Err(err).Str("thread_id", threadID).Str("run_id", runID).Msg("Cancel after timeout failed")
	}
}
