package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// compensation undoes one committed workflow step
type compensation struct {
	step string
	undo func(ctx context.Context) error
}

// rollback is the list of compensations recorded by a workflow.
// On failure they run newest first; a failing undo does not stop the rest.
type rollback struct {
	steps   []compensation
	logger  *zap.Logger
	observe func(step string, err error)
}

func newRollback(logger *zap.Logger, observe func(step string, err error)) *rollback {
	if observe == nil {
		observe = func(string, error) {}
	}
	return &rollback{logger: logger, observe: observe}
}

// add records the undo for a step that has just been committed
func (r *rollback) add(step string, undo func(ctx context.Context) error) {
	r.steps = append(r.steps, compensation{step: step, undo: undo})
}

// run unwinds every recorded step and returns cause, extended with any undo
// failures. The kind of cause is kept.
func (r *rollback) run(ctx context.Context, cause error) error {
	var undoErrs *multierror.Error
	for i := len(r.steps) - 1; i >= 0; i-- {
		c := r.steps[i]
		err := c.undo(ctx)
		r.observe(c.step, err)
		if err != nil {
			r.logger.Error("rollback step failed", zap.String("step", c.step), zap.Error(err))
			undoErrs = multierror.Append(undoErrs, fmt.Errorf("undo %s: %w", c.step, err))
			continue
		}
		r.logger.Debug("rollback step done", zap.String("step", c.step))
	}
	r.steps = nil

	if undoErrs == nil {
		return cause
	}

	var svcErr *Error
	if errors.As(cause, &svcErr) {
		combined := *svcErr
		combined.Err = multierror.Append(svcErr.Err, undoErrs.Errors...)
		return &combined
	}
	return multierror.Append(cause, undoErrs.Errors...)
}
