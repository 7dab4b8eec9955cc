package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRollback_RunsNewestFirst(t *testing.T) {
	var order []string
	rb := newRollback(zap.NewNop(), nil)
	for _, step := range []string{"a", "b", "c"} {
		rb.add(step, func(context.Context) error {
			order = append(order, step)
			return nil
		})
	}

	cause := infraError("boom", errInjected)
	err := rb.run(context.Background(), cause)
	assert.Same(t, cause, err)
	assert.Equal(t, []string{"c", "b", "a"}, order)
}

func TestRollback_AggregatesUndoFailures(t *testing.T) {
	first := errors.New("first undo")
	second := errors.New("second undo")
	var observed []string

	rb := newRollback(zap.NewNop(), func(step string, err error) {
		if err != nil {
			observed = append(observed, step)
		}
	})
	rb.add("one", func(context.Context) error { return first })
	rb.add("two", func(context.Context) error { return nil })
	rb.add("three", func(context.Context) error { return second })

	err := rb.run(context.Background(), validationError("bad input"))
	require.Error(t, err)

	assert.Equal(t, KindValidation, KindOf(err), "kind of the cause is kept")
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Contains(t, err.Error(), "undo three")
	assert.Equal(t, []string{"three", "one"}, observed)
}

func TestRollback_ForeignCause(t *testing.T) {
	undoErr := errors.New("undo failed")
	rb := newRollback(zap.NewNop(), nil)
	rb.add("x", func(context.Context) error { return undoErr })

	err := rb.run(context.Background(), errInjected)
	assert.ErrorIs(t, err, errInjected)
	assert.ErrorIs(t, err, undoErr)
	assert.Equal(t, KindInfrastructure, KindOf(err))
}

func TestRollback_RunTwiceIsNoop(t *testing.T) {
	calls := 0
	rb := newRollback(zap.NewNop(), nil)
	rb.add("x", func(context.Context) error { calls++; return nil })

	_ = rb.run(context.Background(), errInjected)
	_ = rb.run(context.Background(), errInjected)
	assert.Equal(t, 1, calls)
}
