package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskCompleteOnce(t *testing.T) {
	task := NewTask()
	assert.Equal(t, TaskRunning, task.State())

	var got []UpdateContext
	record := func(uc UpdateContext) { got = append(got, uc) }

	failure := errors.New("boom")
	task.Complete(record, UpdateContext{State: TaskFailed, Err: failure})
	task.Complete(record, UpdateContext{})

	require.Len(t, got, 1)
	assert.Equal(t, EventTrainingCompleted, got[0].Event)
	assert.Equal(t, TaskFailed, task.State())

	final, err := task.Wait(context.Background())
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, task.ID(), final.TaskID)
}

func TestTaskWaitHonorsContext(t *testing.T) {
	task := NewTask()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := task.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, TaskRunning, task.State())
}

func TestTaskIDsUnique(t *testing.T) {
	assert.NotEqual(t, NewTask().ID(), NewTask().ID())
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "epoch_end", EventEpochEnd.String())
	assert.Equal(t, "event(42)", EventKind(42).String())
	assert.Equal(t, "completed", TaskCompleted.String())
}
