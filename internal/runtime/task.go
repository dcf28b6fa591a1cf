package runtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Task tracks one training run started by a Runtime.
type Task struct {
	id   uuid.UUID
	done chan struct{}
	once sync.Once

	mu    sync.Mutex
	state TaskState
	final UpdateContext
}

// NewTask returns a running task with a fresh time-ordered ID.
func NewTask() *Task {
	return &Task{
		id:    uuid.Must(uuid.NewV7()),
		done:  make(chan struct{}),
		state: TaskRunning,
	}
}

func (t *Task) ID() uuid.UUID { return t.id }

func (t *Task) State() TaskState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Done is closed once the completion context has been delivered.
func (t *Task) Done() <-chan struct{} { return t.done }

// Emit stamps uc with the task's ID and running state and delivers it.
func (t *Task) Emit(onProgress ProgressFunc, uc UpdateContext) {
	uc.TaskID = t.id
	if uc.State == 0 {
		uc.State = TaskRunning
	}
	onProgress(uc)
}

// Complete records the terminal state, delivers the completion context and
// releases waiters. Only the first call has any effect.
func (t *Task) Complete(onProgress ProgressFunc, final UpdateContext) {
	t.once.Do(func() {
		final.TaskID = t.id
		final.Event = EventTrainingCompleted
		if final.State != TaskFailed {
			final.State = TaskCompleted
		}

		t.mu.Lock()
		t.state = final.State
		t.final = final
		t.mu.Unlock()

		onProgress(final)
		close(t.done)
	})
}

// Wait blocks until the task completes or ctx is done. The context only
// bounds the wait; it does not stop training.
func (t *Task) Wait(ctx context.Context) (UpdateContext, error) {
	select {
	case <-ctx.Done():
		return UpdateContext{}, ctx.Err()
	case <-t.done:
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.final, t.final.Err
}
