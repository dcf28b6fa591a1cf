// Package runtime is the boundary to the engine that actually updates a
// model. Callers only see the Runtime capability set; Local is the in-process
// implementation and tests substitute scripted stubs.
package runtime

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ondevice-update/internal/feature"
	"ondevice-update/internal/model"
	"ondevice-update/internal/tensor"
)

// ErrTrainingFailed is the error carried by a failed task's final context.
var ErrTrainingFailed = errors.New("runtime: training failed")

// EventKind identifies a progress notification.
type EventKind int

const (
	EventTrainingBegin EventKind = iota + 1
	EventMiniBatchEnd
	EventEpochEnd
	EventTrainingCompleted
)

func (e EventKind) String() string {
	switch e {
	case EventTrainingBegin:
		return "training_begin"
	case EventMiniBatchEnd:
		return "mini_batch_end"
	case EventEpochEnd:
		return "epoch_end"
	case EventTrainingCompleted:
		return "training_completed"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// MetricKey names a value in an update context's metric map.
type MetricKey string

const (
	MetricLoss           MetricKey = "loss"
	MetricEpochIndex     MetricKey = "epoch_index"
	MetricMiniBatchIndex MetricKey = "mini_batch_index"
)

// TaskState is the lifecycle state of a training task.
type TaskState int

const (
	TaskRunning TaskState = iota + 1
	TaskCompleted
	TaskFailed
)

func (s TaskState) String() string {
	switch s {
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Model is an opaque handle to a loaded or updated model.
type Model interface {
	Description() model.Description
}

// UpdateContext is what a runtime hands the progress callback. Metrics are
// untyped at this boundary; see the progress package for typed decoding.
type UpdateContext struct {
	TaskID  uuid.UUID
	Event   EventKind
	Metrics map[MetricKey]any
	// Model is the run's own model, reflecting all updates so far.
	Model Model
	State TaskState
	Err   error
}

// ProgressFunc receives every update context of a run, in order, ending with
// exactly one EventTrainingCompleted.
type ProgressFunc func(UpdateContext)

// Runtime is the capability set of a model-update engine.
type Runtime interface {
	LoadModel(path string) (Model, error)
	// StartTraining validates the request and returns immediately; the fit
	// loop runs elsewhere and reports through onProgress.
	StartTraining(m Model, batch feature.Batch, onProgress ProgressFunc) (*Task, error)
	Predict(m Model, input tensor.Tensor) (tensor.Tensor, error)
}
