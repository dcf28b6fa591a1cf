// Package progress turns raw runtime update contexts into typed events and
// reports them.
package progress

import (
	"errors"
	"fmt"

	"ondevice-update/internal/runtime"
)

// ErrMetric is wrapped by decode failures caused by a missing or mistyped
// metric.
var ErrMetric = errors.New("progress: bad metric")

// Event is one decoded progress notification.
type Event interface {
	Kind() runtime.EventKind
}

type TrainingBegin struct{}

type MiniBatchEnd struct {
	Index int
	Loss  float64
}

type EpochEnd struct {
	Epoch int
	Loss  float64
	Model runtime.Model
}

type TrainingCompleted struct {
	State runtime.TaskState
	// Loss is only set when State is runtime.TaskCompleted.
	Loss  float64
	Err   error
	Model runtime.Model
}

// Unknown is an event kind this package does not interpret.
type Unknown struct {
	Event runtime.EventKind
}

func (TrainingBegin) Kind() runtime.EventKind     { return runtime.EventTrainingBegin }
func (MiniBatchEnd) Kind() runtime.EventKind      { return runtime.EventMiniBatchEnd }
func (EpochEnd) Kind() runtime.EventKind          { return runtime.EventEpochEnd }
func (TrainingCompleted) Kind() runtime.EventKind { return runtime.EventTrainingCompleted }
func (u Unknown) Kind() runtime.EventKind         { return u.Event }

// Decode reads the metrics each event kind carries. Indices accept any Go
// integer type and losses accept float32 or float64; anything else is an
// error rather than a crash. A completion is always returned, even alongside
// an error: one whose loss cannot be read is reported as failed with the
// decode error.
func Decode(uc runtime.UpdateContext) (Event, error) {
	switch uc.Event {
	case runtime.EventTrainingBegin:
		return TrainingBegin{}, nil

	case runtime.EventMiniBatchEnd:
		idx, err := intMetric(uc.Metrics, runtime.MetricMiniBatchIndex)
		if err != nil {
			return nil, err
		}
		loss, err := floatMetric(uc.Metrics, runtime.MetricLoss)
		if err != nil {
			return nil, err
		}
		return MiniBatchEnd{Index: idx, Loss: loss}, nil

	case runtime.EventEpochEnd:
		epoch, err := intMetric(uc.Metrics, runtime.MetricEpochIndex)
		if err != nil {
			return nil, err
		}
		loss, err := floatMetric(uc.Metrics, runtime.MetricLoss)
		if err != nil {
			return nil, err
		}
		return EpochEnd{Epoch: epoch, Loss: loss, Model: uc.Model}, nil

	case runtime.EventTrainingCompleted:
		ev := TrainingCompleted{State: uc.State, Err: uc.Err, Model: uc.Model}
		if uc.State != runtime.TaskCompleted {
			if ev.Err == nil {
				ev.Err = runtime.ErrTrainingFailed
			}
			return ev, nil
		}
		loss, err := floatMetric(uc.Metrics, runtime.MetricLoss)
		if err != nil {
			ev.State = runtime.TaskFailed
			ev.Err = fmt.Errorf("read final loss: %w", err)
			return ev, err
		}
		ev.Loss = loss
		return ev, nil
	}
	return Unknown{Event: uc.Event}, nil
}

func intMetric(metrics map[runtime.MetricKey]any, key runtime.MetricKey) (int, error) {
	raw, ok := metrics[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s missing", ErrMetric, key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	}
	return 0, fmt.Errorf("%w: %s is %T, want integer", ErrMetric, key, raw)
}

func floatMetric(metrics map[runtime.MetricKey]any, key runtime.MetricKey) (float64, error) {
	raw, ok := metrics[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s missing", ErrMetric, key)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	}
	return 0, fmt.Errorf("%w: %s is %T, want float", ErrMetric, key, raw)
}
