package progress

import (
	"log/slog"

	"github.com/google/uuid"

	"ondevice-update/internal/runtime"
)

// Validation holds the results of a held-out evaluation pass.
type Validation struct {
	Loss     float64
	Accuracy float64
}

// EpochSummary is reported once per finished epoch.
type EpochSummary struct {
	TaskID    uuid.UUID
	Epoch     int
	TrainLoss float64
	// Validation is nil when no evaluation ran or it failed.
	Validation *Validation
}

// Completion is reported once when the run ends.
type Completion struct {
	TaskID uuid.UUID
	State  runtime.TaskState
	Loss   float64
	Err    error
	Model  runtime.Model
}

// Interpreter logs progress and forwards epoch and completion results.
// Handle is a runtime.ProgressFunc.
type Interpreter struct {
	Logger *slog.Logger
	// Evaluate, if non-nil, runs against the model at every epoch end.
	Evaluate   func(m runtime.Model) (Validation, error)
	OnEpoch    func(EpochSummary)
	OnComplete func(Completion)
}

func (in *Interpreter) Handle(uc runtime.UpdateContext) {
	logger := in.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("task", uc.TaskID)

	ev, err := Decode(uc)
	if err != nil {
		logger.Error("cannot decode progress event", "event", uc.Event, "error", err)
		if ev == nil {
			return
		}
	}

	switch ev := ev.(type) {
	case TrainingBegin:
		logger.Info("training began")

	case MiniBatchEnd:
		logger.Info("mini-batch finished", "batch", ev.Index, "loss", ev.Loss)

	case EpochEnd:
		summary := EpochSummary{TaskID: uc.TaskID, Epoch: ev.Epoch, TrainLoss: ev.Loss}
		if in.Evaluate != nil && ev.Model != nil {
			val, err := in.Evaluate(ev.Model)
			if err != nil {
				logger.Warn("validation pass failed", "epoch", ev.Epoch, "error", err)
			} else {
				summary.Validation = &val
			}
		}
		attrs := []any{"epoch", ev.Epoch, "loss", ev.Loss}
		if summary.Validation != nil {
			attrs = append(attrs, "val_loss", summary.Validation.Loss, "val_accuracy", summary.Validation.Accuracy)
		}
		logger.Info("epoch finished", attrs...)
		if in.OnEpoch != nil {
			in.OnEpoch(summary)
		}

	case TrainingCompleted:
		logger.Info("training completed", "state", ev.State)
		done := Completion{TaskID: uc.TaskID, State: ev.State, Loss: ev.Loss, Err: ev.Err, Model: ev.Model}
		if ev.State != runtime.TaskCompleted {
			logger.Error("training failed", "error", ev.Err)
		} else {
			logger.Info("final loss", "loss", ev.Loss)
		}
		if in.OnComplete != nil {
			in.OnComplete(done)
		}

	default:
		logger.Warn("unrecognized progress event", "event", ev.Kind())
	}
}
