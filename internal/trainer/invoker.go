package trainer

import (
	"log/slog"

	"ondevice-update/internal/fault"
	"ondevice-update/internal/feature"
	"ondevice-update/internal/runtime"
)

// Invoker hands a training request to a runtime. It never retries: a failed
// load or a rejected request ends that run.
type Invoker struct {
	Runtime runtime.Runtime
	Logger  *slog.Logger
}

func (iv Invoker) logger() *slog.Logger {
	if iv.Logger == nil {
		return slog.Default()
	}
	return iv.Logger
}

// Invoke loads the model at modelPath and starts training it on batch. It
// returns as soon as the runtime accepts the request.
func (iv Invoker) Invoke(modelPath string, batch feature.Batch, onProgress runtime.ProgressFunc) (*runtime.Task, error) {
	m, err := iv.Load(modelPath)
	if err != nil {
		return nil, err
	}
	return iv.Start(modelPath, m, batch, onProgress)
}

// Load opens the model artifact at modelPath.
func (iv Invoker) Load(modelPath string) (runtime.Model, error) {
	m, err := iv.Runtime.LoadModel(modelPath)
	if err != nil {
		err = fault.WithPath("load model", fault.KindModelLoad, modelPath, err)
		iv.logger().Error("cannot load model", "error", err)
		return nil, err
	}
	return m, nil
}

// Start begins training an already loaded model. modelPath only labels
// errors.
func (iv Invoker) Start(modelPath string, m runtime.Model, batch feature.Batch, onProgress runtime.ProgressFunc) (*runtime.Task, error) {
	task, err := iv.Runtime.StartTraining(m, batch, onProgress)
	if err != nil {
		err = fault.WithPath("start training", fault.KindTrainingConstruction, modelPath, err)
		iv.logger().Error("cannot create training task", "error", err)
		return nil, err
	}

	iv.logger().Info("training task created", "task", task.ID(), "model", m.Description().Name, "records", batch.Len())
	return task, nil
}
