package runtime

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"ondevice-update/internal/feature"
	"ondevice-update/internal/metrics"
	"ondevice-update/internal/model"
	"ondevice-update/internal/tensor"
)

// Local runs model updates in-process on model artifacts written by
// model.Save.
type Local struct {
	logger *slog.Logger
}

// NewLocal returns a Local runtime.
func NewLocal(logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{logger: logger}
}

type localModel struct {
	path string
	desc model.Description
	clf  *model.Classifier
}

func (m *localModel) Description() model.Description { return m.desc }

// LoadModel reads the artifact at path.
func (l *Local) LoadModel(path string) (Model, error) {
	a, err := model.Load(path)
	if err != nil {
		return nil, err
	}
	clf, err := a.Classifier()
	if err != nil {
		return nil, err
	}
	l.logger.Debug("model loaded", "path", path, "model", a.Description.Name)
	return &localModel{path: path, desc: a.Description, clf: clf}, nil
}

// StartTraining converts batch into class-indexed inputs and starts the fit
// loop on a clone of m. The loaded model itself is never modified.
func (l *Local) StartTraining(m Model, batch feature.Batch, onProgress ProgressFunc) (*Task, error) {
	lm, err := asLocal(m)
	if err != nil {
		return nil, err
	}
	data, err := trainingData(lm.desc, batch)
	if err != nil {
		return nil, err
	}
	if onProgress == nil {
		onProgress = func(UpdateContext) {}
	}

	run := &localModel{path: lm.path, desc: lm.desc, clf: lm.clf.Clone()}
	task := NewTask()
	l.logger.Debug("training task created", "task", task.ID(), "model", lm.desc.Name, "records", batch.Len())

	go l.fit(task, run, data, onProgress)
	return task, nil
}

func (l *Local) fit(task *Task, run *localModel, data model.Batch, onProgress ProgressFunc) {
	params := run.desc.Update
	size := params.MiniBatchSize
	if size <= 0 || size > len(data.Inputs) {
		size = len(data.Inputs)
	}

	task.Emit(onProgress, UpdateContext{Event: EventTrainingBegin, Model: run})

	var window metrics.Window
	var epochLoss float64
	for epoch := 0; epoch < params.Epochs; epoch++ {
		for idx, start := 0, 0; start < len(data.Inputs); idx, start = idx+1, start+size {
			end := min(start+size, len(data.Inputs))
			mb := model.Batch{Inputs: data.Inputs[start:end], Labels: data.Labels[start:end]}

			began := time.Now()
			loss := run.clf.TrainStep(mb)
			window.Record(end-start, time.Since(began), loss)

			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				task.Complete(onProgress, UpdateContext{
					Model: run,
					State: TaskFailed,
					Err:   fmt.Errorf("%w: non-finite loss at epoch %d mini-batch %d", ErrTrainingFailed, epoch, idx),
				})
				return
			}

			task.Emit(onProgress, UpdateContext{
				Event:   EventMiniBatchEnd,
				Metrics: map[MetricKey]any{MetricMiniBatchIndex: idx, MetricLoss: loss},
				Model:   run,
			})
		}

		snap := window.Snapshot()
		epochLoss = snap.AvgLoss
		l.logger.Debug("epoch finished", "task", task.ID(), "epoch", epoch,
			"loss", snap.AvgLoss, "samples_per_sec", snap.SamplesPerSec)

		task.Emit(onProgress, UpdateContext{
			Event:   EventEpochEnd,
			Metrics: map[MetricKey]any{MetricEpochIndex: epoch, MetricLoss: epochLoss},
			Model:   run,
		})
	}

	task.Complete(onProgress, UpdateContext{
		Metrics: map[MetricKey]any{MetricLoss: epochLoss},
		Model:   run,
	})
}

// Predict returns the class scores for input.
func (l *Local) Predict(m Model, input tensor.Tensor) (tensor.Tensor, error) {
	lm, err := asLocal(m)
	if err != nil {
		return tensor.Tensor{}, err
	}
	in := lm.desc.Input()
	if err := in.Validate(feature.TensorValue(input)); err != nil {
		return tensor.Tensor{}, err
	}
	scores, err := lm.clf.Scores(input.Float64s())
	if err != nil {
		return tensor.Tensor{}, err
	}
	out := lm.desc.Output()
	return tensor.FromFloat64s(out.Shape, out.DType, scores)
}

func asLocal(m Model) (*localModel, error) {
	lm, ok := m.(*localModel)
	if !ok || lm == nil {
		return nil, errors.New("runtime: model was not loaded by this runtime")
	}
	return lm, nil
}

func trainingData(desc model.Description, batch feature.Batch) (model.Batch, error) {
	if batch.Len() == 0 {
		return model.Batch{}, errors.New("runtime: training batch is empty")
	}
	target, ok := desc.Target()
	if !ok {
		return model.Batch{}, fmt.Errorf("runtime: model %s has no training target", desc.Name)
	}
	input := desc.Input()

	data := model.Batch{
		Inputs: make([][]float64, 0, batch.Len()),
		Labels: make([]int, 0, batch.Len()),
	}
	for i := 0; i < batch.Len(); i++ {
		p := batch.At(i)
		for _, ti := range desc.TrainingInputs {
			v, ok := p.Value(ti.Name)
			if !ok {
				return model.Batch{}, fmt.Errorf("runtime: record %d: missing feature %q", i, ti.Name)
			}
			if err := ti.Validate(v); err != nil {
				return model.Batch{}, fmt.Errorf("runtime: record %d: %w", i, err)
			}
		}
		in, _ := p.Value(input.Name)
		t, _ := in.AsTensor()
		label, _ := p.Value(target.Name)
		class, err := desc.ClassIndex(label)
		if err != nil {
			return model.Batch{}, fmt.Errorf("runtime: record %d: %w", i, err)
		}
		data.Inputs = append(data.Inputs, t.Float64s())
		data.Labels = append(data.Labels, class)
	}
	return data, nil
}
