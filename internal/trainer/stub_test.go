package trainer

import (
	"errors"
	"sync"

	"ondevice-update/internal/feature"
	"ondevice-update/internal/model"
	"ondevice-update/internal/runtime"
	"ondevice-update/internal/tensor"
)

// stubModel exposes a recording input of [1,162,1] and eight class scores.
type stubModel struct{}

func (stubModel) Description() model.Description {
	in := feature.Description{Name: "recording", Kind: feature.KindTensor, Shape: []int{1, 162, 1}, DType: tensor.Float32}
	return model.Description{
		Name:           "stub",
		Inputs:         feature.Schema{in},
		Outputs:        feature.Schema{{Name: "Identity", Kind: feature.KindTensor, Shape: []int{8}, DType: tensor.Float32}},
		TrainingInputs: feature.Schema{in, {Name: "emotion", Kind: feature.KindString}},
		ClassLabels:    model.Emotions,
		Update:         model.UpdateParams{Epochs: 1},
	}
}

// scriptedRuntime replays a fixed list of update contexts from its own
// goroutine, then completes with final.
type scriptedRuntime struct {
	loadErr  error
	startErr error
	script   []runtime.UpdateContext
	final    runtime.UpdateContext

	mu      sync.Mutex
	loads   int
	starts  int
	batches []feature.Batch
}

func (s *scriptedRuntime) LoadModel(string) (runtime.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return stubModel{}, nil
}

func (s *scriptedRuntime) StartTraining(m runtime.Model, batch feature.Batch, onProgress runtime.ProgressFunc) (*runtime.Task, error) {
	s.mu.Lock()
	s.starts++
	s.batches = append(s.batches, batch)
	s.mu.Unlock()
	if s.startErr != nil {
		return nil, s.startErr
	}
	task := runtime.NewTask()
	go func() {
		for _, uc := range s.script {
			uc.Model = m
			task.Emit(onProgress, uc)
		}
		final := s.final
		final.Model = m
		task.Complete(onProgress, final)
	}()
	return task, nil
}

func (s *scriptedRuntime) Predict(runtime.Model, tensor.Tensor) (tensor.Tensor, error) {
	return tensor.FromFloat64s([]int{8}, tensor.Float32, []float64{0, 0, 1, 0, 0, 0, 0, 0})
}

var errRejected = errors.New("rejected")
