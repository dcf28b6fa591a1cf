// Package predict runs inference on a model and reduces class scores to a
// single class.
package predict

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"

	"ondevice-update/internal/fault"
	"ondevice-update/internal/feature"
	"ondevice-update/internal/progress"
	"ondevice-update/internal/runtime"
	"ondevice-update/internal/tensor"
)

// ErrEmptyOutput is the panic value of Argmax on an empty tensor. Output
// shapes are fixed by the model, so this is a programming error.
var ErrEmptyOutput = errors.New("predict: empty output")

// Argmax returns the index of the largest element; ties go to the lowest
// index.
func Argmax(t tensor.Tensor) int {
	if t.Len() == 0 {
		panic(ErrEmptyOutput)
	}
	return floats.MaxIdx(t.Float64s())
}

// Prediction is the result of one inference call.
type Prediction struct {
	Class  int
	Label  string
	Scores tensor.Tensor
}

// Predictor runs inference through a runtime.
type Predictor struct {
	Runtime runtime.Runtime
	Logger  *slog.Logger
}

func (p Predictor) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// Predict scores input with m and picks the arg-max class.
func (p Predictor) Predict(m runtime.Model, input tensor.Tensor) (Prediction, error) {
	desc := m.Description()
	scores, err := p.Runtime.Predict(m, input)
	if err != nil {
		err = fault.New("predict", fault.KindPrediction, err)
		p.logger().Error("prediction failed", "model", desc.Name, "error", err)
		return Prediction{}, err
	}
	class := Argmax(scores)
	pred := Prediction{Class: class, Scores: scores}
	if class < len(desc.ClassLabels) {
		pred.Label = desc.ClassLabels[class]
	}
	return pred, nil
}

// Evaluate computes mean cross-entropy and accuracy of m over a labeled
// batch.
func (p Predictor) Evaluate(m runtime.Model, batch feature.Batch) (progress.Validation, error) {
	if batch.Len() == 0 {
		return progress.Validation{}, errors.New("predict: evaluation batch is empty")
	}
	desc := m.Description()
	target, ok := desc.Target()
	if !ok {
		return progress.Validation{}, fmt.Errorf("predict: model %s has no training target", desc.Name)
	}

	var totalLoss float64
	var correct int
	for i := 0; i < batch.Len(); i++ {
		rec := batch.At(i)
		in, ok := rec.Value(desc.Input().Name)
		if !ok {
			return progress.Validation{}, fmt.Errorf("predict: record %d: missing %q", i, desc.Input().Name)
		}
		input, ok := in.AsTensor()
		if !ok {
			return progress.Validation{}, fmt.Errorf("predict: record %d: %q is not a tensor", i, desc.Input().Name)
		}
		label, ok := rec.Value(target.Name)
		if !ok {
			return progress.Validation{}, fmt.Errorf("predict: record %d: missing %q", i, target.Name)
		}
		class, err := desc.ClassIndex(label)
		if err != nil {
			return progress.Validation{}, fmt.Errorf("predict: record %d: %w", i, err)
		}

		pred, err := p.Predict(m, input)
		if err != nil {
			return progress.Validation{}, err
		}
		scores := pred.Scores.Float64s()
		totalLoss += floats.LogSumExp(scores) - scores[class]
		if pred.Class == class {
			correct++
		}
	}

	n := float64(batch.Len())
	return progress.Validation{Loss: totalLoss / n, Accuracy: float64(correct) / n}, nil
}
