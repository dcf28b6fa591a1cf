// Package model defines model descriptions, the on-disk artifact format and
// the linear classifier the local runtime updates.
package model

import (
	"errors"
	"fmt"

	"ondevice-update/internal/feature"
)

// UpdateParams are the training parameters baked into an updatable model.
type UpdateParams struct {
	Epochs        int     `json:"epochs"`
	MiniBatchSize int     `json:"mini_batch_size"`
	LearningRate  float64 `json:"learning_rate"`
}

// Description is the interface of a model: what it predicts from and what it
// trains on.
type Description struct {
	Name           string         `json:"name"`
	Inputs         feature.Schema `json:"inputs"`
	Outputs        feature.Schema `json:"outputs"`
	TrainingInputs feature.Schema `json:"training_inputs"`
	ClassLabels    []string       `json:"class_labels"`
	Update         UpdateParams   `json:"update"`
}

// Validate checks the description is usable for prediction and update.
func (d Description) Validate() error {
	if d.Name == "" {
		return errors.New("model: name is required")
	}
	if len(d.Inputs) != 1 || d.Inputs[0].Kind != feature.KindTensor {
		return fmt.Errorf("model %s: exactly one tensor input is required", d.Name)
	}
	if len(d.Outputs) != 1 || d.Outputs[0].Kind != feature.KindTensor {
		return fmt.Errorf("model %s: exactly one tensor output is required", d.Name)
	}
	if len(d.ClassLabels) == 0 {
		return fmt.Errorf("model %s: class labels are required", d.Name)
	}
	if n := elements(d.Outputs[0].Shape); n != len(d.ClassLabels) {
		return fmt.Errorf("model %s: output %s has %d elements for %d classes", d.Name, d.Outputs[0].Name, n, len(d.ClassLabels))
	}
	if _, ok := d.TrainingInputs.Lookup(d.Inputs[0].Name); !ok {
		return fmt.Errorf("model %s: training inputs must include %s", d.Name, d.Inputs[0].Name)
	}
	target, ok := d.Target()
	if !ok {
		return fmt.Errorf("model %s: training inputs need a target feature", d.Name)
	}
	if target.Kind != feature.KindInt64 && target.Kind != feature.KindString {
		return fmt.Errorf("model %s: target %s must be int64 or string", d.Name, target.Name)
	}
	if d.Update.Epochs <= 0 {
		return fmt.Errorf("model %s: epochs must be > 0", d.Name)
	}
	return nil
}

// Input returns the single prediction input.
func (d Description) Input() feature.Description {
	if len(d.Inputs) == 0 {
		return feature.Description{}
	}
	return d.Inputs[0]
}

// Output returns the single prediction output.
func (d Description) Output() feature.Description {
	if len(d.Outputs) == 0 {
		return feature.Description{}
	}
	return d.Outputs[0]
}

// Target returns the training input that is not a prediction input.
func (d Description) Target() (feature.Description, bool) {
	for _, ti := range d.TrainingInputs {
		if _, ok := d.Inputs.Lookup(ti.Name); !ok {
			return ti, true
		}
	}
	return feature.Description{}, false
}

func (d Description) NumClasses() int { return len(d.ClassLabels) }

// ClassIndex maps a target value to its class index.
func (d Description) ClassIndex(v feature.Value) (int, error) {
	if s, ok := v.AsString(); ok {
		for i, label := range d.ClassLabels {
			if label == s {
				return i, nil
			}
		}
		return 0, fmt.Errorf("model %s: unknown class label %q", d.Name, s)
	}
	if n, ok := v.AsInt64(); ok {
		if n < 0 || n >= int64(len(d.ClassLabels)) {
			return 0, fmt.Errorf("model %s: class index %d out of range [0, %d)", d.Name, n, len(d.ClassLabels))
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("model %s: target must be int64 or string, got %s", d.Name, v.Kind())
}

func elements(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
