package model

import (
	"fmt"
	"sort"

	"ondevice-update/internal/feature"
	"ondevice-update/internal/tensor"
)

// Emotions are the tags of the emotion recording classifier.
var Emotions = []string{"neutral", "calm", "happy", "sad", "angry", "fearful", "disgust", "surprised"}

// Digits are the class labels of the digit image classifier.
var Digits = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}

var builtins = map[string]Description{
	"emotion": {
		Name:    "emotion",
		Inputs:  feature.Schema{{Name: "recording", Kind: feature.KindTensor, Shape: []int{1, 162, 1}, DType: tensor.Float32}},
		Outputs: feature.Schema{{Name: "Identity", Kind: feature.KindTensor, Shape: []int{8}, DType: tensor.Float32}},
		TrainingInputs: feature.Schema{
			{Name: "recording", Kind: feature.KindTensor, Shape: []int{1, 162, 1}, DType: tensor.Float32},
			{Name: "emotion", Kind: feature.KindString},
		},
		ClassLabels: Emotions,
		Update:      UpdateParams{Epochs: 1, MiniBatchSize: 1, LearningRate: 0.01},
	},
	"digits": {
		Name:    "digits",
		Inputs:  feature.Schema{{Name: "input", Kind: feature.KindTensor, Shape: []int{1, 28, 28}, DType: tensor.Float64}},
		Outputs: feature.Schema{{Name: "prediction", Kind: feature.KindTensor, Shape: []int{10}, DType: tensor.Float64}},
		TrainingInputs: feature.Schema{
			{Name: "input", Kind: feature.KindTensor, Shape: []int{1, 28, 28}, DType: tensor.Float64},
			{Name: "prediction_true", Kind: feature.KindInt64},
		},
		ClassLabels: Digits,
		Update:      UpdateParams{Epochs: 3, MiniBatchSize: 2, LearningRate: 0.05},
	},
}

// BuiltinNames lists the demo models in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a freshly initialized artifact for a demo model.
func Builtin(name string, seed int64) (Artifact, error) {
	d, ok := builtins[name]
	if !ok {
		return Artifact{}, fmt.Errorf("model: unknown builtin %q", name)
	}
	c := NewClassifier(d.NumClasses(), elements(d.Input().Shape), d.Update.LearningRate, seed)
	return Artifact{Description: d, Weights: c.Weights()}, nil
}
