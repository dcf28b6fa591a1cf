package predict

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ondevice-update/internal/fault"
	"ondevice-update/internal/feature"
	"ondevice-update/internal/model"
	"ondevice-update/internal/runtime"
	"ondevice-update/internal/tensor"
)

func vec(t *testing.T, values ...float64) tensor.Tensor {
	t.Helper()
	v, err := tensor.FromFloat64s([]int{len(values)}, tensor.Float64, values)
	require.NoError(t, err)
	return v
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, 1, Argmax(vec(t, 0.1, 0.9, 0.3)))
	assert.Equal(t, 0, Argmax(vec(t, 0.5, 0.5, 0.2)))
	assert.Equal(t, 2, Argmax(vec(t, -3, -2, -1)))
}

func TestArgmaxEmptyPanics(t *testing.T) {
	empty, err := tensor.New([]int{0}, tensor.Float32)
	require.NoError(t, err)
	assert.PanicsWithValue(t, ErrEmptyOutput, func() { Argmax(empty) })
}

// fixedRuntime answers every prediction with the same scores.
type fixedRuntime struct {
	scores tensor.Tensor
	err    error
}

func (f fixedRuntime) LoadModel(string) (runtime.Model, error) { return nil, errors.New("unused") }

func (f fixedRuntime) StartTraining(runtime.Model, feature.Batch, runtime.ProgressFunc) (*runtime.Task, error) {
	return nil, errors.New("unused")
}

func (f fixedRuntime) Predict(runtime.Model, tensor.Tensor) (tensor.Tensor, error) {
	return f.scores, f.err
}

type threeClass struct{}

func (threeClass) Description() model.Description {
	return model.Description{
		Name:    "three",
		Inputs:  feature.Schema{{Name: "x", Kind: feature.KindTensor, Shape: []int{1}, DType: tensor.Float64}},
		Outputs: feature.Schema{{Name: "scores", Kind: feature.KindTensor, Shape: []int{3}, DType: tensor.Float64}},
		TrainingInputs: feature.Schema{
			{Name: "x", Kind: feature.KindTensor, Shape: []int{1}, DType: tensor.Float64},
			{Name: "y", Kind: feature.KindString},
		},
		ClassLabels: []string{"a", "b", "c"},
	}
}

func TestPredictorPredict(t *testing.T) {
	p := Predictor{Runtime: fixedRuntime{scores: vec(t, 0.1, 0.9, 0.3)}}
	pred, err := p.Predict(threeClass{}, vec(t, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, pred.Class)
	assert.Equal(t, "b", pred.Label)
}

func TestPredictorFailure(t *testing.T) {
	p := Predictor{Runtime: fixedRuntime{err: errors.New("rejected")}}
	_, err := p.Predict(threeClass{}, vec(t, 1))
	assert.True(t, fault.IsKind(err, fault.KindPrediction))
}

func TestEvaluate(t *testing.T) {
	schema := threeClass{}.Description().TrainingInputs
	var providers []feature.Provider
	for _, y := range []string{"b", "a"} {
		rec, err := feature.NewProvider(map[string]feature.Value{
			"x": feature.TensorValue(vec(t, 1)),
			"y": feature.StringValue(y),
		}, schema)
		require.NoError(t, err)
		providers = append(providers, rec)
	}

	scores := vec(t, 0, math.Log(2), 0) // softmax = [0.25, 0.5, 0.25]
	p := Predictor{Runtime: fixedRuntime{scores: scores}}
	val, err := p.Evaluate(threeClass{}, feature.NewBatch(providers...))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, val.Accuracy, 1e-12)
	assert.InDelta(t, (-math.Log(0.5)-math.Log(0.25))/2, val.Loss, 1e-9)

	_, err = p.Evaluate(threeClass{}, feature.NewBatch())
	assert.Error(t, err)
}
