package trainer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ondevice-update/internal/dataset"
	"ondevice-update/internal/fault"
	"ondevice-update/internal/feature"
	"ondevice-update/internal/model"
	"ondevice-update/internal/runtime"
	"ondevice-update/internal/tensor"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunEndToEndWithStub(t *testing.T) {
	rt := &scriptedRuntime{
		script: []runtime.UpdateContext{
			{Event: runtime.EventTrainingBegin},
			{Event: runtime.EventEpochEnd, Metrics: map[runtime.MetricKey]any{
				runtime.MetricEpochIndex: 0, runtime.MetricLoss: 1.2,
			}},
		},
		final: runtime.UpdateContext{Metrics: map[runtime.MetricKey]any{runtime.MetricLoss: 1.2}},
	}

	var logs bytes.Buffer
	res, err := Run(testContext(t), rt, RunConfig{
		ModelPath:  "stub.json",
		Samples:    1,
		Range:      dataset.Range{Min: 0, Max: 5},
		NumWorkers: 1,
	}, slog.New(slog.NewTextHandler(&logs, nil)))
	require.NoError(t, err)

	assert.Equal(t, 1, rt.loads)
	require.Len(t, rt.batches, 1)
	batch := rt.batches[0]
	require.Equal(t, 1, batch.Len())
	in, ok := batch.At(0).Value("recording")
	require.True(t, ok)
	input, _ := in.AsTensor()
	assert.Equal(t, []int{1, 162, 1}, input.Shape())
	label, _ := batch.At(0).Value("emotion")
	assert.Equal(t, feature.KindString, label.Kind())

	out := logs.String()
	assert.Equal(t, 1, strings.Count(out, `msg="epoch finished"`))
	assert.Equal(t, 1, strings.Count(out, `msg="final loss"`))
	assert.Contains(t, out, `msg="final loss" task=`+res.TaskID.String()+` loss=1.2`)

	require.Len(t, res.Epochs, 1)
	assert.Equal(t, 1.2, res.Epochs[0].TrainLoss)
	assert.Equal(t, runtime.TaskCompleted, res.Completion.State)
	assert.Equal(t, 1.2, res.Completion.Loss)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 0, res.Dropped)
}

func TestRunDoesNotPersistRetrainedModel(t *testing.T) {
	dir := t.TempDir()
	rt := &scriptedRuntime{
		script: []runtime.UpdateContext{{Event: runtime.EventTrainingBegin}},
		final:  runtime.UpdateContext{Metrics: map[runtime.MetricKey]any{runtime.MetricLoss: 0.3}},
	}
	var logs bytes.Buffer
	handler := slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})
	res, err := Run(testContext(t), rt, RunConfig{
		ModelPath:  filepath.Join(dir, "stub.json"),
		Samples:    2,
		Range:      dataset.Range{Min: 0, Max: 5},
		NumWorkers: 1,
	}, slog.New(handler))
	require.NoError(t, err)

	assert.Contains(t, logs.String(), `msg="retrained model not persisted" task=`+res.TaskID.String())
	assert.NoFileExists(t, filepath.Join(dir, "stub.json"))
}

func TestRunUnreadableFinalLossFails(t *testing.T) {
	rt := &scriptedRuntime{
		script: []runtime.UpdateContext{{Event: runtime.EventTrainingBegin}},
		final:  runtime.UpdateContext{Metrics: map[runtime.MetricKey]any{runtime.MetricLoss: "1.2"}},
	}
	var logs bytes.Buffer
	res, err := Run(testContext(t), rt, RunConfig{
		ModelPath:  "stub.json",
		Samples:    1,
		Range:      dataset.Range{Min: 0, Max: 5},
		NumWorkers: 1,
	}, slog.New(slog.NewTextHandler(&logs, nil)))

	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindTrainingRuntime))
	assert.Equal(t, runtime.TaskFailed, res.Completion.State)
	assert.Equal(t, 1, rt.loads)
	out := logs.String()
	assert.Contains(t, out, "cannot decode progress event")
	assert.Contains(t, out, `msg="training failed"`)
	assert.NotContains(t, out, `msg="final loss"`)
}

func TestHeldOutSeed(t *testing.T) {
	assert.Zero(t, heldOutSeed(0))
	for _, seed := range []int64{1, 7, -1, -2, math.MaxInt64, math.MinInt64} {
		got := heldOutSeed(seed)
		assert.NotZero(t, got, "seed %d", seed)
		assert.NotEqual(t, seed, got, "seed %d", seed)
	}
}

func TestRunReportsRuntimeFailure(t *testing.T) {
	rt := &scriptedRuntime{
		script: []runtime.UpdateContext{{Event: runtime.EventTrainingBegin}},
		final:  runtime.UpdateContext{State: runtime.TaskFailed, Err: errors.New("diverged")},
	}
	var logs bytes.Buffer
	res, err := Run(testContext(t), rt, RunConfig{
		ModelPath: "stub.json",
		Samples:   2,
		Range:     dataset.Range{Min: 0, Max: 5},
	}, slog.New(slog.NewTextHandler(&logs, nil)))

	assert.True(t, fault.IsKind(err, fault.KindTrainingRuntime))
	assert.ErrorContains(t, err, "diverged")
	assert.Equal(t, runtime.TaskFailed, res.Completion.State)
	assert.Contains(t, logs.String(), `msg="training failed"`)
	assert.Equal(t, 1, rt.starts)
}

func TestRunModelLoadFailure(t *testing.T) {
	rt := &scriptedRuntime{loadErr: errRejected}
	_, err := Run(testContext(t), rt, RunConfig{ModelPath: "x.json", Samples: 1, Range: dataset.Range{Max: 1}}, nil)
	assert.True(t, fault.IsKind(err, fault.KindModelLoad))
	assert.Equal(t, 0, rt.starts)
}

func TestRunWithLocalRuntime(t *testing.T) {
	dir := t.TempDir()
	for _, name := range model.BuiltinNames() {
		a, err := model.Builtin(name, 1)
		require.NoError(t, err)
		require.NoError(t, model.Save(filepath.Join(dir, name+".json"), a))
	}

	t.Run("emotion", func(t *testing.T) {
		res, err := Run(testContext(t), runtime.NewLocal(nil), RunConfig{
			ModelPath:         filepath.Join(dir, "emotion.json"),
			Samples:           1,
			ValidationSamples: 4,
			Range:             dataset.Range{Min: 0, Max: 5},
			Seed:              3,
			NumWorkers:        1,
			Evaluate:          true,
		}, nil)
		require.NoError(t, err)
		require.Len(t, res.Epochs, 1)
		require.NotNil(t, res.Epochs[0].Validation)
		acc := res.Epochs[0].Validation.Accuracy
		assert.True(t, acc >= 0 && acc <= 1)
		assert.Equal(t, runtime.TaskCompleted, res.Completion.State)
		assert.Equal(t, "emotion", res.Model)
	})

	t.Run("digits", func(t *testing.T) {
		res, err := Run(testContext(t), runtime.NewLocal(nil), RunConfig{
			ModelPath:  filepath.Join(dir, "digits.json"),
			Samples:    5,
			Range:      dataset.Range{Min: 0, Max: 1},
			Seed:       3,
			NumWorkers: 2,
		}, nil)
		require.NoError(t, err)
		assert.Len(t, res.Epochs, 3)
		assert.Nil(t, res.Epochs[0].Validation)
		assert.Equal(t, 5, res.Records)
		assert.Equal(t, res.Epochs[2].TrainLoss, res.Completion.Loss)
	})
}

func TestExampleSpecFor(t *testing.T) {
	spec, err := ExampleSpecFor(stubModel{}.Description(), dataset.Range{Min: 0, Max: 5})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 162, 1}, spec.Shape)
	assert.Equal(t, tensor.Float32, spec.DType)
	assert.Equal(t, model.Emotions, spec.Labels.Tags)

	a, err := model.Builtin("digits", 1)
	require.NoError(t, err)
	spec, err = ExampleSpecFor(a.Description, dataset.Range{Min: 0, Max: 1})
	require.NoError(t, err)
	assert.Equal(t, 10, spec.Labels.Classes)

	_, err = ExampleSpecFor(model.Description{Name: "empty"}, dataset.Range{Max: 1})
	assert.Error(t, err)
}
