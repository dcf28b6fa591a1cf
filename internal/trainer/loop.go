package trainer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"ondevice-update/internal/dataset"
	"ondevice-update/internal/fault"
	"ondevice-update/internal/feature"
	"ondevice-update/internal/model"
	"ondevice-update/internal/predict"
	"ondevice-update/internal/progress"
	"ondevice-update/internal/runtime"
)

// RunConfig captures the knobs required by the demo run.
type RunConfig struct {
	ModelPath         string
	Samples           int
	ValidationSamples int
	Range             dataset.Range
	Seed              int64
	NumWorkers        int
	Evaluate          bool
}

// Result summarizes a finished run.
type Result struct {
	TaskID     uuid.UUID
	Model      string
	Records    int
	Dropped    int
	Epochs     []progress.EpochSummary
	Completion progress.Completion
}

// ExampleSpecFor shapes synthetic examples after a model's training inputs.
func ExampleSpecFor(desc model.Description, r dataset.Range) (dataset.ExampleSpec, error) {
	input := desc.Input()
	target, ok := desc.Target()
	if !ok {
		return dataset.ExampleSpec{}, fmt.Errorf("trainer: model %s has no training target", desc.Name)
	}
	spec := dataset.ExampleSpec{Shape: input.Shape, DType: input.DType, Range: r}
	switch target.Kind {
	case feature.KindString:
		spec.Labels = dataset.Tags(desc.ClassLabels...)
	case feature.KindInt64:
		spec.Labels = dataset.Classes(desc.NumClasses())
	default:
		return dataset.ExampleSpec{}, fmt.Errorf("trainer: target %s has unsupported kind %s", target.Name, target.Kind)
	}
	return spec, nil
}

// Run executes the demo: synthesize a batch for the model at cfg.ModelPath,
// train it through rt and wait for the run to finish.
func Run(ctx context.Context, rt runtime.Runtime, cfg RunConfig, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Samples <= 0 {
		return Result{}, errors.New("trainer: samples must be > 0")
	}

	invoker := Invoker{Runtime: rt, Logger: logger}
	m, err := invoker.Load(cfg.ModelPath)
	if err != nil {
		return Result{}, err
	}
	desc := m.Description()
	target, _ := desc.Target()

	spec, err := ExampleSpecFor(desc, cfg.Range)
	if err != nil {
		return Result{}, err
	}
	asm := feature.Assembler{
		InputName:  desc.Input().Name,
		OutputName: target.Name,
		Schema:     desc.TrainingInputs,
		Logger:     logger,
	}

	examples, err := dataset.Sample(ctx, dataset.SamplerOptions{
		Spec:       spec,
		Count:      cfg.Samples,
		Seed:       cfg.Seed,
		NumWorkers: cfg.NumWorkers,
	})
	if err != nil {
		return Result{}, fmt.Errorf("generate samples: %w", err)
	}
	batch, dropped := asm.Assemble(examples)
	logger.Info("training batch ready", "model", desc.Name, "records", batch.Len(), "dropped", len(dropped))

	var res Result
	var mu sync.Mutex
	interp := &progress.Interpreter{
		Logger: logger,
		OnEpoch: func(s progress.EpochSummary) {
			mu.Lock()
			res.Epochs = append(res.Epochs, s)
			mu.Unlock()
		},
		OnComplete: func(c progress.Completion) {
			mu.Lock()
			res.Completion = c
			mu.Unlock()
			if c.State == runtime.TaskCompleted {
				// Writing the retrained model back is intentionally not done.
				logger.Debug("retrained model not persisted", "task", c.TaskID)
			}
		},
	}

	if cfg.Evaluate {
		evaluate, err := validationPass(ctx, rt, asm, spec, cfg, logger)
		if err != nil {
			return Result{}, err
		}
		interp.Evaluate = evaluate
	}

	task, err := invoker.Start(cfg.ModelPath, m, batch, interp.Handle)
	if err != nil {
		return Result{}, err
	}

	final, err := task.Wait(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}

	mu.Lock()
	defer mu.Unlock()
	res.TaskID = task.ID()
	res.Model = desc.Name
	res.Records = batch.Len()
	res.Dropped = len(dropped)
	if final.State != runtime.TaskCompleted {
		if err == nil {
			err = runtime.ErrTrainingFailed
		}
		return res, fault.WithPath("train", fault.KindTrainingRuntime, cfg.ModelPath, err)
	}
	// The runtime may report success with a completion that cannot be read.
	if res.Completion.State != runtime.TaskCompleted {
		err := res.Completion.Err
		if err == nil {
			err = runtime.ErrTrainingFailed
		}
		return res, fault.WithPath("train", fault.KindTrainingRuntime, cfg.ModelPath, err)
	}
	return res, nil
}

func validationPass(ctx context.Context, rt runtime.Runtime, asm feature.Assembler, spec dataset.ExampleSpec, cfg RunConfig, logger *slog.Logger) (func(runtime.Model) (progress.Validation, error), error) {
	examples, err := dataset.Sample(ctx, dataset.SamplerOptions{
		Spec:       spec,
		Count:      cfg.ValidationSamples,
		Seed:       heldOutSeed(cfg.Seed),
		NumWorkers: cfg.NumWorkers,
	})
	if err != nil {
		return nil, fmt.Errorf("generate validation samples: %w", err)
	}
	held, _ := asm.Assemble(examples)
	predictor := predict.Predictor{Runtime: rt, Logger: logger}
	return func(m runtime.Model) (progress.Validation, error) {
		return predictor.Evaluate(m, held)
	}, nil
}

// heldOutSeed picks the validation seed for a training seed. Seed 0 stays
// seed-free; any other seed maps to a different non-zero seed.
func heldOutSeed(seed int64) int64 {
	if seed == 0 {
		return 0
	}
	if v := ^seed; v != 0 {
		return v
	}
	return math.MinInt64
}
