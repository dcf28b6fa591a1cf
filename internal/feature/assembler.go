package feature

import (
	"fmt"
	"log/slog"

	"ondevice-update/internal/fault"
	"ondevice-update/internal/tensor"
)

// Example pairs one input tensor with its label.
type Example struct {
	Input tensor.Tensor
	Label Value
}

// Assembler wraps examples into records keyed by the model's training
// feature names.
type Assembler struct {
	InputName  string
	OutputName string
	Schema     Schema
	Logger     *slog.Logger
}

// Assemble builds a batch from examples. Records rejected by the schema are
// dropped and reported; the remaining records keep their relative order.
// Input tensors are copied, so later writes to examples leave the batch
// unchanged.
func (a Assembler) Assemble(examples []Example) (Batch, []error) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	providers := make([]Provider, 0, len(examples))
	var errs []error
	for i, ex := range examples {
		p, err := NewProvider(map[string]Value{
			a.InputName:  TensorValue(ex.Input.Clone()),
			a.OutputName: ex.Label,
		}, a.Schema)
		if err != nil {
			err = fault.New(fmt.Sprintf("wrap example %d", i), fault.KindBatchConstruction, err)
			logger.Warn("dropping example from batch", "index", i, "error", err)
			errs = append(errs, err)
			continue
		}
		providers = append(providers, p)
	}

	logger.Debug("batch assembled", "examples", len(examples), "records", len(providers), "dropped", len(errs))
	return Batch{providers: providers}, errs
}
