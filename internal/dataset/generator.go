// Package dataset synthesizes labeled examples shaped like a model's inputs.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"ondevice-update/internal/feature"
	"ondevice-update/internal/tensor"
)

// maxRedraws bounds how often an element is redrawn when dtype rounding
// pushes it outside the requested range.
const maxRedraws = 64

// Range is the half-open interval [Min, Max) elements are drawn from.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (r Range) Validate() error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min >= r.Max {
		return fmt.Errorf("dataset: invalid range [%g, %g)", r.Min, r.Max)
	}
	return nil
}

// LabelDomain is either Classes integer class indices [0, Classes) or a fixed
// set of string Tags.
type LabelDomain struct {
	Classes int
	Tags    []string
}

func Classes(n int) LabelDomain { return LabelDomain{Classes: n} }

func Tags(tags ...string) LabelDomain { return LabelDomain{Tags: append([]string(nil), tags...)} }

// ExampleSpec describes the examples to synthesize.
type ExampleSpec struct {
	Shape  []int
	DType  tensor.DType
	Range  Range
	Labels LabelDomain
}

// Generator draws tensors and labels from uniform distributions.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a generator seeded with seed. A zero seed draws one
// from the process-wide source, so repeated runs differ.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = rand.Int63()
	}
	return newGenerator(seed)
}

func newGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Tensor allocates a tensor and fills every element independently from r.
func (g *Generator) Tensor(shape []int, dtype tensor.DType, r Range) (tensor.Tensor, error) {
	if err := r.Validate(); err != nil {
		return tensor.Tensor{}, err
	}
	t, err := tensor.New(shape, dtype)
	if err != nil {
		return tensor.Tensor{}, err
	}

	if dtype == tensor.Int32 {
		lo := math.Ceil(r.Min)
		n := int64(math.Ceil(r.Max) - lo)
		if n <= 0 {
			return tensor.Tensor{}, fmt.Errorf("dataset: range [%g, %g) holds no integers", r.Min, r.Max)
		}
		for i := 0; i < t.Len(); i++ {
			t.Set(i, lo+float64(g.rng.Int63n(n)))
		}
		return t, nil
	}

	width := r.Max - r.Min
	for i := 0; i < t.Len(); i++ {
		drawn := false
		for attempt := 0; attempt < maxRedraws; attempt++ {
			t.Set(i, r.Min+g.rng.Float64()*width)
			if v := t.At(i); v >= r.Min && v < r.Max {
				drawn = true
				break
			}
		}
		if !drawn {
			return tensor.Tensor{}, fmt.Errorf("dataset: %s cannot represent a value in [%g, %g)", dtype, r.Min, r.Max)
		}
	}
	return t, nil
}

// Label draws one label uniformly from d.
func (g *Generator) Label(d LabelDomain) (feature.Value, error) {
	switch {
	case len(d.Tags) > 0:
		return feature.StringValue(d.Tags[g.rng.Intn(len(d.Tags))]), nil
	case d.Classes > 0:
		return feature.Int64Value(int64(g.rng.Intn(d.Classes))), nil
	}
	return feature.Value{}, errors.New("dataset: empty label domain")
}

// Example draws one labeled example.
func (g *Generator) Example(spec ExampleSpec) (feature.Example, error) {
	input, err := g.Tensor(spec.Shape, spec.DType, spec.Range)
	if err != nil {
		return feature.Example{}, err
	}
	label, err := g.Label(spec.Labels)
	if err != nil {
		return feature.Example{}, err
	}
	return feature.Example{Input: input, Label: label}, nil
}
