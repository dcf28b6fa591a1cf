package feature

import (
	"errors"
	"fmt"

	"ondevice-update/internal/tensor"
)

// ErrSchemaMismatch is wrapped by every validation failure.
var ErrSchemaMismatch = errors.New("feature: schema mismatch")

// Description constrains the value a model accepts under Name.
type Description struct {
	Name  string       `json:"name"`
	Kind  Kind         `json:"kind"`
	Shape []int        `json:"shape,omitempty"`
	DType tensor.DType `json:"dtype,omitempty"`
}

// Validate reports whether v satisfies d.
func (d Description) Validate(v Value) error {
	if v.Kind() != d.Kind {
		return fmt.Errorf("%w: %s wants %s, got %s", ErrSchemaMismatch, d.Name, d.Kind, v.Kind())
	}
	if d.Kind != KindTensor {
		return nil
	}
	t, _ := v.AsTensor()
	if t.DType() != d.DType {
		return fmt.Errorf("%w: %s wants dtype %s, got %s", ErrSchemaMismatch, d.Name, d.DType, t.DType())
	}
	if !tensor.SameShape(t.Shape(), d.Shape) {
		return fmt.Errorf("%w: %s wants shape %v, got %v", ErrSchemaMismatch, d.Name, d.Shape, t.Shape())
	}
	return nil
}

// Schema is the set of named features a record must carry.
type Schema []Description

// Lookup returns the description registered under name.
func (s Schema) Lookup(name string) (Description, bool) {
	for _, d := range s {
		if d.Name == name {
			return d, true
		}
	}
	return Description{}, false
}
