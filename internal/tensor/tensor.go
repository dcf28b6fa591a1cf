// Package tensor provides the fixed-shape, fixed-dtype numeric buffers that
// are exchanged with a training runtime.
package tensor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/x448/float16"
)

// DType is the element type of a Tensor.
type DType int

const (
	Invalid DType = iota
	Float16
	Float32
	Float64
	Int32
)

var dtypeNames = map[DType]string{
	Float16: "float16",
	Float32: "float32",
	Float64: "float64",
	Int32:   "int32",
}

func (d DType) String() string {
	if name, ok := dtypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// ParseDType maps a dtype name such as "float32" to its DType.
func ParseDType(s string) (DType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d, name := range dtypeNames {
		if name == s {
			return d, nil
		}
	}
	return Invalid, fmt.Errorf("tensor: unknown dtype %q", s)
}

func (d DType) MarshalText() ([]byte, error) {
	if _, ok := dtypeNames[d]; !ok {
		return nil, fmt.Errorf("tensor: cannot marshal %s", d)
	}
	return []byte(d.String()), nil
}

func (d *DType) UnmarshalText(b []byte) error {
	v, err := ParseDType(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Tensor is a row-major multi-dimensional buffer. Copies of a Tensor share
// the same backing storage; use Clone for an independent buffer.
type Tensor struct {
	shape []int
	dtype DType

	f16 []float16.Float16
	f32 []float32
	f64 []float64
	i32 []int32
}

// Elements returns the product of the dimensions in shape.
func Elements(shape []int) (int, error) {
	if len(shape) == 0 {
		return 0, errors.New("tensor: shape must have at least one dimension")
	}
	n := 1
	for i, dim := range shape {
		if dim < 0 {
			return 0, fmt.Errorf("tensor: dimension %d is negative (%d)", i, dim)
		}
		n *= dim
	}
	return n, nil
}

// New allocates a zero-filled tensor.
func New(shape []int, dtype DType) (Tensor, error) {
	n, err := Elements(shape)
	if err != nil {
		return Tensor{}, err
	}
	t := Tensor{shape: append([]int(nil), shape...), dtype: dtype}
	switch dtype {
	case Float16:
		t.f16 = make([]float16.Float16, n)
	case Float32:
		t.f32 = make([]float32, n)
	case Float64:
		t.f64 = make([]float64, n)
	case Int32:
		t.i32 = make([]int32, n)
	default:
		return Tensor{}, fmt.Errorf("tensor: unsupported dtype %s", dtype)
	}
	return t, nil
}

// FromFloat64s builds a tensor of the given dtype holding values.
func FromFloat64s(shape []int, dtype DType, values []float64) (Tensor, error) {
	t, err := New(shape, dtype)
	if err != nil {
		return Tensor{}, err
	}
	if len(values) != t.Len() {
		return Tensor{}, fmt.Errorf("tensor: %d values for shape %v (want %d)", len(values), shape, t.Len())
	}
	for i, v := range values {
		t.Set(i, v)
	}
	return t, nil
}

// IsZero reports whether t was never allocated.
func (t Tensor) IsZero() bool { return t.dtype == Invalid }

func (t Tensor) DType() DType { return t.dtype }

// Shape returns a copy of the dimensions.
func (t Tensor) Shape() []int { return append([]int(nil), t.shape...) }

// Len returns the number of elements.
func (t Tensor) Len() int {
	switch t.dtype {
	case Float16:
		return len(t.f16)
	case Float32:
		return len(t.f32)
	case Float64:
		return len(t.f64)
	case Int32:
		return len(t.i32)
	}
	return 0
}

// At returns element i as a float64.
func (t Tensor) At(i int) float64 {
	switch t.dtype {
	case Float16:
		return float64(t.f16[i].Float32())
	case Float32:
		return float64(t.f32[i])
	case Float64:
		return t.f64[i]
	case Int32:
		return float64(t.i32[i])
	}
	panic("tensor: At on zero Tensor")
}

// Set stores v at element i, converting to the tensor's dtype. Int32 tensors
// truncate toward zero.
func (t Tensor) Set(i int, v float64) {
	switch t.dtype {
	case Float16:
		t.f16[i] = float16.Fromfloat32(float32(v))
	case Float32:
		t.f32[i] = float32(v)
	case Float64:
		t.f64[i] = v
	case Int32:
		t.i32[i] = int32(v)
	default:
		panic("tensor: Set on zero Tensor")
	}
}

// Offset converts a multi-dimensional index into a flat element index.
func (t Tensor) Offset(idx ...int) (int, error) {
	if len(idx) != len(t.shape) {
		return 0, fmt.Errorf("tensor: index rank %d does not match shape %v", len(idx), t.shape)
	}
	off := 0
	for d, i := range idx {
		if i < 0 || i >= t.shape[d] {
			return 0, fmt.Errorf("tensor: index %d out of range for dimension %d (size %d)", i, d, t.shape[d])
		}
		off = off*t.shape[d] + i
	}
	return off, nil
}

// Float64s copies the elements out as float64.
func (t Tensor) Float64s() []float64 {
	out := make([]float64, t.Len())
	for i := range out {
		out[i] = t.At(i)
	}
	return out
}

// Clone returns a deep copy of t.
func (t Tensor) Clone() Tensor {
	c := Tensor{shape: append([]int(nil), t.shape...), dtype: t.dtype}
	c.f16 = append([]float16.Float16(nil), t.f16...)
	c.f32 = append([]float32(nil), t.f32...)
	c.f64 = append([]float64(nil), t.f64...)
	c.i32 = append([]int32(nil), t.i32...)
	return c
}

func (t Tensor) String() string {
	return fmt.Sprintf("Tensor(%s, %v)", t.dtype, t.shape)
}

// SameShape reports whether two shapes have identical dimensions.
func SameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
