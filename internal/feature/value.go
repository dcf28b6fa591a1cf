// Package feature describes the named values a model consumes and packages
// labeled examples into batches a training runtime accepts.
package feature

import (
	"fmt"
	"strconv"
	"strings"

	"ondevice-update/internal/tensor"
)

// Kind is the type of a feature value.
type Kind int

const (
	KindInvalid Kind = iota
	KindTensor
	KindInt64
	KindString
)

var kindNames = map[Kind]string{
	KindTensor: "tensor",
	KindInt64:  "int64",
	KindString: "string",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("feature: cannot marshal kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("feature: unknown kind %q", s)
}

// Value is a tagged union holding a tensor, an int64 scalar or a string.
type Value struct {
	kind Kind
	t    tensor.Tensor
	i    int64
	s    string
}

func TensorValue(t tensor.Tensor) Value { return Value{kind: KindTensor, t: t} }

func Int64Value(v int64) Value { return Value{kind: KindInt64, i: v} }

func StringValue(s string) Value { return Value{kind: KindString, s: s} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsTensor() (tensor.Tensor, bool) { return v.t, v.kind == KindTensor }

func (v Value) AsInt64() (int64, bool) { return v.i, v.kind == KindInt64 }

func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

func (v Value) String() string {
	switch v.kind {
	case KindTensor:
		return v.t.String()
	case KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindString:
		return strconv.Quote(v.s)
	}
	return "<invalid>"
}
