package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ondevice-update/internal/tensor"
)

func TestNewProviderRejectsUnexpectedFeature(t *testing.T) {
	schema := Schema{{Name: "label", Kind: KindInt64}}
	_, err := NewProvider(map[string]Value{"label": Int64Value(1), "extra": StringValue("x")}, schema)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestProviderNamesSorted(t *testing.T) {
	img, err := tensor.New([]int{1, 28, 28}, tensor.Float64)
	require.NoError(t, err)
	schema := Schema{
		{Name: "prediction_true", Kind: KindInt64},
		{Name: "input", Kind: KindTensor, Shape: []int{1, 28, 28}, DType: tensor.Float64},
	}
	p, err := NewProvider(map[string]Value{"input": TensorValue(img), "prediction_true": Int64Value(7)}, schema)
	require.NoError(t, err)
	assert.Equal(t, []string{"input", "prediction_true"}, p.Names())

	v, ok := p.Value("prediction_true")
	require.True(t, ok)
	n, ok := v.AsInt64()
	require.True(t, ok)
	assert.EqualValues(t, 7, n)
}

func TestValueString(t *testing.T) {
	assert.Equal(t, `"happy"`, StringValue("happy").String())
	assert.Equal(t, "3", Int64Value(3).String())
	assert.Equal(t, "<invalid>", Value{}.String())
}
