package fault

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := WithPath("load model", KindModelLoad, "models/emotion.json", errors.New("missing"))
	assert.Equal(t, "load model: model_load (path=models/emotion.json): missing", err.Error())

	bare := New("start training", KindTrainingConstruction, nil)
	assert.Equal(t, "start training: training_construction", bare.Error())

	var nilErr *Error
	assert.Equal(t, "<nil>", nilErr.Error())
	assert.NoError(t, nilErr.Unwrap())
}

func TestIsKindThroughWrapping(t *testing.T) {
	root := errors.New("bad schema")
	err := fmt.Errorf("assemble: %w", New("wrap record", KindBatchConstruction, root))

	assert.True(t, IsKind(err, KindBatchConstruction))
	assert.False(t, IsKind(err, KindPrediction))
	assert.ErrorIs(t, err, root)
	assert.False(t, IsKind(root, KindBatchConstruction))
}
