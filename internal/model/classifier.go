package model

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Batch represents a minibatch of flattened inputs and class indices.
type Batch struct {
	Inputs [][]float64
	Labels []int
}

// Classifier is a linear classifier with softmax cross-entropy.
type Classifier struct {
	numClasses int
	inputSize  int
	weights    []float64
	bias       []float64
	lr         float64
}

// Weights is the serialized form of a Classifier.
type Weights struct {
	NumClasses int       `json:"num_classes"`
	InputSize  int       `json:"input_size"`
	Weights    []float64 `json:"weights"`
	Bias       []float64 `json:"bias"`
}

// NewClassifier constructs the model with random initialization.
func NewClassifier(numClasses, inputSize int, lr float64, seed int64) *Classifier {
	if numClasses <= 0 {
		numClasses = 10
	}
	if inputSize <= 0 {
		inputSize = 64
	}
	if lr <= 0 {
		lr = 0.01
	}
	rng := rand.New(rand.NewSource(seed))
	weights := make([]float64, numClasses*inputSize)
	for i := range weights {
		weights[i] = (rng.Float64()*2 - 1) * 0.01
	}
	return &Classifier{
		numClasses: numClasses,
		inputSize:  inputSize,
		weights:    weights,
		bias:       make([]float64, numClasses),
		lr:         lr,
	}
}

// ClassifierFromWeights restores a classifier saved with Weights.
func ClassifierFromWeights(w Weights, lr float64) (*Classifier, error) {
	if w.NumClasses <= 0 || w.InputSize <= 0 {
		return nil, fmt.Errorf("classifier: invalid dimensions %dx%d", w.NumClasses, w.InputSize)
	}
	if len(w.Weights) != w.NumClasses*w.InputSize {
		return nil, fmt.Errorf("classifier: %d weights for %dx%d", len(w.Weights), w.NumClasses, w.InputSize)
	}
	if len(w.Bias) != w.NumClasses {
		return nil, fmt.Errorf("classifier: %d biases for %d classes", len(w.Bias), w.NumClasses)
	}
	if lr <= 0 {
		lr = 0.01
	}
	return &Classifier{
		numClasses: w.NumClasses,
		inputSize:  w.InputSize,
		weights:    append([]float64(nil), w.Weights...),
		bias:       append([]float64(nil), w.Bias...),
		lr:         lr,
	}, nil
}

func (m *Classifier) NumClasses() int { return m.numClasses }

func (m *Classifier) InputSize() int { return m.inputSize }

// Weights snapshots the parameters.
func (m *Classifier) Weights() Weights {
	return Weights{
		NumClasses: m.numClasses,
		InputSize:  m.inputSize,
		Weights:    append([]float64(nil), m.weights...),
		Bias:       append([]float64(nil), m.bias...),
	}
}

// Clone returns an independent copy.
func (m *Classifier) Clone() *Classifier {
	c := *m
	c.weights = append([]float64(nil), m.weights...)
	c.bias = append([]float64(nil), m.bias...)
	return &c
}

// Scores returns the logits for one input.
func (m *Classifier) Scores(input []float64) ([]float64, error) {
	if len(input) != m.inputSize {
		return nil, fmt.Errorf("classifier: input has %d values, want %d", len(input), m.inputSize)
	}
	logits := make([]float64, m.numClasses)
	for c := range logits {
		wStart := c * m.inputSize
		logits[c] = m.bias[c] + floats.Dot(m.weights[wStart:wStart+m.inputSize], input)
	}
	return logits, nil
}

// TrainStep executes one SGD step and returns average loss.
func (m *Classifier) TrainStep(batch Batch) float64 {
	if len(batch.Inputs) == 0 {
		return 0
	}
	totalLoss := 0.0
	for i, input := range batch.Inputs {
		logits, err := m.Scores(input)
		if err != nil {
			continue
		}
		label := batch.Labels[i] % m.numClasses
		if label < 0 {
			label += m.numClasses
		}
		probs := softmax(logits)
		totalLoss += -math.Log(math.Max(probs[label], 1e-9))

		probs[label] -= 1
		for c := 0; c < m.numClasses; c++ {
			grad := probs[c]
			m.bias[c] -= m.lr * grad
			wStart := c * m.inputSize
			floats.AddScaled(m.weights[wStart:wStart+m.inputSize], -m.lr*grad, input)
		}
	}
	return totalLoss / float64(len(batch.Inputs))
}

func softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	lse := floats.LogSumExp(logits)
	for i, v := range logits {
		out[i] = math.Exp(v - lse)
	}
	return out
}
