package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Artifact is the on-disk form of an updatable model.
type Artifact struct {
	Description Description `json:"description"`
	Weights     Weights     `json:"weights"`
}

// Validate checks the weights fit the description.
func (a Artifact) Validate() error {
	if err := a.Description.Validate(); err != nil {
		return err
	}
	if a.Weights.NumClasses != a.Description.NumClasses() {
		return fmt.Errorf("model %s: weights for %d classes, description has %d",
			a.Description.Name, a.Weights.NumClasses, a.Description.NumClasses())
	}
	if want := elements(a.Description.Input().Shape); a.Weights.InputSize != want {
		return fmt.Errorf("model %s: weights for input size %d, description has %d",
			a.Description.Name, a.Weights.InputSize, want)
	}
	return nil
}

// Classifier restores the artifact's classifier.
func (a Artifact) Classifier() (*Classifier, error) {
	return ClassifierFromWeights(a.Weights, a.Description.Update.LearningRate)
}

// Load reads and validates an artifact.
func Load(path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("read model: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return Artifact{}, fmt.Errorf("parse model: %w", err)
	}
	if err := a.Validate(); err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// Save writes the artifact atomically via a temp file and rename.
func Save(path string, a Artifact) error {
	if err := a.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename model: %w", err)
	}
	return nil
}
