package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"ondevice-update/internal/dataset"
	"ondevice-update/internal/fault"
)

// Config captures the runtime knobs for a demo training run.
type Config struct {
	Preset            string        `yaml:"preset"`
	ModelPath         string        `yaml:"model_path"`
	Samples           int           `yaml:"samples"`
	ValidationSamples int           `yaml:"validation_samples"`
	Range             dataset.Range `yaml:"range"`
	Seed              int64         `yaml:"seed"`
	NumWorkers        int           `yaml:"num_workers"`
	Evaluate          bool          `yaml:"evaluate"`
	Logging           LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	ModelPath  string
	Samples    int
	Seed       int64
	NumWorkers int
	Evaluate   *bool
	LogLevel   string
	LogFormat  string
}

var presets = map[string]Config{
	"emotion": {
		Preset:            "emotion",
		ModelPath:         "models/emotion.json",
		Samples:           1,
		ValidationSamples: 4,
		Range:             dataset.Range{Min: 0, Max: 5},
		NumWorkers:        1,
		Evaluate:          true,
	},
	"digits": {
		Preset:     "digits",
		ModelPath:  "models/digits.json",
		Samples:    5,
		Range:      dataset.Range{Min: 0, Max: 1},
		NumWorkers: 2,
	},
}

// PresetNames lists the known presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns the configuration of a named demo.
func Preset(name string) (*Config, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fault.New("preset", fault.KindInvalidConfig, fmt.Errorf("unknown preset %q", name))
	}
	cfg := p
	cfg.Logging = LoggingConfig{Level: "info", Format: "text"}
	return &cfg, nil
}

// Default returns the emotion demo configuration.
func Default() *Config {
	cfg, _ := Preset("emotion")
	return cfg
}

// Load reads and validates a Config from YAML. The file's preset, if any,
// supplies the defaults the remaining keys override.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg := Default()
	if head.Preset != "" {
		if cfg, err = Preset(head.Preset); err != nil {
			return nil, err
		}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.ModelPath != "" {
		c.ModelPath = o.ModelPath
	}
	if o.Samples > 0 {
		c.Samples = o.Samples
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.NumWorkers > 0 {
		c.NumWorkers = o.NumWorkers
	}
	if o.Evaluate != nil {
		c.Evaluate = *o.Evaluate
	}
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fault.New("validate config", fault.KindInvalidConfig, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.ModelPath == "" {
		return errors.New("model_path must be set")
	}
	if c.Samples <= 0 {
		return fmt.Errorf("samples must be > 0 (got %d)", c.Samples)
	}
	if c.ValidationSamples < 0 {
		return fmt.Errorf("validation_samples must be >= 0 (got %d)", c.ValidationSamples)
	}
	if c.Evaluate && c.ValidationSamples == 0 {
		return errors.New("evaluate needs validation_samples > 0")
	}
	if err := c.Range.Validate(); err != nil {
		return err
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = 1
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}
	return nil
}
