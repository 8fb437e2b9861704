// Package config loads and saves YAML run configurations for the daekit
// CLI: which problem to solve, which backend, and the backend options.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRTol     = 1e-6
	DefaultATol     = 1e-12
	DefaultOrder    = 5
	DefaultMaxSteps = 500
)

type Config struct {
	Problem    string  `yaml:"problem"`
	Integrator string  `yaml:"integrator"`
	RTol       float64 `yaml:"rtol"`
	ATol       float64 `yaml:"atol"`
	Order      int     `yaml:"order"`
	MaxSteps   int     `yaml:"nsteps"`
	MaxStep    float64 `yaml:"max_step"`
	FirstStep  float64 `yaml:"first_step"`
	TCrit      float64 `yaml:"tcrit"` // 0 = none
	Nonneg     bool    `yaml:"enforce_nonnegativity"`
	Step       bool    `yaml:"step"`

	// Checkpoints override the problem's own; empty keeps the defaults.
	Checkpoints []float64 `yaml:"checkpoints"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem:    "oscillator",
		Integrator: "bdf",
		RTol:       DefaultRTol,
		ATol:       DefaultATol,
		Order:      DefaultOrder,
		MaxSteps:   DefaultMaxSteps,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IntegratorParams flattens the config into the keyword map SetIntegrator
// consumes.
func (c *Config) IntegratorParams() map[string]any {
	params := map[string]any{
		"rtol":   c.RTol,
		"atol":   c.ATol,
		"order":  c.Order,
		"nsteps": c.MaxSteps,
	}
	if c.MaxStep > 0 {
		params["max_step"] = c.MaxStep
	}
	if c.FirstStep > 0 {
		params["first_step"] = c.FirstStep
	}
	if c.TCrit != 0 {
		params["tcrit"] = c.TCrit
	}
	if c.Nonneg {
		params["enforce_nonnegativity"] = true
	}
	return params
}
