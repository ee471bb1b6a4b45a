/*
Copyright 2025 The llm-d Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package benchmark

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Operational modes of the benchmark.
const (
	OpModeKind      = "kind"
	OpModeRemote    = "remote"
	OpModeSimulated = "simulated"
)

// Scenario names accepted by the CLI.
const (
	ScenarioStandard   = "standard"
	ScenarioScaling    = "scaling"
	ScenarioNewVariant = "new_variant"
)

// Config is one benchmark run's configuration. It can be loaded from a YAML
// config file and overridden by flags; see cmd/dual-pods-benchmark.
type Config struct {
	OpMode         string             `mapstructure:"opMode"`
	Namespace      string             `mapstructure:"namespace"`
	TemplateFile   string             `mapstructure:"templateFile"`
	Label          string             `mapstructure:"label"`
	Image          string             `mapstructure:"image"`
	Tag            string             `mapstructure:"tag"`
	Scenario       string             `mapstructure:"scenario"`
	Iterations     int                `mapstructure:"iterations"`
	TimeoutSeconds int                `mapstructure:"timeoutSeconds"`
	MaxReplicas    int                `mapstructure:"maxReplicas"`
	CleanupEnabled bool               `mapstructure:"cleanupEnabled"`
	SettleSeconds  int                `mapstructure:"settleSeconds"`
	RoleSuffix     string             `mapstructure:"roleSuffix"`
	ModelPath      string             `mapstructure:"modelPath"`
	ClusterName    string             `mapstructure:"clusterName"`
	SimDelays      map[string]float64 `mapstructure:"simDelays"`
	SimCompression float64            `mapstructure:"simCompression"`
}

// DefaultConfig returns the configuration the flags and config file overlay.
func DefaultConfig() *Config {
	return &Config{
		OpMode:         OpModeKind,
		Namespace:      "default",
		TemplateFile:   "deploy/server-request.yaml",
		Label:          "app=dp-example",
		Scenario:       ScenarioStandard,
		Iterations:     1,
		TimeoutSeconds: 1000,
		MaxReplicas:    2,
		CleanupEnabled: true,
		SettleSeconds:  10,
		RoleSuffix:     DefaultRoleSuffix,
		ClusterName:    "fmabenchmark",
		SimCompression: 0.001,
	}
}

// LoadConfig reads a config file over the defaults. An empty path returns
// the defaults. The container image may also come from the environment
// (CONTAINER_IMG_REG / CONTAINER_IMG_VERSION), as in CI.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}
	// viper lowercases map keys; restore the canonical mode names.
	if len(cfg.SimDelays) > 0 {
		normalized := make(map[string]float64, len(cfg.SimDelays))
		for key, seconds := range cfg.SimDelays {
			switch strings.ToLower(key) {
			case strings.ToLower(SimModeColdStart):
				normalized[SimModeColdStart] = seconds
			case strings.ToLower(SimModeHit):
				normalized[SimModeHit] = seconds
			default:
				normalized[key] = seconds
			}
		}
		cfg.SimDelays = normalized
	}
	if img := os.Getenv("CONTAINER_IMG_REG"); img != "" && cfg.Image == "" {
		cfg.Image = img
	}
	if tag := os.Getenv("CONTAINER_IMG_VERSION"); tag != "" && cfg.Tag == "" {
		cfg.Tag = tag
	}
	return cfg, nil
}

// Validate reports the first configuration failure, which fails the whole
// run before any phase starts.
func (c *Config) Validate() error {
	switch c.OpMode {
	case OpModeKind, OpModeRemote, OpModeSimulated:
	default:
		return fmt.Errorf("opMode must be one of [%s, %s, %s], got %q", OpModeKind, OpModeRemote, OpModeSimulated, c.OpMode)
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if c.TemplateFile == "" {
		return fmt.Errorf("templateFile is required")
	}
	if c.OpMode != OpModeSimulated && (c.Image == "" || c.Tag == "") {
		return fmt.Errorf("image and tag are required (flags or CONTAINER_IMG_REG/CONTAINER_IMG_VERSION)")
	}
	if c.Iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", c.Iterations)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("timeoutSeconds must be at least 1, got %d", c.TimeoutSeconds)
	}
	if c.MaxReplicas < 1 {
		return fmt.Errorf("maxReplicas must be at least 1, got %d", c.MaxReplicas)
	}
	if c.Scenario == ScenarioNewVariant && c.ModelPath == "" {
		return fmt.Errorf("modelPath is required for the %s scenario", ScenarioNewVariant)
	}
	return nil
}

// Timeout is the per-phase readiness budget.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SettleDelay is the pause after a scale-down, letting terminated pods
// vanish so they are not mistaken for baseline-ready pods. Zero in
// simulated mode.
func (c *Config) SettleDelay() time.Duration {
	if c.OpMode == OpModeSimulated {
		return 0
	}
	return time.Duration(c.SettleSeconds) * time.Second
}

// ModelRef names one model variant by registry and repo.
type ModelRef struct {
	Registry string
	Repo     string
}

func (m ModelRef) String() string { return m.Registry + "/" + m.Repo }

// LoadModelList reads the new-variant sweep's model list, a JSON document of
// the form {"models": ["registry/repo", ...]}.
func LoadModelList(path string) ([]ModelRef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model list %s: %w", path, err)
	}
	var doc struct {
		Models []string `json:"models"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse model list %s: %w", path, err)
	}
	refs := make([]ModelRef, 0, len(doc.Models))
	for _, model := range doc.Models {
		parts := strings.SplitN(model, "/", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("model %q in %s is not of the form registry/repo", model, path)
		}
		refs = append(refs, ModelRef{Registry: parts[0], Repo: parts[1]})
	}
	return refs, nil
}
