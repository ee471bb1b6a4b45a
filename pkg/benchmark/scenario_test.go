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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

// fastSimOps compresses the simulated readiness delays so a whole scenario
// runs in well under a second.
func fastSimOps(t *testing.T, modes ...string) *SimOps {
	t.Helper()
	sim := NewSimOps(klog.Background())
	sim.Delays = map[string]float64{SimModeColdStart: 40, SimModeHit: 5}
	sim.Compression = 0.001
	if len(modes) > 0 {
		sim.Modes = modes
	}
	return sim
}

func simRunConfig(t *testing.T, templateContent string) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.OpMode = OpModeSimulated
	cfg.TemplateFile = writeTemplate(t, templateContent)
	cfg.TimeoutSeconds = 5
	return cfg
}

func TestRunStandardScenario(t *testing.T) {
	sim := fastSimOps(t, SimModeColdStart, SimModeNone, SimModeHit)
	cfg := simRunConfig(t, workloadTemplate)
	cfg.Iterations = 3
	cfg.TimeoutSeconds = 1 // the "none" iteration runs into this

	runner := NewRunner(klog.Background(), sim, cfg)
	results, err := runner.RunStandardScenario(context.Background(), ScenarioStandard, "", "")
	require.NoError(t, err)
	require.Len(t, results, 3)

	cold := results[0]
	assert.True(t, cold.Succeeded)
	assert.Equal(t, ModeColdStart.String(), cold.Mode)
	assert.Equal(t, "up", cold.Phase)
	assert.Equal(t, ScenarioStandard, cold.Scenario)
	require.NotNil(t, cold.RequesterSeconds)
	require.NotNil(t, cold.ProviderSeconds)
	assert.Greater(t, *cold.RequesterSeconds, 0.0)

	timedOut := results[1]
	assert.False(t, timedOut.Succeeded)
	assert.Equal(t, "timeout", timedOut.Mode)
	assert.NotEmpty(t, timedOut.Error)
	assert.Nil(t, timedOut.RequesterSeconds)

	hit := results[2]
	assert.True(t, hit.Succeeded)
	assert.Equal(t, ModeHit.String(), hit.Mode)

	summary := Summarize(results)
	assert.Equal(t, 3, summary.TotalRuns)
	assert.Equal(t, 2, summary.SuccessfulRuns)
	assert.Equal(t, 1, summary.FailedRuns)
	assert.Equal(t, 1, summary.Hits)
	assert.Equal(t, 50, summary.HitPercent)

	// Rendered per-iteration manifests are cleaned up; only the template
	// survives in its directory.
	entries, err := os.ReadDir(filepath.Dir(cfg.TemplateFile))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunStandardScenarioBadTemplate(t *testing.T) {
	sim := fastSimOps(t)
	cfg := simRunConfig(t, workloadTemplate)
	cfg.TemplateFile = filepath.Join(t.TempDir(), "absent.yaml")

	runner := NewRunner(klog.Background(), sim, cfg)
	_, err := runner.RunStandardScenario(context.Background(), ScenarioStandard, "", "")
	assert.Error(t, err, "a missing template is a configuration failure, not a phase failure")
}

const scalingTemplate = `apiVersion: apps/v1
kind: ReplicaSet
metadata:
  name: ${REPLICASET_NAME}
spec:
  replicas: 0
`

func TestRunScalingScenario(t *testing.T) {
	sim := fastSimOps(t)
	cfg := simRunConfig(t, scalingTemplate)
	cfg.MaxReplicas = 2

	runner := NewRunner(klog.Background(), sim, cfg)
	results, err := runner.RunScalingScenario(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 4)

	phases := make([]string, len(results))
	for i, res := range results {
		phases[i] = res.Phase
		assert.True(t, res.Succeeded, "phase %s", res.Phase)
		assert.Equal(t, ScenarioScaling, res.Scenario)
	}
	assert.Equal(t, []string{"0_to_1", "1_to_2", "2_to_1", "1_to_2_again"}, phases)

	assert.Equal(t, ModeColdStart.String(), results[0].Mode, "first replica cold-starts")
	assert.Equal(t, ModeHit.String(), results[1].Mode, "second replica reuses a warm provider")
	require.NotNil(t, results[1].RequesterSeconds)

	scaleDown := results[2]
	assert.Equal(t, "scale_down", scaleDown.Mode)
	assert.Nil(t, scaleDown.RequesterSeconds, "scale-down has no readiness to time")
	assert.Nil(t, scaleDown.ProviderSeconds)

	assert.Equal(t, ModeHit.String(), results[3].Mode, "the re-created replica replays its mode")
	require.NotNil(t, results[3].RequesterSeconds)
}

func TestRunNewVariantSweep(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "models.json")
	require.NoError(t, os.WriteFile(modelPath, []byte(`{"models": ["ibm-granite/granite-3.1-2b"]}`), 0o644))

	sim := fastSimOps(t, SimModeHit)
	cfg := simRunConfig(t, workloadTemplate)
	cfg.Image = "quay.io/example/requester"
	cfg.Tag = "v0.3.0"
	cfg.ModelPath = modelPath

	runner := NewRunner(klog.Background(), sim, cfg)
	results, err := runner.RunNewVariantSweep(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "variant-ibm-granite-granite-3.1-2b", results[0].Scenario)
	assert.True(t, results[0].Succeeded)
	assert.Equal(t, ModeHit.String(), results[0].Mode)
}

func TestRunNewVariantSweepMissingModelList(t *testing.T) {
	sim := fastSimOps(t)
	cfg := simRunConfig(t, workloadTemplate)
	cfg.ModelPath = filepath.Join(t.TempDir(), "absent.json")

	runner := NewRunner(klog.Background(), sim, cfg)
	_, err := runner.RunNewVariantSweep(context.Background())
	assert.Error(t, err)
}
