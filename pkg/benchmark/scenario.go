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
	"errors"
	"fmt"
	"os"
	"time"

	"k8s.io/klog/v2"
)

// Availability-mode markers recorded for phases without a classified
// provider.
const (
	modeScaleDown  = "scale_down"
	modeTimeout    = "timeout"
	modeNoProvider = "No Server Providing Pod Available"
)

// Phase labels of the scaling scenario.
const (
	phaseZeroToOne  = "0_to_1"
	phaseOneToTwo   = "1_to_2"
	phaseTwoToOne   = "2_to_1"
	phaseUpAgain    = "1_to_2_again"
	phaseStandardUp = "up"
)

// Runner sequences scenarios against one cluster. It owns the result set of
// the current run, the list of cold-started provider pods flagged for
// cleanup, and the intermediate manifest files it rendered. One Runner is
// driven by one caller at a time; phases never overlap.
type Runner struct {
	logger  klog.Logger
	ops     ClusterOps
	cfg     *Config
	watcher *ReadinessWatcher

	results           ScenarioResultSet
	coldProviders     []string
	intermediateFiles []string
}

// NewRunner returns a Runner over the given cluster ops.
func NewRunner(logger klog.Logger, ops ClusterOps, cfg *Config) *Runner {
	watcher := NewReadinessWatcher(logger, ops)
	if cfg.RoleSuffix != "" {
		watcher.RoleSuffix = cfg.RoleSuffix
	}
	return &Runner{
		logger:  logger.WithName("scenario-runner"),
		ops:     ops,
		cfg:     cfg,
		watcher: watcher,
	}
}

// Results returns the result set of the most recent run.
func (r *Runner) Results() ScenarioResultSet { return r.results }

// RunStandardScenario deploys a uniquely-named workload per iteration and
// measures its readiness. An empty templatePath or namePrefix falls back to
// the configured template and the "my-request" prefix. The returned error is
// a configuration failure; phase failures are absorbed into the results.
func (r *Runner) RunStandardScenario(ctx context.Context, scenario, templatePath, namePrefix string) (ScenarioResultSet, error) {
	r.results = nil
	if templatePath == "" {
		templatePath = r.cfg.TemplateFile
	}
	if namePrefix == "" {
		namePrefix = "my-request"
	}
	defer r.cleanupIntermediateFiles()

	for i := 1; i <= r.cfg.Iterations; i++ {
		r.logger.V(1).Info("Running iteration", "scenario", scenario, "iteration", i)
		name := fmt.Sprintf("%s-%d-%d", namePrefix, i, time.Now().Unix())
		manifest, err := RenderWorkloadManifest(templatePath, name)
		if err != nil {
			return r.results, err
		}
		r.intermediateFiles = append(r.intermediateFiles, manifest)
		r.results = append(r.results, r.runStandardIteration(ctx, manifest, name, scenario, i))
	}
	return r.results, nil
}

func (r *Runner) runStandardIteration(ctx context.Context, manifest, name, scenario string, iteration int) IterationResult {
	defer r.cleanupIteration(ctx, manifest)

	if err := r.ops.Apply(ctx, manifest); err != nil {
		r.logger.Error(err, "Iteration failed to apply manifest", "iteration", iteration, "manifest", manifest)
		return IterationResult{
			Iteration: iteration, Scenario: scenario, Phase: phaseStandardUp,
			Mode: modeNoProvider, Error: err.Error(),
		}
	}
	outcome, err := r.watcher.AwaitReady(ctx, r.cfg.Namespace, name, r.cfg.Timeout(), 1)
	r.flagColdProviders(outcome)
	result := newIterationResult(outcome, iteration, scenario, phaseStandardUp)
	if err != nil {
		r.logger.Error(err, "Iteration failed", "iteration", iteration, "workload", name)
		result.Mode = failureMode(err)
	}
	return result
}

// RunScalingScenario walks each iteration through the fixed replica sequence
// 0->1, 1->2, 2->1 (not awaited), settle, 1->2 again. A phase timeout is
// recorded as a failed result for that phase; later phases still run.
func (r *Runner) RunScalingScenario(ctx context.Context) (ScenarioResultSet, error) {
	r.results = nil
	defer r.cleanupIntermediateFiles()

	for i := 1; i <= r.cfg.Iterations; i++ {
		r.logger.V(1).Info("Running scaling iteration", "iteration", i)
		name := fmt.Sprintf("scale-request-%d-%d", i, time.Now().Unix())
		manifest, err := RenderWorkloadManifest(r.cfg.TemplateFile, name)
		if err != nil {
			return r.results, err
		}
		r.intermediateFiles = append(r.intermediateFiles, manifest)
		r.runScalingIteration(ctx, manifest, name, i)
	}
	return r.results, nil
}

func (r *Runner) runScalingIteration(ctx context.Context, manifest, name string, iteration int) {
	defer r.cleanupIteration(ctx, manifest)

	// The workload starts at zero replicas; every readiness transition is
	// caused by an explicit scale step.
	if err := r.ops.Apply(ctx, manifest); err != nil {
		r.logger.Error(err, "Scaling iteration failed to apply manifest", "iteration", iteration, "manifest", manifest)
		r.results = append(r.results, IterationResult{
			Iteration: iteration, Scenario: ScenarioScaling, Phase: phaseZeroToOne,
			Mode: modeNoProvider, Error: err.Error(),
		})
		return
	}

	max := int32(r.cfg.MaxReplicas)
	r.results = append(r.results, r.runScalePhase(ctx, manifest, name, phaseZeroToOne, 1, iteration))
	r.results = append(r.results, r.runScalePhase(ctx, manifest, name, phaseOneToTwo, max, iteration))

	// Scale-down is fire-and-forget: no new pod to time.
	r.logger.V(1).Info("Scaling down", "workload", name, "phase", phaseTwoToOne)
	if err := r.ops.Scale(ctx, manifest, 1); err != nil {
		r.logger.Error(err, "Scale-down failed", "workload", name)
	}
	r.results = append(r.results, IterationResult{
		Iteration: iteration, Scenario: ScenarioScaling, Phase: phaseTwoToOne,
		Mode: modeScaleDown, Succeeded: true,
	})

	// Let the terminated pods fully vanish so the next baseline snapshot
	// does not count them.
	if settle := r.cfg.SettleDelay(); settle > 0 {
		r.logger.V(1).Info("Settling before scaling up again", "delay", settle)
		select {
		case <-time.After(settle):
		case <-ctx.Done():
			return
		}
	}

	r.results = append(r.results, r.runScalePhase(ctx, manifest, name, phaseUpAgain, max, iteration))
}

func (r *Runner) runScalePhase(ctx context.Context, manifest, name, phase string, replicas int32, iteration int) IterationResult {
	r.logger.V(1).Info("Scaling phase", "workload", name, "phase", phase, "replicas", replicas)
	if err := r.ops.Scale(ctx, manifest, replicas); err != nil {
		r.logger.Error(err, "Scale failed", "workload", name, "phase", phase)
		return IterationResult{
			Iteration: iteration, Scenario: ScenarioScaling, Phase: phase,
			Mode: modeNoProvider, Error: err.Error(),
		}
	}
	outcome, err := r.watcher.AwaitReady(ctx, r.cfg.Namespace, name, r.cfg.Timeout(), int(replicas))
	r.flagColdProviders(outcome)
	result := newIterationResult(outcome, iteration, ScenarioScaling, phase)
	if err != nil {
		r.logger.V(1).Info("Scaling phase did not reach readiness", "workload", name, "phase", phase, "error", err)
		result.Mode = failureMode(err)
	}
	return result
}

// RunNewVariantSweep runs the standard scenario once per entry of the
// configured model list, accumulating all results. A missing or malformed
// model list fails the whole sweep.
func (r *Runner) RunNewVariantSweep(ctx context.Context) (ScenarioResultSet, error) {
	models, err := LoadModelList(r.cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	r.logger.V(1).Info("Sweeping model variants", "count", len(models))

	var all ScenarioResultSet
	for _, model := range models {
		r.logger.V(1).Info("Running variant", "model", model.String())
		template, err := RenderModelTemplate(r.cfg.TemplateFile, r.cfg.Image, r.cfg.Tag, model.Registry, model.Repo)
		if err != nil {
			return all, err
		}
		r.intermediateFiles = append(r.intermediateFiles, template)
		scenario := "variant-" + model.Registry + "-" + model.Repo
		results, err := r.RunStandardScenario(ctx, scenario, template, "model-request")
		if err != nil {
			return all, err
		}
		all = append(all, results...)
		r.logger.Info("Variant finished", "model", model.String(), "summary", "\n"+Summarize(results).String())
	}
	r.results = all
	return all, nil
}

// flagColdProviders remembers cold-started provider pods so cleanup can
// delete them before the next iteration; a leftover warm pod would turn that
// iteration's cold start into a spurious hit.
func (r *Runner) flagColdProviders(outcome ReadinessOutcome) {
	for _, provider := range outcome.Providers {
		if provider.Mode == ModeColdStart && provider.Name != "" {
			r.logger.V(2).Info("Flagging cold-started provider pod for cleanup", "name", provider.Name)
			r.coldProviders = append(r.coldProviders, provider.Name)
		}
	}
}

// cleanupIteration deletes the iteration's resources and any flagged
// cold-started provider pods. It runs regardless of the phase outcome.
func (r *Runner) cleanupIteration(ctx context.Context, manifest string) {
	if !r.cfg.CleanupEnabled {
		return
	}
	if err := r.ops.Delete(ctx, manifest); err != nil {
		r.logger.Error(err, "Failed to delete manifest resources", "manifest", manifest)
	}
	for _, name := range r.coldProviders {
		if err := r.ops.DeletePod(ctx, r.cfg.Namespace, name); err != nil {
			r.logger.Error(err, "Failed to delete cold-started provider pod", "name", name)
		}
	}
	r.coldProviders = nil
}

func (r *Runner) cleanupIntermediateFiles() {
	for _, path := range r.intermediateFiles {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.V(1).Info("Failed to remove intermediate file", "path", path, "error", err)
		}
	}
	r.intermediateFiles = nil
}

func failureMode(err error) string {
	if errors.Is(err, ErrAwaitTimeout) {
		return modeTimeout
	}
	return modeNoProvider
}
