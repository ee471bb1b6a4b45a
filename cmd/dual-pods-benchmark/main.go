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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/llm-d-dual-pods-benchmark/pkg/benchmark"
)

func main() {
	var configPath, kubeconfigPath string

	klog.InitFlags(flag.CommandLine)
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.CommandLine.StringVar(&configPath, "config", configPath, "path to a benchmark config file")
	pflag.CommandLine.StringVar(&kubeconfigPath, "kubeconfig", kubeconfigPath, "path to the kubeconfig file to use")

	// Flag overrides on top of the config file. Registered against a
	// default config so --help shows the effective defaults.
	overrides := benchmark.DefaultConfig()
	pflag.CommandLine.StringVar(&overrides.OpMode, "op-mode", overrides.OpMode, "operational mode: kind, remote, or simulated")
	pflag.CommandLine.StringVarP(&overrides.Namespace, "namespace", "n", overrides.Namespace, "namespace to run the benchmark in")
	pflag.CommandLine.StringVar(&overrides.TemplateFile, "yaml", overrides.TemplateFile, "path to the server-requesting manifest template")
	pflag.CommandLine.StringVar(&overrides.Label, "label", overrides.Label, "label selector of the server-requesting pods")
	pflag.CommandLine.StringVar(&overrides.Image, "image", overrides.Image, "repository of the requester image")
	pflag.CommandLine.StringVar(&overrides.Tag, "tag", overrides.Tag, "version tag of the requester image")
	pflag.CommandLine.StringVar(&overrides.Scenario, "scenario", overrides.Scenario, "scenario to run: standard, scaling, or new_variant")
	pflag.CommandLine.IntVar(&overrides.Iterations, "iterations", overrides.Iterations, "number of iterations")
	pflag.CommandLine.IntVar(&overrides.TimeoutSeconds, "timeout", overrides.TimeoutSeconds, "per-phase readiness timeout in seconds")
	pflag.CommandLine.IntVar(&overrides.MaxReplicas, "max-replicas", overrides.MaxReplicas, "replica target of the scaling scenario")
	pflag.CommandLine.BoolVar(&overrides.CleanupEnabled, "cleanup", overrides.CleanupEnabled, "delete resources after each iteration")
	pflag.CommandLine.StringVar(&overrides.ModelPath, "model-path", overrides.ModelPath, "path to the model list for the new_variant scenario")
	pflag.CommandLine.StringVar(&overrides.ClusterName, "cluster-name", overrides.ClusterName, "name of the kind cluster")
	pflag.Parse()

	ctx := context.Background()
	logger := klog.FromContext(ctx)

	pflag.CommandLine.VisitAll(func(f *pflag.Flag) {
		logger.V(1).Info("Flag", "name", f.Name, "value", f.Value.String())
	})

	cfg, err := benchmark.LoadConfig(configPath)
	if err != nil {
		klog.Fatal(err)
	}
	applyFlagOverrides(cfg, overrides)
	if err := cfg.Validate(); err != nil {
		klog.Fatal(err)
	}

	ops, err := buildOps(ctx, logger, cfg, kubeconfigPath)
	if err != nil {
		klog.Fatal(err)
	}

	runner := benchmark.NewRunner(logger, ops, cfg)
	results, err := runScenario(ctx, runner, cfg)
	if err != nil {
		klog.Fatal(err)
	}

	logger.Info("Benchmark finished", "scenario", cfg.Scenario, "summary", "\n"+benchmark.Summarize(results).String())

	if kindOps, ok := ops.(*benchmark.KindOps); ok && cfg.CleanupEnabled {
		if err := kindOps.CleanupCluster(ctx); err != nil {
			logger.Error(err, "Failed to delete kind cluster")
		}
	}
}

func runScenario(ctx context.Context, runner *benchmark.Runner, cfg *benchmark.Config) (benchmark.ScenarioResultSet, error) {
	switch cfg.Scenario {
	case benchmark.ScenarioScaling:
		return runner.RunScalingScenario(ctx)
	case benchmark.ScenarioNewVariant:
		return runner.RunNewVariantSweep(ctx)
	default:
		return runner.RunStandardScenario(ctx, cfg.Scenario, "", "")
	}
}

// applyFlagOverrides copies every flag the user actually set onto the
// loaded config.
func applyFlagOverrides(cfg, overrides *benchmark.Config) {
	set := map[string]func(){
		"op-mode":      func() { cfg.OpMode = overrides.OpMode },
		"namespace":    func() { cfg.Namespace = overrides.Namespace },
		"yaml":         func() { cfg.TemplateFile = overrides.TemplateFile },
		"label":        func() { cfg.Label = overrides.Label },
		"image":        func() { cfg.Image = overrides.Image },
		"tag":          func() { cfg.Tag = overrides.Tag },
		"scenario":     func() { cfg.Scenario = overrides.Scenario },
		"iterations":   func() { cfg.Iterations = overrides.Iterations },
		"timeout":      func() { cfg.TimeoutSeconds = overrides.TimeoutSeconds },
		"max-replicas": func() { cfg.MaxReplicas = overrides.MaxReplicas },
		"cleanup":      func() { cfg.CleanupEnabled = overrides.CleanupEnabled },
		"model-path":   func() { cfg.ModelPath = overrides.ModelPath },
		"cluster-name": func() { cfg.ClusterName = overrides.ClusterName },
	}
	pflag.CommandLine.Visit(func(f *pflag.Flag) {
		if apply, ok := set[f.Name]; ok {
			apply()
		}
	})
}

func buildOps(ctx context.Context, logger klog.Logger, cfg *benchmark.Config, kubeconfigPath string) (benchmark.ClusterOps, error) {
	if cfg.OpMode == benchmark.OpModeSimulated {
		sim := benchmark.NewSimOps(logger)
		if len(cfg.SimDelays) > 0 {
			sim.Delays = cfg.SimDelays
		}
		if cfg.SimCompression > 0 {
			sim.Compression = cfg.SimCompression
		}
		return sim, nil
	}

	restConfig, err := getRestConfig(ctx, kubeconfigPath)
	if err != nil {
		return nil, err
	}
	if len(restConfig.UserAgent) == 0 {
		restConfig.UserAgent = "dual-pods-benchmark"
	} else {
		restConfig.UserAgent += "/dual-pods-benchmark"
	}
	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("build clientset: %w", err)
	}
	if cfg.OpMode == benchmark.OpModeKind {
		return benchmark.NewKindOps(logger, client, cfg.Namespace, cfg.ClusterName), nil
	}
	return benchmark.NewRemoteOps(logger, client, cfg.Namespace), nil
}

func getRestConfig(ctx context.Context, explicitPath string) (*rest.Config, error) {
	logger := klog.FromContext(ctx)
	if explicitPath == "" {
		config, err := rest.InClusterConfig()
		if err == nil {
			logger.V(1).Info("Successfully loaded in-cluster config")
			return config, nil
		}
		logger.V(1).Info("In-cluster config not found, falling back to local kubeconfig")
	}
	kubeconfigPath := explicitPath
	if kubeconfigPath == "" {
		kubeconfigPath = os.Getenv("KUBECONFIG")
	}
	if kubeconfigPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		kubeconfigPath = filepath.Join(home, ".kube", "config")
	}
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load kubeconfig from %s: %w", kubeconfigPath, err)
	}
	logger.V(1).Info("Successfully loaded kubeconfig", "path", kubeconfigPath)
	return config, nil
}
