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
	"fmt"
	"os/exec"
	"strings"

	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
)

// KindOps implements ClusterOps against a local kind cluster. The cluster
// operations are the same as against any other live cluster; what kind adds
// is ownership of the cluster itself, which the benchmark tears down when a
// run finishes.
type KindOps struct {
	*RemoteOps
	logger      klog.Logger
	clusterName string
}

var _ ClusterOps = &KindOps{}

// NewKindOps returns ops against a kind cluster that already exists and is
// reachable through the given clientset.
func NewKindOps(logger klog.Logger, client kubernetes.Interface, namespace, clusterName string) *KindOps {
	return &KindOps{
		RemoteOps:   NewRemoteOps(logger, client, namespace),
		logger:      logger.WithName("kind-ops"),
		clusterName: clusterName,
	}
}

// ClusterName returns the name of the owned kind cluster.
func (k *KindOps) ClusterName() string { return k.clusterName }

// CleanupCluster deletes the kind cluster after the benchmark completes.
func (k *KindOps) CleanupCluster(ctx context.Context) error {
	k.logger.V(1).Info("Deleting kind cluster", "name", k.clusterName)
	out, err := exec.CommandContext(ctx, "kind", "delete", "cluster", "--name", k.clusterName).CombinedOutput()
	if err != nil {
		return fmt.Errorf("kind delete cluster --name %s: %w: %s", k.clusterName, err, strings.TrimSpace(string(out)))
	}
	return nil
}
