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
	"time"

	"k8s.io/apimachinery/pkg/watch"
)

// ClusterOps is the capability the benchmark uses to touch a cluster.
// Exactly one implementation is selected at startup: kind-backed,
// remote-backed, or simulated. Implementations hold no mutable state shared
// between callers beyond what the cluster itself holds.
type ClusterOps interface {
	// Apply creates the resources described by the manifest file.
	Apply(ctx context.Context, manifestPath string) error

	// Delete removes the resources described by the manifest file.
	// Deleting already-absent resources is not an error.
	Delete(ctx context.Context, manifestPath string) error

	// Scale sets the replica count of the workload described by the
	// manifest file.
	Scale(ctx context.Context, manifestPath string, replicas int32) error

	// DeletePod deletes one Pod.
	DeletePod(ctx context.Context, namespace, name string) error

	// ListPods returns an observation of every Pod in the namespace.
	ListPods(ctx context.Context, namespace string) ([]PodObservation, error)

	// WatchPods opens one watch of the namespace's Pods. The watch stays
	// open at most perOpenTimeout; after that the event channel closes and
	// the caller is expected to open a new watch.
	WatchPods(ctx context.Context, namespace string, perOpenTimeout time.Duration) (PodWatch, error)
}

// PodEvent is one pod lifecycle event from a watch.
type PodEvent struct {
	Type watch.EventType
	Pod  PodObservation
}

// PodWatch is one open watch of a namespace's Pods. The event channel closes
// when the watch ends, for whatever reason.
type PodWatch interface {
	Events() <-chan PodEvent
	Stop()
}
