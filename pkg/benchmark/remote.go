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
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
	"sigs.k8s.io/yaml"
)

// RemoteOps implements ClusterOps against a live cluster. Apply and Delete
// shell out to kubectl, which already knows how to handle multi-document
// manifests; everything else goes through the typed clientset.
type RemoteOps struct {
	logger    klog.Logger
	client    kubernetes.Interface
	namespace string
	kubectl   string
}

var _ ClusterOps = &RemoteOps{}

// NewRemoteOps returns ops against the given clientset. The namespace is
// used for workloads whose manifest does not name one.
func NewRemoteOps(logger klog.Logger, client kubernetes.Interface, namespace string) *RemoteOps {
	return &RemoteOps{
		logger:    logger.WithName("remote-ops"),
		client:    client,
		namespace: namespace,
		kubectl:   "kubectl",
	}
}

func (r *RemoteOps) Apply(ctx context.Context, manifestPath string) error {
	r.logger.V(2).Info("Applying manifest", "path", manifestPath)
	out, err := exec.CommandContext(ctx, r.kubectl, "apply", "-f", manifestPath).CombinedOutput()
	if err != nil {
		return fmt.Errorf("kubectl apply -f %s: %w: %s", manifestPath, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (r *RemoteOps) Delete(ctx context.Context, manifestPath string) error {
	r.logger.V(2).Info("Deleting manifest resources", "path", manifestPath)
	out, err := exec.CommandContext(ctx, r.kubectl, "delete", "-f", manifestPath, "--ignore-not-found=true").CombinedOutput()
	if err != nil {
		return fmt.Errorf("kubectl delete -f %s: %w: %s", manifestPath, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (r *RemoteOps) Scale(ctx context.Context, manifestPath string, replicas int32) error {
	obj, err := decodeWorkloadManifest(manifestPath)
	if err != nil {
		return err
	}
	ns := obj.Metadata.Namespace
	if ns == "" {
		ns = r.namespace
	}
	r.logger.V(2).Info("Scaling workload", "name", obj.Metadata.Name, "namespace", ns, "replicas", replicas)
	scale, err := r.client.AppsV1().ReplicaSets(ns).GetScale(ctx, obj.Metadata.Name, metav1.GetOptions{})
	if err != nil {
		return fmt.Errorf("get scale of ReplicaSet %s/%s: %w", ns, obj.Metadata.Name, err)
	}
	scale.Spec.Replicas = replicas
	_, err = r.client.AppsV1().ReplicaSets(ns).UpdateScale(ctx, obj.Metadata.Name, scale, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("scale ReplicaSet %s/%s to %d: %w", ns, obj.Metadata.Name, replicas, err)
	}
	return nil
}

func (r *RemoteOps) DeletePod(ctx context.Context, namespace, name string) error {
	err := r.client.CoreV1().Pods(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("delete Pod %s/%s: %w", namespace, name, err)
	}
	return nil
}

func (r *RemoteOps) ListPods(ctx context.Context, namespace string) ([]PodObservation, error) {
	list, err := r.client.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list Pods in %s: %w", namespace, err)
	}
	obs := make([]PodObservation, 0, len(list.Items))
	for i := range list.Items {
		obs = append(obs, NewPodObservation(&list.Items[i]))
	}
	return obs, nil
}

func (r *RemoteOps) WatchPods(ctx context.Context, namespace string, perOpenTimeout time.Duration) (PodWatch, error) {
	seconds := int64(perOpenTimeout.Seconds())
	inner, err := r.client.CoreV1().Pods(namespace).Watch(ctx, metav1.ListOptions{TimeoutSeconds: &seconds})
	if err != nil {
		return nil, fmt.Errorf("watch Pods in %s: %w", namespace, err)
	}
	pw := &remoteWatch{
		events: make(chan PodEvent, 32),
		stop:   make(chan struct{}),
		inner:  inner,
	}
	go pw.pump()
	return pw, nil
}

type remoteWatch struct {
	events   chan PodEvent
	stop     chan struct{}
	stopOnce sync.Once
	inner    watch.Interface
}

func (w *remoteWatch) pump() {
	defer close(w.events)
	for ev := range w.inner.ResultChan() {
		pod, ok := ev.Object.(*corev1.Pod)
		if !ok {
			continue
		}
		select {
		case w.events <- PodEvent{Type: ev.Type, Pod: NewPodObservation(pod)}:
		case <-w.stop:
			return
		}
	}
}

func (w *remoteWatch) Events() <-chan PodEvent { return w.events }

func (w *remoteWatch) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.inner.Stop()
	})
}

// workloadManifest is the subset of a workload manifest that Scale needs.
type workloadManifest struct {
	Kind     string `json:"kind"`
	Metadata struct {
		Name      string `json:"name"`
		Namespace string `json:"namespace"`
	} `json:"metadata"`
	Spec struct {
		Replicas *int32 `json:"replicas"`
	} `json:"spec"`
}

// decodeWorkloadManifest finds the ReplicaSet document in a (possibly
// multi-document) manifest file.
func decodeWorkloadManifest(manifestPath string) (*workloadManifest, error) {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}
	for _, doc := range strings.Split(string(raw), "\n---") {
		if strings.TrimSpace(doc) == "" {
			continue
		}
		var obj workloadManifest
		if err := yaml.Unmarshal([]byte(doc), &obj); err != nil {
			return nil, fmt.Errorf("decode manifest %s: %w", manifestPath, err)
		}
		if obj.Kind == "ReplicaSet" {
			return &obj, nil
		}
	}
	return nil, fmt.Errorf("no ReplicaSet found in manifest %s", manifestPath)
}
