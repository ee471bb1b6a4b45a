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
	"strings"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/klog/v2"

	"github.com/llm-d-incubation/llm-d-dual-pods-benchmark/pkg/api"
)

// Simulated availability modes. The delays are seconds of simulated
// readiness time, taken from prior measurements of the real system.
const (
	SimModeColdStart = "Cold Start"
	SimModeHit       = "Hit"

	// SimModeNone makes a requester never become ready, so the watcher
	// runs into its timeout.
	SimModeNone = "none"
)

// DefaultSimDelays is the per-mode simulated readiness time in seconds.
var DefaultSimDelays = map[string]float64{
	SimModeColdStart: 400,
	SimModeHit:       6,
}

// SimOps implements ClusterOps without a cluster. Apply and Scale record the
// desired state of the workload named by the manifest; WatchPods synthesizes
// the pod lifecycle events the dual-pod controller would cause, after the
// configured per-mode delay compressed by Compression so that simulated runs
// finish quickly.
type SimOps struct {
	logger klog.Logger

	// Delays maps an availability mode to simulated readiness seconds.
	Delays map[string]float64

	// Compression scales simulated seconds down to wall-clock seconds.
	Compression float64

	// Modes is the scripted sequence of availability modes, consumed one
	// entry per new requester pod, cyclically.
	Modes []string

	mu       sync.Mutex
	workload string
	desired  int
	ready    []PodObservation
	assigned map[string]string // workload/index -> mode
	modeNext int
	warmSeq  int
}

var _ ClusterOps = &SimOps{}

// NewSimOps returns simulated ops with the default delays, a 1000x time
// compression, and a cold-then-hit mode script.
func NewSimOps(logger klog.Logger) *SimOps {
	return &SimOps{
		logger:      logger.WithName("sim-ops"),
		Delays:      DefaultSimDelays,
		Compression: 0.001,
		Modes:       []string{SimModeColdStart, SimModeHit},
		assigned:    map[string]string{},
	}
}

func (s *SimOps) Apply(ctx context.Context, manifestPath string) error {
	obj, err := decodeWorkloadManifest(manifestPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workload = obj.Metadata.Name
	s.desired = 1
	if obj.Spec.Replicas != nil {
		s.desired = int(*obj.Spec.Replicas)
	}
	s.logger.V(1).Info("[SIMULATED] Applied manifest", "path", manifestPath, "workload", s.workload, "replicas", s.desired)
	return nil
}

func (s *SimOps) Delete(ctx context.Context, manifestPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = nil
	s.desired = 0
	s.logger.V(1).Info("[SIMULATED] Deleted manifest resources", "path", manifestPath)
	return nil
}

func (s *SimOps) Scale(ctx context.Context, manifestPath string, replicas int32) error {
	obj, err := decodeWorkloadManifest(manifestPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workload = obj.Metadata.Name
	s.desired = int(replicas)
	// Scale-down takes effect immediately: excess requester pods vanish.
	requesters := 0
	kept := s.ready[:0]
	for _, pod := range s.ready {
		if s.isRequester(pod.Name) {
			if requesters >= s.desired {
				continue
			}
			requesters++
		}
		kept = append(kept, pod)
	}
	s.ready = kept
	s.logger.V(1).Info("[SIMULATED] Scaled workload", "workload", s.workload, "replicas", replicas)
	return nil
}

func (s *SimOps) DeletePod(ctx context.Context, namespace, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, pod := range s.ready {
		if pod.Name == name {
			s.ready = append(s.ready[:i], s.ready[i+1:]...)
			break
		}
	}
	s.logger.V(1).Info("[SIMULATED] Deleted pod", "namespace", namespace, "name", name)
	return nil
}

func (s *SimOps) ListPods(ctx context.Context, namespace string) ([]PodObservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PodObservation, len(s.ready))
	copy(out, s.ready)
	return out, nil
}

func (s *SimOps) WatchPods(ctx context.Context, namespace string, perOpenTimeout time.Duration) (PodWatch, error) {
	s.mu.Lock()
	workload := s.workload
	requesters := 0
	for _, pod := range s.ready {
		if s.isRequester(pod.Name) {
			requesters++
		}
	}
	type pending struct {
		index int
		mode  string
	}
	var plan []pending
	for idx := requesters; idx < s.desired; idx++ {
		plan = append(plan, pending{index: idx, mode: s.modeFor(workload, idx)})
	}
	s.mu.Unlock()

	sw := &simWatch{
		events: make(chan PodEvent, 2*len(plan)+1),
		stop:   make(chan struct{}),
	}
	go func() {
		defer close(sw.events)
		for _, p := range plan {
			if p.mode == SimModeNone {
				continue
			}
			delay := time.Duration(s.Delays[p.mode] * s.Compression * float64(time.Second))
			select {
			case <-time.After(delay):
			case <-sw.stop:
				return
			}
			provider, requester := s.materialize(namespace, workload, p.index, p.mode)
			for _, ev := range []PodEvent{provider, requester} {
				select {
				case sw.events <- ev:
				case <-sw.stop:
					return
				}
			}
		}
		// Hold the watch open for its nominal duration so an exhausted
		// plan looks like a quiet stream, not a dropped connection.
		select {
		case <-time.After(perOpenTimeout):
		case <-sw.stop:
		}
	}()
	return sw, nil
}

// modeFor assigns an availability mode to a requester index once, so that
// watch reopens replay the same plan. Callers hold s.mu.
func (s *SimOps) modeFor(workload string, index int) string {
	key := fmt.Sprintf("%s/%d", workload, index)
	if mode, ok := s.assigned[key]; ok {
		return mode
	}
	mode := s.Modes[s.modeNext%len(s.Modes)]
	s.modeNext++
	s.assigned[key] = mode
	return mode
}

// materialize records and returns the provider-then-requester ready events
// for one new replica.
func (s *SimOps) materialize(namespace, workload string, index int, mode string) (PodEvent, PodEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	requesterName := fmt.Sprintf("%s-%d", workload, index)
	providerName := fmt.Sprintf("%s-server-%d", workload, index)
	bound := requesterName
	if mode == SimModeHit {
		providerName = fmt.Sprintf("warm-pool-server-%d", s.warmSeq)
		bound = fmt.Sprintf("warm-pool-requester-%d", s.warmSeq)
		s.warmSeq++
	}
	provider := PodObservation{
		Name:        providerName,
		Namespace:   namespace,
		Phase:       corev1.PodRunning,
		Ready:       true,
		NodeName:    "sim-node-0",
		Labels:      map[string]string{api.DualLabelName: bound},
		Annotations: map[string]string{api.AcceleratorsAnnotationName: `["GPU-sim-0"]`},
	}
	requester := PodObservation{
		Name:      requesterName,
		Namespace: namespace,
		Phase:     corev1.PodRunning,
		Ready:     true,
		NodeName:  "sim-node-0",
	}
	s.ready = append(s.ready, provider, requester)
	return PodEvent{Type: watch.Added, Pod: provider}, PodEvent{Type: watch.Added, Pod: requester}
}

func (s *SimOps) isRequester(name string) bool {
	return s.workload != "" && strings.Contains(name, s.workload) && !strings.Contains(name, "-server")
}

type simWatch struct {
	events   chan PodEvent
	stop     chan struct{}
	stopOnce sync.Once
}

func (w *simWatch) Events() <-chan PodEvent { return w.events }

func (w *simWatch) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}
