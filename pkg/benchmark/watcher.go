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
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/klog/v2"
)

// ErrAwaitTimeout reports that the expected number of pods did not become
// ready within the phase's timeout budget.
var ErrAwaitTimeout = errors.New("timed out waiting for pods to become ready")

// DefaultRoleSuffix distinguishes server-providing pod names from
// server-requesting pod names.
const DefaultRoleSuffix = "-server"

// watchState drives the event consumption loop of AwaitReady.
type watchState int

const (
	// watchReopening means no watch is open; open one, backing off after
	// a failed open.
	watchReopening watchState = iota
	// watchListening means events are being consumed from an open watch.
	watchListening
	// watchDone means the expected cardinality was reached.
	watchDone
	// watchTimedOut means the timeout budget ran out first.
	watchTimedOut
)

// ReadinessWatcher waits for the pods of one workload to become ready and
// classifies each newly-ready pod into a role and, for providers, an
// availability mode. It holds no state across invocations.
type ReadinessWatcher struct {
	Logger klog.Logger
	Ops    ClusterOps

	// RoleSuffix marks server-providing pod names. A pod whose name
	// contains the workload prefix but not this suffix is a requester.
	RoleSuffix string

	// PerOpenTimeout bounds one watch open, so a silently-dropped
	// connection is noticed well before the overall timeout.
	PerOpenTimeout time.Duration

	// ReopenBackoff is the pause before reopening a broken watch.
	ReopenBackoff time.Duration
}

// NewReadinessWatcher returns a watcher with the default role suffix, a 30s
// per-open watch duration, and a 2s reopen backoff.
func NewReadinessWatcher(logger klog.Logger, ops ClusterOps) *ReadinessWatcher {
	return &ReadinessWatcher{
		Logger:         logger.WithName("readiness-watcher"),
		Ops:            ops,
		RoleSuffix:     DefaultRoleSuffix,
		PerOpenTimeout: 30 * time.Second,
		ReopenBackoff:  2 * time.Second,
	}
}

// awaitTracking is the per-invocation state of one AwaitReady call.
type awaitTracking struct {
	prefix   string
	suffix   string
	start    time.Time
	expected int

	// initiallyReady holds prefix-matching pods that were already ready at
	// baseline; they count toward cardinality but get no timing.
	initiallyReady sets.Set[string]
	// seen holds pods whose first non-baseline ready transition has been
	// consumed, so repeated ready events are idempotent.
	seen sets.Set[string]
	// readyRequesters counts requester-role pods toward the cardinality
	// target, baseline included.
	readyRequesters int
}

// AwaitReady blocks until expectedReady requester pods whose names contain
// namePrefix are ready, or until timeout. The caller has already issued the
// mutation that creates or transitions the pods being watched. Provider pods
// (names containing the role suffix) are classified against the binding
// label as they become ready; they do not count toward the cardinality
// target because in the dual-pod pattern a requester only turns ready after
// its provider is serving.
//
// The returned outcome always describes what was observed; the error, also
// recorded in the outcome, is non-nil iff the outcome did not succeed.
func (w *ReadinessWatcher) AwaitReady(ctx context.Context, namespace, namePrefix string, timeout time.Duration, expectedReady int) (ReadinessOutcome, error) {
	outcome := ReadinessOutcome{}
	if expectedReady < 1 {
		outcome.Err = fmt.Errorf("expectedReady must be at least 1, got %d", expectedReady)
		return outcome, outcome.Err
	}
	if timeout <= 0 {
		outcome.Err = fmt.Errorf("timeout must be positive, got %s", timeout)
		return outcome, outcome.Err
	}
	tracking := &awaitTracking{
		prefix:         namePrefix,
		suffix:         w.RoleSuffix,
		start:          time.Now(),
		expected:       expectedReady,
		initiallyReady: sets.New[string](),
		seen:           sets.New[string](),
	}

	// Baseline snapshot: pods of this workload that are already ready are
	// not newly-caused transitions, but they do count toward the target so
	// that a partially-ready workload does not make us wait forever.
	baseline, err := w.Ops.ListPods(ctx, namespace)
	if err != nil {
		outcome.Err = fmt.Errorf("baseline pod list in %s: %w", namespace, err)
		return outcome, outcome.Err
	}
	for _, pod := range baseline {
		if !pod.Ready || !strings.Contains(pod.Name, namePrefix) {
			continue
		}
		tracking.initiallyReady.Insert(pod.Name)
		if !strings.Contains(pod.Name, w.RoleSuffix) {
			tracking.readyRequesters++
		}
	}
	w.Logger.V(2).Info("Baseline snapshot taken",
		"namespace", namespace, "prefix", namePrefix,
		"initiallyReady", tracking.initiallyReady.Len(), "readyRequesters", tracking.readyRequesters,
		"expected", expectedReady)
	if tracking.readyRequesters >= expectedReady {
		outcome.Succeeded = true
		return outcome, nil
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	var stream PodWatch
	defer func() {
		if stream != nil {
			stream.Stop()
		}
	}()

	state := watchReopening
	firstOpen := true
	for {
		switch state {
		case watchReopening:
			if stream != nil {
				stream.Stop()
				stream = nil
			}
			// Back off before every reopen but the first, so a stream
			// that keeps dying right away does not retry hot.
			if !firstOpen {
				select {
				case <-time.After(w.ReopenBackoff):
				case <-deadline.C:
					state = watchTimedOut
					continue
				case <-ctx.Done():
					outcome.Err = ctx.Err()
					return outcome, outcome.Err
				}
			}
			firstOpen = false
			opened, err := w.Ops.WatchPods(ctx, namespace, w.PerOpenTimeout)
			if err != nil {
				w.Logger.V(1).Info("Failed to open pod watch, will retry", "namespace", namespace, "error", err)
				continue
			}
			stream = opened
			state = watchListening

		case watchListening:
			select {
			case ev, ok := <-stream.Events():
				if !ok {
					w.Logger.V(3).Info("Pod watch ended, reopening", "namespace", namespace, "elapsed", time.Since(tracking.start))
					state = watchReopening
					continue
				}
				if w.observe(tracking, &outcome, ev) {
					state = watchDone
				}
			case <-deadline.C:
				state = watchTimedOut
			case <-ctx.Done():
				outcome.Err = ctx.Err()
				return outcome, outcome.Err
			}

		case watchDone:
			outcome.Succeeded = true
			return outcome, nil

		case watchTimedOut:
			outcome.Err = fmt.Errorf("%w: %d of %d requester pods for %q ready within %s",
				ErrAwaitTimeout, tracking.readyRequesters, expectedReady, namePrefix, timeout)
			return outcome, outcome.Err
		}
	}
}

// observe consumes one watch event and reports whether the cardinality
// target has been reached.
func (w *ReadinessWatcher) observe(tracking *awaitTracking, outcome *ReadinessOutcome, ev PodEvent) bool {
	if ev.Type == watch.Deleted || ev.Type == watch.Error {
		return false
	}
	pod := ev.Pod
	if !pod.Ready {
		return false
	}
	if tracking.initiallyReady.Has(pod.Name) || tracking.seen.Has(pod.Name) {
		return false
	}

	if strings.Contains(pod.Name, tracking.suffix) {
		// Provider role. An unbound provider is not classifiable yet;
		// leave it unseen so the binding event classifies it later.
		bound := pod.BoundRequester()
		if bound == "" {
			w.Logger.V(4).Info("Provider pod ready but unbound, not classifying", "name", pod.Name)
			return false
		}
		mode := ModeHit
		if strings.Contains(bound, tracking.prefix) {
			mode = ModeColdStart
		}
		offset := time.Since(tracking.start)
		tracking.seen.Insert(pod.Name)
		outcome.Providers = append(outcome.Providers, ProviderReadiness{
			Name:            pod.Name,
			Mode:            mode,
			Offset:          offset,
			NodeName:        pod.NodeName,
			AcceleratorInfo: pod.AcceleratorInfo(),
		})
		outcome.ProviderMode = mode
		outcome.ProviderPodName = pod.Name
		outcome.NodeName = pod.NodeName
		outcome.AcceleratorInfo = pod.AcceleratorInfo()
		outcome.ProviderReadyOffset = &offset
		w.Logger.V(2).Info("Provider pod ready", "name", pod.Name, "mode", mode.String(), "boundTo", bound, "offset", offset)
		return false
	}

	if strings.Contains(pod.Name, tracking.prefix) {
		// Requester role.
		offset := time.Since(tracking.start)
		if outcome.RequesterReadyOffset == nil {
			outcome.RequesterReadyOffset = &offset
		}
		tracking.seen.Insert(pod.Name)
		tracking.readyRequesters++
		w.Logger.V(2).Info("Requester pod ready", "name", pod.Name, "offset", offset,
			"ready", tracking.readyRequesters, "expected", tracking.expected)
		return tracking.readyRequesters >= tracking.expected
	}

	return false
}
