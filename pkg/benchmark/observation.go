package benchmark

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/llm-d-incubation/llm-d-dual-pods-benchmark/pkg/api"
)

// PodObservation is the benchmark's view of one Pod at one moment. It is
// constructed per watch event or list entry, consumed by the readiness
// watcher, and discarded.
type PodObservation struct {
	Name        string
	Namespace   string
	Phase       corev1.PodPhase
	Ready       bool
	NodeName    string
	Labels      map[string]string
	Annotations map[string]string
}

// NewPodObservation projects a Pod into a PodObservation.
func NewPodObservation(pod *corev1.Pod) PodObservation {
	return PodObservation{
		Name:        pod.Name,
		Namespace:   pod.Namespace,
		Phase:       pod.Status.Phase,
		Ready:       PodIsReady(pod),
		NodeName:    pod.Spec.NodeName,
		Labels:      pod.Labels,
		Annotations: pod.Annotations,
	}
}

// PodIsReady reports whether the Pod's Ready condition is true.
func PodIsReady(pod *corev1.Pod) bool {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// BoundRequester returns the name of the server-requesting Pod that this Pod
// is bound to, or the empty string if the binding label is absent.
func (o PodObservation) BoundRequester() string {
	return o.Labels[api.DualLabelName]
}

// AcceleratorInfo returns the accelerator descriptor annotation, if any.
func (o PodObservation) AcceleratorInfo() string {
	return o.Annotations[api.AcceleratorsAnnotationName]
}
