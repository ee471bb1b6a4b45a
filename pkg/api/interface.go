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

package api

// In the "dual Pod" technique, clients/users create a server-requesting Pod
// that describes one desired inference server Pod but when it runs is actually
// just a stub. A dual-pod controller manages
// server-providing Pods that actually run the inference servers.

// This package declares the parts of the dual-pod controller's contract that
// the benchmark reads. The benchmark never writes any of these; it only
// interprets them on Pods observed through the watch stream.

// DualLabelName is the name of the label that the controller sets on a
// server-providing Pod once it is bound. The value of the label is the name
// of the server-requesting Pod that the provider is bound to. A
// server-providing Pod without this label is not (yet) bound to any
// requester.
const DualLabelName = "dual-pod.llm-d.ai/dual"

// PodRoleAnnotationName is the name of the annotation that identifies which
// half of a dual a Pod is.
const PodRoleAnnotationName = "dual-pod.llm-d.ai/role"

// PodRoleAnnotationValueRequesting marks a server-requesting Pod.
const PodRoleAnnotationValueRequesting = "server-requesting"

// PodRoleAnnotationValueRunning marks a server-providing (server-running) Pod.
const PodRoleAnnotationValueRunning = "server-running"

// AcceleratorsAnnotationName is the name of the annotation on a
// server-providing Pod whose value describes the accelerators associated
// with the Pod. The value is a JSON array of strings, each identifying one
// accelerator in a way that is appropriate for the software used to access
// the accelerators.
const AcceleratorsAnnotationName = "dual-pod.llm-d.ai/accelerators"
