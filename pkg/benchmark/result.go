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

import "time"

// ProviderMode classifies how a phase's server-providing pod was obtained.
type ProviderMode int

const (
	// ModeUnknown means no bound provider pod was observed ready.
	ModeUnknown ProviderMode = iota
	// ModeColdStart means the provider was freshly created for this
	// phase's requester.
	ModeColdStart
	// ModeHit means an already-running provider was reused.
	ModeHit
)

func (m ProviderMode) String() string {
	switch m {
	case ModeColdStart:
		return "Cold Start"
	case ModeHit:
		return "Hit"
	default:
		return "Unknown"
	}
}

// ProviderReadiness records one server-providing pod that became ready
// during a watched phase.
type ProviderReadiness struct {
	Name            string
	Mode            ProviderMode
	Offset          time.Duration
	NodeName        string
	AcceleratorInfo string
}

// ReadinessOutcome is what one AwaitReady invocation produced.
type ReadinessOutcome struct {
	// RequesterReadyOffset is the time from phase start to the first
	// newly-ready requester pod; nil if none was observed.
	RequesterReadyOffset *time.Duration

	// ProviderReadyOffset is the time from phase start to the most recent
	// bound provider pod's readiness; nil if none was observed.
	ProviderReadyOffset *time.Duration

	// ProviderMode, ProviderPodName, NodeName and AcceleratorInfo describe
	// the most recently observed bound provider pod.
	ProviderMode    ProviderMode
	ProviderPodName string
	NodeName        string
	AcceleratorInfo string

	// Providers lists every bound provider pod observed ready, in order.
	Providers []ProviderReadiness

	// Succeeded is true iff the expected number of requester pods was
	// ready before the timeout.
	Succeeded bool

	// Err carries the cause when Succeeded is false.
	Err error
}

// IterationResult wraps one phase's outcome with scenario bookkeeping.
type IterationResult struct {
	Iteration        int
	Scenario         string
	Phase            string
	RequesterSeconds *float64
	ProviderSeconds  *float64
	Mode             string
	Succeeded        bool
	Error            string
	Providers        []ProviderReadiness
}

// ScenarioResultSet is the ordered sequence of results of one scenario run.
type ScenarioResultSet []IterationResult

// newIterationResult converts an outcome into a result row.
func newIterationResult(outcome ReadinessOutcome, iteration int, scenario, phase string) IterationResult {
	res := IterationResult{
		Iteration: iteration,
		Scenario:  scenario,
		Phase:     phase,
		Mode:      outcome.ProviderMode.String(),
		Succeeded: outcome.Succeeded,
		Providers: outcome.Providers,
	}
	if outcome.RequesterReadyOffset != nil {
		res.RequesterSeconds = secondsPtr(*outcome.RequesterReadyOffset)
	}
	if outcome.ProviderReadyOffset != nil {
		res.ProviderSeconds = secondsPtr(*outcome.ProviderReadyOffset)
	}
	if outcome.Err != nil {
		res.Error = outcome.Err.Error()
	}
	return res
}

func secondsPtr(d time.Duration) *float64 {
	s := d.Seconds()
	return &s
}
