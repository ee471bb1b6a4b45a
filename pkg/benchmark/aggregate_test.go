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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	assert.Zero(t, summary.TotalRuns)
	assert.Zero(t, summary.SuccessfulRuns)
	assert.Zero(t, summary.HitPercent)
	assert.Zero(t, summary.Requester.Count)
}

func TestSummarizeMixed(t *testing.T) {
	results := ScenarioResultSet{
		{Iteration: 1, Succeeded: true, Mode: ModeColdStart.String(),
			RequesterSeconds: fptr(10), ProviderSeconds: fptr(8)},
		{Iteration: 2, Succeeded: true, Mode: ModeHit.String(),
			RequesterSeconds: fptr(2), ProviderSeconds: fptr(1)},
		{Iteration: 3, Succeeded: true, Mode: ModeHit.String(),
			RequesterSeconds: fptr(4), ProviderSeconds: fptr(3)},
		{Iteration: 4, Mode: "timeout", Error: "timed out"},
	}
	summary := Summarize(results)

	assert.Equal(t, 4, summary.TotalRuns)
	assert.Equal(t, 3, summary.SuccessfulRuns)
	assert.Equal(t, 1, summary.FailedRuns)
	assert.Equal(t, 2, summary.Hits)
	assert.Equal(t, 66, summary.HitPercent)

	assert.Equal(t, 3, summary.Requester.Count)
	assert.InDelta(t, 2.0, summary.Requester.Min, 1e-9)
	assert.InDelta(t, 10.0, summary.Requester.Max, 1e-9)
	assert.InDelta(t, 16.0/3, summary.Requester.Mean, 1e-9)

	assert.Equal(t, 3, summary.Provider.Count)
	assert.Equal(t, 2, summary.HitProvider.Count)
	assert.InDelta(t, 1.0, summary.HitProvider.Min, 1e-9)
	assert.InDelta(t, 3.0, summary.HitProvider.Max, 1e-9)
	assert.InDelta(t, 2.0, summary.HitProvider.Mean, 1e-9)
}

func TestSummarizeFailedRunTimingsExcluded(t *testing.T) {
	// A failed run's timings, if any leaked in, must not skew the stats.
	results := ScenarioResultSet{
		{Iteration: 1, Succeeded: true, Mode: ModeColdStart.String(), RequesterSeconds: fptr(5)},
		{Iteration: 2, Mode: "timeout", RequesterSeconds: fptr(1000)},
	}
	summary := Summarize(results)
	assert.Equal(t, 1, summary.Requester.Count)
	assert.InDelta(t, 5.0, summary.Requester.Max, 1e-9)
}

func TestSummaryString(t *testing.T) {
	results := ScenarioResultSet{
		{Succeeded: true, Mode: ModeHit.String(), RequesterSeconds: fptr(2), ProviderSeconds: fptr(1)},
		{Succeeded: true, Mode: ModeColdStart.String(), RequesterSeconds: fptr(10), ProviderSeconds: fptr(8)},
	}
	rendered := Summarize(results).String()
	assert.Contains(t, rendered, "Total Runs: 2")
	assert.Contains(t, rendered, "Hits: 1/2 (50%)")
	assert.Contains(t, rendered, "Hit Wake-up Times")

	// No hits, no wake-up section.
	rendered = Summarize(ScenarioResultSet{
		{Succeeded: true, Mode: ModeColdStart.String(), RequesterSeconds: fptr(10)},
	}).String()
	assert.False(t, strings.Contains(rendered, "Hit Wake-up Times"))
}
