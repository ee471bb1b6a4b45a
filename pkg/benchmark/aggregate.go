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
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"
)

// LatencyStats summarizes a set of readiness latencies, in seconds.
// Min, Max and Mean are meaningful only when Count is positive.
type LatencyStats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
}

// Summary is the reduction of one scenario's results.
type Summary struct {
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	Hits           int
	HitPercent     int

	// Requester and Provider cover successful runs with a recorded
	// timing for the role. HitProvider restricts the provider statistic
	// to Hit-classified runs, characterizing the warm path.
	Requester   LatencyStats
	Provider    LatencyStats
	HitProvider LatencyStats
}

// Summarize reduces an ordered sequence of iteration results. It is total:
// an empty input yields a zeroed summary.
func Summarize(results ScenarioResultSet) Summary {
	summary := Summary{TotalRuns: len(results)}
	var rqTimes, prvTimes, hitPrvTimes []float64
	for _, run := range results {
		if !run.Succeeded {
			summary.FailedRuns++
			continue
		}
		summary.SuccessfulRuns++
		if run.RequesterSeconds != nil {
			rqTimes = append(rqTimes, *run.RequesterSeconds)
		}
		if run.ProviderSeconds != nil {
			prvTimes = append(prvTimes, *run.ProviderSeconds)
		}
		if run.Mode == ModeHit.String() {
			summary.Hits++
			if run.ProviderSeconds != nil {
				hitPrvTimes = append(hitPrvTimes, *run.ProviderSeconds)
			}
		}
	}
	if summary.SuccessfulRuns > 0 {
		summary.HitPercent = summary.Hits * 100 / summary.SuccessfulRuns
	}
	summary.Requester = reduceLatencies(rqTimes)
	summary.Provider = reduceLatencies(prvTimes)
	summary.HitProvider = reduceLatencies(hitPrvTimes)
	return summary
}

func reduceLatencies(times []float64) LatencyStats {
	if len(times) == 0 {
		return LatencyStats{}
	}
	// stats errors only on empty input, which is excluded above.
	min, _ := stats.Min(times)
	max, _ := stats.Max(times)
	mean, _ := stats.Mean(times)
	return LatencyStats{Count: len(times), Min: min, Max: max, Mean: mean}
}

// String renders the summary the way the benchmark logs it.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total Runs: %d\n", s.TotalRuns)
	fmt.Fprintf(&b, "Successful Runs: %d\n", s.SuccessfulRuns)
	fmt.Fprintf(&b, "Failed Runs: %d\n", s.FailedRuns)
	fmt.Fprintf(&b, "Requester Pods \n\tMin: %.2fs, \n\tMax: %.2fs, \n\tAverage: %.2fs\n", s.Requester.Min, s.Requester.Max, s.Requester.Mean)
	fmt.Fprintf(&b, "Provider Pods \n\tMin: %.2fs, \n\tMax: %.2fs, \n\tAverage: %.2fs\n", s.Provider.Min, s.Provider.Max, s.Provider.Mean)
	fmt.Fprintf(&b, "Hits: %d/%d (%d%%)\n", s.Hits, s.SuccessfulRuns, s.HitPercent)
	if s.HitProvider.Count > 0 {
		fmt.Fprintf(&b, "Hit Wake-up Times \n\tMin: %.2fs, \n\tMax: %.2fs, \n\tAverage: %.2fs\n", s.HitProvider.Min, s.HitProvider.Max, s.HitProvider.Mean)
	}
	return b.String()
}
