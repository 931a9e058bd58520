// Copyright 2017 Fortio Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package beat

import "time"

// LatencyMillis holds pre-computed percentiles in milliseconds, per
// spec.md §3 ("scalar counters and pre-computed percentiles ... in
// milliseconds").
type LatencyMillis struct {
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	P50    float64
	P75    float64
	P90    float64
	P95    float64
	P99    float64
}

// EndpointSnapshot is the immutable, cloned view of one EndpointStats.
type EndpointSnapshot struct {
	Requests   int64
	Successful int64
	Failed     int64
	Bytes      int64
	Latency    LatencyMillis
	StatusCode map[int]int64
}

// Snapshot is the deep, immutable copy of Stats described in spec.md §3:
// safe to hand across the UI boundary, never shared mutably.
type Snapshot struct {
	Start      time.Time
	Elapsed    time.Duration
	Finished   bool
	Requests   int64
	Successful int64
	Failed     int64
	Bytes      int64
	Latency    LatencyMillis
	StatusCode map[int]int64
	Errors     map[string]int64
	Endpoints  map[string]EndpointSnapshot
}

// RequestsPerSec and BytesPerSec are derived statistics (spec.md §4.4),
// computed on read, never stored.
func (s *Snapshot) RequestsPerSec() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Requests) / secs
}

func (s *Snapshot) BytesPerSec() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.Bytes) / secs
}

func latencyFrom(h *latencyHistogram) LatencyMillis {
	snap := h.snapshot()
	return LatencyMillis{
		Min:    float64(snap.Min()) / 1000.0,
		Max:    float64(snap.Max()) / 1000.0,
		Mean:   snap.Mean() / 1000.0,
		StdDev: snap.StdDev() / 1000.0,
		P50:    percentileMillis(snap, 50),
		P75:    percentileMillis(snap, 75),
		P90:    percentileMillis(snap, 90),
		P95:    percentileMillis(snap, 95),
		P99:    percentileMillis(snap, 99),
	}
}

// Snapshot produces a deep, immutable copy of s. The work done is cloning
// the bounded status, error and endpoint maps and computing the latency
// percentiles from a copy of each histogram.
func (s *Stats) Snapshot() Snapshot {
	status := make(map[int]int64, len(s.statusCode))
	for k, v := range s.statusCode {
		status[k] = v
	}
	errs := make(map[string]int64, len(s.errors))
	for k, v := range s.errors {
		errs[k] = v
	}
	endpoints := make(map[string]EndpointSnapshot, len(s.endpoints))
	for k, ep := range s.endpoints {
		epStatus := make(map[int]int64, len(ep.statusCode))
		for sc, cnt := range ep.statusCode {
			epStatus[sc] = cnt
		}
		endpoints[k] = EndpointSnapshot{
			Requests:   ep.Requests,
			Successful: ep.Successful,
			Failed:     ep.Failed,
			Bytes:      ep.Bytes,
			Latency:    latencyFrom(ep.hist),
			StatusCode: epStatus,
		}
	}
	return Snapshot{
		Start:      s.Start,
		Elapsed:    s.Elapsed(),
		Finished:   s.finished,
		Requests:   s.Requests,
		Successful: s.Successful,
		Failed:     s.Failed,
		Bytes:      s.Bytes,
		Latency:    latencyFrom(s.hist),
		StatusCode: status,
		Errors:     errs,
		Endpoints:  endpoints,
	}
}
