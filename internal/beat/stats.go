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

// Outcome is the record of one completed (succeeded or failed) request
// attempt, as specified in spec.md §3. Produced by a worker task, consumed
// exactly once by the collector.
type Outcome struct {
	Duration  time.Duration
	Status    int    // 0 means "absent" (transport/timeout failure)
	BytesRead int64  // 0 on failure
	Err       string // empty when the request succeeded
	Endpoint  string // only set when more than one template is active
}

// EndpointStats is the independent per-endpoint sub-aggregate described in
// spec.md §3: the counters, histogram and status-code map of Stats, without
// its timestamps, error map or nested endpoint map.
type EndpointStats struct {
	Requests   int64
	Successful int64
	Failed     int64
	Bytes      int64
	hist       *latencyHistogram
	statusCode map[int]int64
}

func newEndpointStats() *EndpointStats {
	return &EndpointStats{hist: newLatencyHistogram(), statusCode: make(map[int]int64)}
}

// Stats is the single-owner aggregate described in spec.md §3. Only the
// collector goroutine ever mutates it; a mutex-guarded UI-side copy, if
// used, is mutated by the collector and read by the UI (spec.md §5).
type Stats struct {
	Start      time.Time
	End        time.Time
	finished   bool
	Requests   int64
	Successful int64
	Failed     int64
	Bytes      int64
	hist       *latencyHistogram
	statusCode map[int]int64
	errors     map[string]int64
	endpoints  map[string]*EndpointStats
}

// NewStats creates an empty Stats value with Start set to now.
func NewStats() *Stats {
	return &Stats{
		Start:      time.Now(),
		hist:       newLatencyHistogram(),
		statusCode: make(map[int]int64),
		errors:     make(map[string]int64),
		endpoints:  make(map[string]*EndpointStats),
	}
}

// Record folds one Outcome into the aggregate, per the recording rules of
// spec.md §4.4. Must only be called from the collector goroutine.
func (s *Stats) Record(o Outcome) {
	s.Requests++
	if o.Err == "" {
		s.Successful++
	} else {
		s.Failed++
		s.errors[o.Err]++
	}
	if o.Status != 0 {
		s.statusCode[o.Status]++
	}
	s.Bytes += o.BytesRead
	s.hist.recordMicros(o.Duration.Microseconds())
	if o.Endpoint != "" {
		ep, ok := s.endpoints[o.Endpoint]
		if !ok {
			ep = newEndpointStats()
			s.endpoints[o.Endpoint] = ep
		}
		ep.Requests++
		if o.Err == "" {
			ep.Successful++
		} else {
			ep.Failed++
		}
		if o.Status != 0 {
			ep.statusCode[o.Status]++
		}
		ep.Bytes += o.BytesRead
		ep.hist.recordMicros(o.Duration.Microseconds())
	}
}

// Finish sets End exactly once (spec.md §3 invariant). Idempotent: later
// calls are no-ops, so snapshots taken after Finish are stable and equal.
func (s *Stats) Finish() {
	if s.finished {
		return
	}
	s.End = time.Now()
	s.finished = true
}

// Elapsed returns the duration between Start and End (or now, if the run
// hasn't finished yet).
func (s *Stats) Elapsed() time.Duration {
	if s.finished {
		return s.End.Sub(s.Start)
	}
	return time.Since(s.Start)
}
