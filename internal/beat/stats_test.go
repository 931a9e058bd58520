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

import (
	"testing"
	"time"
)

func TestRecordTotals(t *testing.T) {
	s := NewStats()
	s.Record(Outcome{Duration: 10 * time.Millisecond, Status: 200, BytesRead: 4})
	s.Record(Outcome{Duration: 20 * time.Millisecond, Err: "ConnectFailed"})
	if s.Requests != 2 {
		t.Fatalf("Requests = %d, want 2", s.Requests)
	}
	if s.Successful != 1 || s.Failed != 1 {
		t.Fatalf("Successful=%d Failed=%d, want 1/1", s.Successful, s.Failed)
	}
	if s.Requests != s.Successful+s.Failed {
		t.Fatalf("invariant broken: total != successful + failed")
	}
	if s.Bytes != 4 {
		t.Fatalf("Bytes = %d, want 4", s.Bytes)
	}
}

func TestEndpointSumsNeverExceedGlobal(t *testing.T) {
	s := NewStats()
	for i := 0; i < 5; i++ {
		s.Record(Outcome{Duration: time.Millisecond, Status: 200, BytesRead: 1, Endpoint: "/a"})
	}
	for i := 0; i < 3; i++ {
		s.Record(Outcome{Duration: time.Millisecond, Status: 200, BytesRead: 1, Endpoint: "/b"})
	}
	snap := s.Snapshot()
	if snap.Endpoints["/a"].Requests > snap.Requests || snap.Endpoints["/b"].Requests > snap.Requests {
		t.Fatalf("endpoint requests exceed total: %+v", snap.Endpoints)
	}
	if snap.Endpoints["/a"].Requests+snap.Endpoints["/b"].Requests != snap.Requests {
		t.Fatalf("endpoint sum mismatch: %+v vs total %d", snap.Endpoints, snap.Requests)
	}
}

func TestFinishIdempotent(t *testing.T) {
	s := NewStats()
	s.Record(Outcome{Duration: time.Millisecond, Status: 200})
	s.Finish()
	first := s.Snapshot()
	time.Sleep(time.Millisecond)
	s.Finish()
	second := s.Snapshot()
	if first.Elapsed != second.Elapsed {
		t.Fatalf("Finish not idempotent: elapsed changed from %v to %v", first.Elapsed, second.Elapsed)
	}
}

func TestPercentilesMonotonic(t *testing.T) {
	s := NewStats()
	for i := 1; i <= 100; i++ {
		s.Record(Outcome{Duration: time.Duration(i) * time.Millisecond, Status: 200})
	}
	snap := s.Snapshot()
	l := snap.Latency
	if !(l.Min <= l.Mean && l.Mean <= l.Max) {
		t.Fatalf("min<=mean<=max violated: %+v", l)
	}
	if !(l.P50 <= l.P75 && l.P75 <= l.P90 && l.P90 <= l.P95 && l.P95 <= l.P99) {
		t.Fatalf("percentiles not monotonic: %+v", l)
	}
}

func TestCollectorDrainsOnClose(t *testing.T) {
	c := NewCollector(nil)
	done := make(chan *Stats)
	go func() { done <- c.Run() }()
	for i := 0; i < 10; i++ {
		c.Send(Outcome{Duration: time.Millisecond, Status: 200})
	}
	c.Close()
	stats := <-done
	if stats.Requests != 10 {
		t.Fatalf("Requests = %d, want 10", stats.Requests)
	}
	if !stats.finished {
		t.Fatalf("expected Finish to have been called")
	}
}
