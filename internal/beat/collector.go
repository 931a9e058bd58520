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

// SnapshotCadence is the default interval at which the collector publishes
// snapshots to an optional live-UI sink, per spec.md §4.4/§9 (500ms is the
// intended design, not the per-outcome alternative also found in the
// source this was distilled from).
const SnapshotCadence = 500 * time.Millisecond

// Collector owns the receive half of the outcome channel and the single
// Stats value, per spec.md §4.4. It runs on its own goroutine (the Go
// analog of "its own OS thread"); like the worker tasks, that goroutine is
// scheduled onto OS threads by the Go runtime and is not pinned to one.
type Collector struct {
	outcomes chan Outcome
	sink     chan<- Snapshot
}

// NewCollector creates a Collector. sink may be nil if no live UI is
// attached; outcomes is a buffered channel of 4096 entries standing in for
// the lock-free MPSC queue spec.md §4.4 describes — every sender is an
// independent producer, the collector is the sole consumer. The channel is
// bounded: a sender blocks while all 4096 slots are full.
func NewCollector(sink chan<- Snapshot) *Collector {
	return &Collector{
		outcomes: make(chan Outcome, 4096),
		sink:     sink,
	}
}

// Send publishes one outcome. Per spec.md §4.3 step 6, this never blocks
// the caller for long: the channel is large, and engine.go only calls
// Close after every worker goroutine has returned (wg.Wait before
// collector.Close), so Send always has a live receiver and never races a
// closed channel.
func (c *Collector) Send(o Outcome) {
	c.outcomes <- o
}

// Close signals that no more outcomes will be sent; Run drains whatever
// remains buffered and then calls Finish, per spec.md §4.4 "Collector
// loop".
func (c *Collector) Close() {
	close(c.outcomes)
}

// Run is the collector loop: repeatedly receive an outcome and fold it in
// until the channel is closed and drained, then Finish and return the
// final Stats. Run blocks until Close has been called and the channel is
// empty.
func (c *Collector) Run() *Stats {
	stats := NewStats()
	ticker := time.NewTicker(SnapshotCadence)
	defer ticker.Stop()
	if c.sink == nil {
		// No live UI: just drain as fast as possible.
		for o := range c.outcomes {
			stats.Record(o)
		}
		stats.Finish()
		return stats
	}
	for {
		select {
		case o, ok := <-c.outcomes:
			if !ok {
				stats.Finish()
				c.publish(stats)
				return stats
			}
			stats.Record(o)
		case <-ticker.C:
			c.publish(stats)
		}
	}
}

func (c *Collector) publish(stats *Stats) {
	snap := stats.Snapshot()
	select {
	case c.sink <- snap:
	default:
		// UI is slower than the cadence; drop this tick rather than stall
		// the collector (spec.md §4.4 snapshotting must not stall the
		// collector).
	}
}
