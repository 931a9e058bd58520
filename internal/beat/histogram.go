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

// Package beat is the statistics pipeline (C5): a single collector folding
// per-request outcomes into a high-dynamic-range latency histogram,
// per-status counters and per-endpoint sub-aggregates, with cloneable
// point-in-time snapshots for a live UI.
package beat

import (
	"sync"
	"time"

	hdrhistogram "github.com/HdrHistogram/hdrhistogram-go"
)

// Histogram range per spec.md §3: three significant digits, spanning at
// least 1 microsecond to 1 hour, recorded in microseconds.
const (
	histogramMinValue int64 = 1
	histogramMaxValue int64 = int64(time.Hour / time.Microsecond)
	histogramSigFigs  int64 = 3
)

// latencyHistogram wraps hdrhistogram.Histogram with a mutex: the
// collector is the sole writer, but snapshots may be requested from
// another goroutine, so every record and every snapshot takes the lock.
type latencyHistogram struct {
	mu sync.Mutex
	h  *hdrhistogram.Histogram
}

func newLatencyHistogram() *latencyHistogram {
	return &latencyHistogram{h: hdrhistogram.New(histogramMinValue, histogramMaxValue, int(histogramSigFigs))}
}

// recordMicros records one duration, in microseconds, clipping silently if
// out of range (spec.md §7: "any out-of-range latency is clipped").
func (l *latencyHistogram) recordMicros(us int64) {
	if us < histogramMinValue {
		us = histogramMinValue
	}
	if us > histogramMaxValue {
		us = histogramMaxValue
	}
	l.mu.Lock()
	_ = l.h.RecordValue(us)
	l.mu.Unlock()
}

func (l *latencyHistogram) snapshot() *hdrhistogram.Histogram {
	l.mu.Lock()
	defer l.mu.Unlock()
	return hdrhistogram.Import(l.h.Export())
}

// percentileMillis returns the value-at-percentile in milliseconds.
func percentileMillis(h *hdrhistogram.Histogram, p float64) float64 {
	return float64(h.ValueAtQuantile(p)) / 1000.0
}
