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

// Package report renders a beat.Snapshot as the final human-readable text
// report (spec.md §6 "Final report format"). Grounded on the
// Fprintf-to-a-writer reporting style of stats.Histogram.Print and
// periodic.Run()'s end-of-run summary.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/loadforge/loadforge/internal/beat"
)

// Options controls optional sections of the report.
type Options struct {
	Percentiles bool // include the P50/P75/P90/P95/P99 block
}

// Write renders snap to out following spec.md §6's field order: totals,
// rates, latency stats, optional percentile block, status distribution,
// error summary, per-endpoint block.
func Write(out io.Writer, snap beat.Snapshot, opts Options) {
	secs := snap.Elapsed.Seconds()
	mb := float64(snap.Bytes) / (1024 * 1024)

	fmt.Fprintf(out, "Total requests:      %d\n", snap.Requests)
	fmt.Fprintf(out, "Total duration:      %.2fs\n", secs)
	fmt.Fprintf(out, "Total transferred:   %.2f MB\n", mb)
	if snap.Failed > 0 {
		pct := 100 * float64(snap.Failed) / float64(snap.Requests)
		fmt.Fprintf(out, "Errors:              %d (%.2f%%)\n", snap.Failed, pct)
	}
	fmt.Fprintf(out, "Requests/sec:        %.2f\n", snap.RequestsPerSec())
	fmt.Fprintf(out, "Transfer/sec:        %.2f MB\n", snap.BytesPerSec()/(1024*1024))

	l := snap.Latency
	fmt.Fprintf(out, "Latency (ms):        avg %.2f min %.2f max %.2f stdev %.2f\n",
		l.Mean, l.Min, l.Max, l.StdDev)

	if opts.Percentiles {
		fmt.Fprintln(out, "Latency percentiles (ms):")
		fmt.Fprintf(out, "  P50 %.2f  P75 %.2f  P90 %.2f  P95 %.2f  P99 %.2f\n",
			l.P50, l.P75, l.P90, l.P95, l.P99)
	}

	if len(snap.StatusCode) > 0 {
		fmt.Fprintln(out, "Status code distribution:")
		codes := make([]int, 0, len(snap.StatusCode))
		for code := range snap.StatusCode {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			count := snap.StatusCode[code]
			pct := 100 * float64(count) / float64(snap.Requests)
			fmt.Fprintf(out, "  [%d] %d (%.2f%%)\n", code, count, pct)
		}
	}

	if len(snap.Errors) > 0 {
		fmt.Fprintln(out, "Error summary:")
		keys := make([]string, 0, len(snap.Errors))
		for k := range snap.Errors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %d\n", k, snap.Errors[k])
		}
	}

	if len(snap.Endpoints) > 1 {
		fmt.Fprintln(out, "Per-endpoint:")
		names := make([]string, 0, len(snap.Endpoints))
		for name := range snap.Endpoints {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ep := snap.Endpoints[name]
			fmt.Fprintf(out, "  %s: %d requests (%d ok, %d failed), avg %.2fms\n",
				name, ep.Requests, ep.Successful, ep.Failed, ep.Latency.Mean)
		}
	}
}
