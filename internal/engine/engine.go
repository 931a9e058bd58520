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

// Package engine is the benchmark core: the worker pool, the per-worker
// keep-alive HTTP client state machine, the round-robin connection pool,
// rate pacing and the orchestration that feeds the statistics pipeline
// (internal/beat).
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"fortio.org/log"

	"github.com/loadforge/loadforge/internal/beat"
	"github.com/loadforge/loadforge/internal/reqtemplate"
)

// RunnerOptions are the parameters of one benchmark run (spec.md §6
// "Engine input").
type RunnerOptions struct {
	Templates    []*reqtemplate.Template
	Connections  int // target total logical connections
	Threads      int // worker-thread count; 0 => runtime.NumCPU() (logical CPUs)
	Duration     time.Duration
	Rate         float64 // per-task requests/sec cap; 0 => unlimited
	Timeout      time.Duration
	Strategy     Strategy
	HTTP2        bool
	TLS          TLSOptions
	KeepAlive    bool
	Substituter  Substituter
	LiveUISink   chan<- beat.Snapshot // optional, ~2Hz snapshot stream
}

// sizing applies spec.md §4.3's thread/connection sizing policy:
//   - threads<=0 uses runtime.NumCPU(); else clamp to 2x runtime.NumCPU().
//     runtime.NumCPU counts logical CPUs, not physical cores.
//   - per-thread logical connections = max(1, connections / threads).
func sizing(threads, connections int) (numThreads, perThread int) {
	cores := runtime.NumCPU()
	if threads <= 0 {
		numThreads = cores
	} else {
		max := 2 * cores
		if threads > max {
			threads = max
		}
		numThreads = threads
	}
	if connections < 1 {
		connections = numThreads
	}
	perThread = connections / numThreads
	if perThread < 1 {
		perThread = 1
	}
	return numThreads, perThread
}

// Run executes the benchmark to completion and returns the final
// statistics (spec.md §6 "Engine output"). It blocks until the shared
// deadline is reached and every worker thread has exited.
func Run(ctx context.Context, opts RunnerOptions) (*beat.Stats, error) {
	if len(opts.Templates) == 0 {
		return nil, fmt.Errorf("no request templates configured")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	numThreads, perThread := sizing(opts.Threads, opts.Connections)
	pSize := poolSize(numThreads)
	pool, err := NewPool(pSize, Options{
		TLS:       opts.TLS,
		Timeout:   opts.Timeout,
		HTTP2:     opts.HTTP2,
		KeepAlive: opts.KeepAlive,
	})
	if err != nil {
		return nil, err
	}

	collector := beat.NewCollector(opts.LiveUISink)
	deadline := time.Now().Add(opts.Duration)

	log.Infof("starting benchmark: %d threads x %d connections/thread, %d pool clients, duration %v",
		numThreads, perThread, pool.Size(), opts.Duration)

	statsCh := make(chan *beat.Stats, 1)
	go func() { statsCh <- collector.Run() }()

	var wg sync.WaitGroup
	for th := 0; th < numThreads; th++ {
		for conn := 0; conn < perThread; conn++ {
			client := pool.Get()
			seed := int64(th)*1_000_003 + int64(conn) + time.Now().UnixNano()
			t := newTask(client, opts.Templates, opts.Strategy, opts.Rate, opts.Substituter, collector, seed)
			wg.Add(1)
			go func() {
				defer wg.Done()
				t.run(ctx, deadline)
			}()
		}
	}
	wg.Wait()
	collector.Close()
	stats := <-statsCh
	if opts.LiveUISink != nil {
		// Safe only once collector.Run has returned (guaranteed by the
		// receive above): it is the sole writer to this channel.
		close(opts.LiveUISink)
	}
	log.Infof("benchmark finished: %d requests (%d ok, %d failed) in %v",
		stats.Requests, stats.Successful, stats.Failed, stats.Elapsed())
	return stats, nil
}
