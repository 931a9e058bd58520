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

// Command loadforge runs an HTTP benchmark: one or more request templates
// (a single -url, a -parse-curl command, or a -parse-curl-file of many),
// issued at controlled concurrency and rate for a bounded duration, with
// an aggregated text report at the end (and, with -batch-config, a
// sequential run over a whole suite of configurations instead).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fortio.org/cli"
	"fortio.org/log"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/loadforge/loadforge/internal/batch"
	"github.com/loadforge/loadforge/internal/beat"
	"github.com/loadforge/loadforge/internal/cliopts"
	"github.com/loadforge/loadforge/internal/engine"
	"github.com/loadforge/loadforge/internal/liveui"
	"github.com/loadforge/loadforge/internal/report"
)

func main() {
	cli.ProgramName = "loadforge"
	cli.ArgsHelp = "(no positional arguments; configure via -url/-parse-curl/-parse-curl-file or -batch-config)"
	cli.MinArgs = 0
	cli.MaxArgs = 0
	cli.Main()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if path := cliopts.BatchConfigPath(); path != "" {
		runBatch(ctx, path)
		return
	}
	runSingle(ctx)
}

func runSingle(ctx context.Context) {
	templates, err := cliopts.Templates()
	if err != nil {
		cli.ErrUsage("%v", err)
	}
	substituter, err := cliopts.Substituter()
	if err != nil {
		cli.ErrUsage("%v", err)
	}
	opts, err := cliopts.RunnerOptions(templates, substituter)
	if err != nil {
		cli.ErrUsage("%v", err)
	}

	var uiDone chan struct{}
	if cliopts.LiveUI() {
		sink := make(chan beat.Snapshot, 4)
		opts.LiveUISink = sink
		uiDone = make(chan struct{})
		go func() {
			defer close(uiDone)
			if _, err := tea.NewProgram(liveui.New(sink)).Run(); err != nil {
				log.Errf("live UI exited with error: %v", err)
			}
		}()
	}

	stats, err := engine.Run(ctx, opts)
	if err != nil {
		log.Fatalf("benchmark run failed: %v", err)
	}
	if uiDone != nil {
		<-uiDone
	}

	report.Write(os.Stdout, stats.Snapshot(), report.Options{Percentiles: cliopts.Latency()})
}

func runBatch(ctx context.Context, path string) {
	cfg, err := batch.LoadConfig(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	start := time.Now()
	results := batch.Run(ctx, cfg)
	batch.WriteSummary(os.Stdout, results, time.Since(start))
}
