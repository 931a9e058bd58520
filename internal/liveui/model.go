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

// Package liveui is a terminal live-refreshing panel that renders
// beat.Snapshot values pushed at the engine's ~2Hz cadence (spec.md §6
// "live_ui_sink"). Grounded on the bubbletea tea.Model/Update/View
// wiring in nabbar-golib/cobra/ui/model.go — that model drives an
// interactive questionnaire; this one has no user input to collect, just
// a single upstream channel of snapshots and a quit key, so Update/View
// are far smaller, but the Init/Update/View/tea.Program shape is the
// same pattern.
package liveui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/loadforge/loadforge/internal/beat"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	hintStyle   = lipgloss.NewStyle().Faint(true)
)

// snapshotMsg wraps a beat.Snapshot so it can flow through tea.Model.Update.
type snapshotMsg beat.Snapshot

// stoppedMsg marks that the upstream snapshot channel was closed, i.e. the
// benchmark itself finished; stopping the UI never stops the benchmark
// early (spec.md §4.3 "Cancellation") — this only happens after the fact.
type stoppedMsg struct{}

// Model is the bubbletea model driving the live panel.
type Model struct {
	snapshots <-chan beat.Snapshot
	latest    beat.Snapshot
	have      bool
	quitting  bool
	stopped   bool
}

// New builds a Model reading snapshots from ch. ch is typically the
// consumer end of engine.RunnerOptions.LiveUISink.
func New(ch <-chan beat.Snapshot) Model {
	return Model{snapshots: ch}
}

// Init starts the first read from the snapshot channel.
func (m Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.snapshots
		if !ok {
			return stoppedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Update handles an incoming snapshot or a quit keypress. Quitting the UI
// (q/Esc/Ctrl-C) only stops the renderer; the benchmark's worker threads
// are untouched and keep running to their deadline.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case snapshotMsg:
		m.latest = beat.Snapshot(msg)
		m.have = true
		return m, m.waitForSnapshot()
	case stoppedMsg:
		m.stopped = true
		return m, tea.Quit
	default:
		return m, nil
	}
}

// View renders the current snapshot: elapsed time, requests/sec, current
// P50/P99, status-code tally, and a q/Esc-to-stop hint.
func (m Model) View() string {
	if !m.have {
		return "waiting for first snapshot...\n"
	}
	s := m.latest
	out := headerStyle.Render("loadforge — live") + "\n"
	out += fmt.Sprintf("elapsed: %s   requests: %d   req/s: %.1f\n",
		s.Elapsed.Round(100*time.Millisecond), s.Requests, s.RequestsPerSec())
	out += fmt.Sprintf("latency p50: %.2fms   p99: %.2fms\n", s.Latency.P50, s.Latency.P99)
	out += "status: "
	for code, count := range s.StatusCode {
		out += fmt.Sprintf("%d=%d ", code, count)
	}
	out += "\n"
	if m.stopped {
		out += "\n(benchmark finished)\n"
	} else {
		out += hintStyle.Render("\npress q or esc to stop watching (benchmark keeps running)\n")
	}
	return out
}
