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

package engine

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/loadforge/loadforge/internal/beat"
	"github.com/loadforge/loadforge/internal/reqtemplate"
)

// Strategy picks which template a task uses for its next request, per
// spec.md §4.3 step 1.
type Strategy int

const (
	// Random is the default: a uniformly random index per iteration.
	Random Strategy = iota
	// RoundRobin cycles through templates in order, one per task.
	RoundRobin
)

// ParseStrategy maps the -load-strategy flag value to a Strategy; any
// unrecognized value (including the empty string) falls back to Random,
// matching spec.md §4.3 "else (random, the default, and for any
// unrecognized policy)".
func ParseStrategy(s string) Strategy {
	if strings.EqualFold(s, "round-robin") {
		return RoundRobin
	}
	return Random
}

// Substituter resolves template placeholders in a piece of text. The
// engine core only depends on this interface (spec.md §6's "Template
// variable engine" collaborator); internal/vartemplate provides the real
// implementation.
type Substituter interface {
	Process(text string) string
}

type identitySubstituter struct{}

func (identitySubstituter) Process(text string) string { return text }

// task drives one logical connection: a sequential loop run on its own
// goroutine. The goroutine is scheduled by the Go runtime and is not pinned
// to an OS thread; it may move between threads.
type task struct {
	client     *Client
	templates  []*reqtemplate.Template
	strategy   Strategy
	rateLimit  float64 // requests/sec for this task only; 0 = unlimited
	substitute Substituter
	sink       *beat.Collector
	rng        *rand.Rand
	state      *ClientState
}

func newTask(client *Client, templates []*reqtemplate.Template, strategy Strategy, rateLimit float64,
	sub Substituter, sink *beat.Collector, seed int64,
) *task {
	if sub == nil {
		sub = identitySubstituter{}
	}
	return &task{
		client:     client,
		templates:  templates,
		strategy:   strategy,
		rateLimit:  rateLimit,
		substitute: sub,
		sink:       sink,
		rng:        rand.New(rand.NewSource(seed)), //nolint:gosec // load shaping, not crypto
		state:      NewClientState(),
	}
}

// run executes iterations until deadline, per spec.md §4.3's task body.
func (t *task) run(ctx context.Context, deadline time.Time) {
	defer t.state.Close()
	var limiter *rate.Limiter
	if t.rateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(t.rateLimit), 1)
	}
	var count int64
	for {
		now := time.Now()
		if !now.Before(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		if limiter != nil {
			if err := limiter.WaitN(ctx, 1); err != nil {
				return // context cancelled while waiting to be paced
			}
		}
		tmpl := t.selectTemplate(count)
		count++
		url := t.substitute.Process(tmpl.URL)
		body := t.substitute.Process(tmpl.Body)
		headers := make(map[string]string, len(tmpl.Headers))
		for k, v := range tmpl.Headers {
			headers[k] = t.substitute.Process(v)
		}
		start := time.Now()
		status, n, err := t.client.Do(ctx, t.state, tmpl.Method, url, headers, []byte(body))
		outcome := beat.Outcome{
			Duration:  time.Since(start),
			Status:    status,
			BytesRead: n,
		}
		if err != nil {
			outcome.Err = errKind(err)
		}
		if len(t.templates) > 1 {
			outcome.Endpoint = tmpl.Endpoint()
		}
		t.sink.Send(outcome)
	}
}

func (t *task) selectTemplate(count int64) *reqtemplate.Template {
	n := len(t.templates)
	if n == 1 {
		return t.templates[0]
	}
	switch t.strategy {
	case RoundRobin:
		return t.templates[count%int64(n)]
	default:
		return t.templates[t.rng.Intn(n)]
	}
}

// errKind maps a wrapped engine error to its short kind string, used as
// the key in the error histogram (spec.md §4.1 "each carries a short
// description used as a key in the error histogram").
func errKind(err error) string {
	switch {
	case isKind(err, ErrInvalidURL):
		return "InvalidUrl"
	case isKind(err, ErrConnectFailed):
		return "ConnectFailed"
	case isKind(err, ErrHandshakeFailed):
		return "HandshakeFailed"
	case isKind(err, ErrTimeout):
		return "Timeout"
	case isKind(err, ErrBuildRequestFailed):
		return "BuildRequestFailed"
	case isKind(err, ErrSendFailed):
		return "SendFailed"
	default:
		return err.Error()
	}
}
