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
	"net"
	"strings"
	"testing"
	"time"

	"github.com/loadforge/loadforge/internal/mockserver"
	"github.com/loadforge/loadforge/internal/reqtemplate"
)

// closedPort returns a host:port that nothing is listening on, by binding
// and immediately releasing it (spec.md §8 scenario 4).
func closedPort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestRunAgainstMockServerAllSuccessful(t *testing.T) {
	srv := mockserver.New(mockserver.Options{Status: 200, Body: []byte("okok")})
	defer srv.Close()

	stats, err := Run(context.Background(), RunnerOptions{
		Templates:   []*reqtemplate.Template{reqtemplate.New("GET", srv.URL+"/ok", nil, "")},
		Connections: 1,
		Threads:     1,
		Duration:    300 * time.Millisecond,
		Timeout:     time.Second,
		KeepAlive:   true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Requests == 0 {
		t.Fatalf("expected at least one request")
	}
	if stats.Requests != stats.Successful+stats.Failed {
		t.Fatalf("total %d != successful %d + failed %d", stats.Requests, stats.Successful, stats.Failed)
	}
	if stats.Failed != 0 {
		t.Fatalf("expected no failures, got %d (errors=%v)", stats.Failed, stats.Snapshot().Errors)
	}
	snap := stats.Snapshot()
	if snap.StatusCode[200] != stats.Requests {
		t.Fatalf("status_codes[200] = %d, want %d", snap.StatusCode[200], stats.Requests)
	}
	if stats.Bytes < 4*stats.Requests {
		t.Fatalf("bytes = %d, want >= %d", stats.Bytes, 4*stats.Requests)
	}
}

func TestRunRoundRobinSplitsEndpoints(t *testing.T) {
	srv := mockserver.New(mockserver.Options{Status: 200, Body: []byte("ok")})
	defer srv.Close()

	tmplA := reqtemplate.New("GET", srv.URL+"/a", nil, "")
	tmplB := reqtemplate.New("GET", srv.URL+"/b", nil, "")
	stats, err := Run(context.Background(), RunnerOptions{
		Templates:   []*reqtemplate.Template{tmplA, tmplB},
		Connections: 2,
		Threads:     2,
		Duration:    300 * time.Millisecond,
		Timeout:     time.Second,
		Strategy:    RoundRobin,
		KeepAlive:   true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	snap := stats.Snapshot()
	a := snap.Endpoints[tmplA.Endpoint()].Requests
	b := snap.Endpoints[tmplB.Endpoint()].Requests
	if a+b != stats.Requests {
		t.Fatalf("endpoint sum %d+%d != total %d", a, b, stats.Requests)
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	if diff > 2 { // at most the number of tasks apart, per spec.md §8 scenario 3
		t.Fatalf("endpoint counts too far apart: a=%d b=%d", a, b)
	}
}

func TestRunAgainstClosedPortRecordsConnectFailed(t *testing.T) {
	addr := closedPort(t)
	stats, err := Run(context.Background(), RunnerOptions{
		Templates:   []*reqtemplate.Template{reqtemplate.New("GET", "http://"+addr+"/", nil, "")},
		Connections: 1,
		Threads:     1,
		Duration:    300 * time.Millisecond,
		Timeout:     200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Failed != stats.Requests || stats.Requests == 0 {
		t.Fatalf("expected all %d requests to fail, failed=%d", stats.Requests, stats.Failed)
	}
	foundConnectFailed := false
	for k := range stats.Snapshot().Errors {
		if strings.Contains(k, "ConnectFailed") {
			foundConnectFailed = true
		}
	}
	if !foundConnectFailed {
		t.Fatalf("expected a ConnectFailed-kind error key, got %v", stats.Snapshot().Errors)
	}
}

func TestRunAgainstSlowMockTimesOut(t *testing.T) {
	srv := mockserver.New(mockserver.Options{Status: 200, Body: []byte("ok"), Delay: 500 * time.Millisecond})
	defer srv.Close()

	stats, err := Run(context.Background(), RunnerOptions{
		Templates:   []*reqtemplate.Template{reqtemplate.New("GET", srv.URL+"/slow", nil, "")},
		Connections: 1,
		Threads:     1,
		Duration:    300 * time.Millisecond,
		Timeout:     100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Failed != stats.Requests || stats.Requests == 0 {
		t.Fatalf("expected all %d requests to fail, failed=%d", stats.Requests, stats.Failed)
	}
	for k := range stats.Snapshot().Errors {
		if !strings.Contains(k, "Timeout") {
			t.Fatalf("expected only Timeout-kind errors, got %q", k)
		}
	}
}

func TestSizingClampsThreadsAndConnections(t *testing.T) {
	numThreads, perThread := sizing(1, 8)
	if numThreads != 1 {
		t.Fatalf("numThreads = %d, want 1", numThreads)
	}
	if perThread != 8 {
		t.Fatalf("perThread = %d, want 8", perThread)
	}
	// connections < threads still yields at least 1 per thread.
	_, perThread = sizing(4, 1)
	if perThread != 1 {
		t.Fatalf("perThread = %d, want 1 (max(1, c/t))", perThread)
	}
}

func TestPoolSizePolicy(t *testing.T) {
	if poolSize(5) != 5 {
		t.Fatalf("poolSize(5) should be 5")
	}
	if poolSize(50) != 20 {
		t.Fatalf("poolSize(50) should clamp to 20")
	}
}
