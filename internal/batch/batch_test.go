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

package batch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/loadforge/loadforge/internal/mockserver"
)

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")
	writeFile(t, path, `
version: "1"
tests:
  - name: smoke
    curl: "curl http://example.com"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Tests) != 1 || cfg.Tests[0].Name != "smoke" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Tests[0].Connections != 10 || cfg.Tests[0].Threads != 2 {
		t.Fatalf("defaults not applied: %+v", cfg.Tests[0])
	}
}

func TestLoadConfigJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.json")
	writeFile(t, path, `{"version":"1","tests":[{"name":"smoke","curl":"curl http://example.com"}]}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.Tests) != 1 || cfg.Tests[0].Name != "smoke" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfigEmptyTestsRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")
	writeFile(t, path, "version: \"1\"\ntests: []\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for empty test list")
	}
}

func TestRunSequentialAgainstMockServer(t *testing.T) {
	srv := mockserver.New(mockserver.Options{Status: 200, Body: []byte("ok")})
	defer srv.Close()

	cfg := &Config{Tests: []TestConfig{
		{Name: "a", Curl: "curl " + srv.URL, Duration: "50ms", Connections: 1, Threads: 1, Timeout: "1s"},
		{Name: "b", Curl: "curl " + srv.URL + "/missing-url-that-still-parses", Duration: "50ms", Connections: 1, Threads: 1, Timeout: "1s"},
	}}
	for i := range cfg.Tests {
		cfg.Tests[i].applyDefaults()
	}

	start := time.Now()
	results := Run(context.Background(), cfg)
	elapsed := time.Since(start)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Success {
			t.Fatalf("test %s failed: %v", r.Name, r.Err)
		}
		if r.Stats == nil || r.Stats.Requests == 0 {
			t.Fatalf("test %s recorded no requests", r.Name)
		}
	}

	var buf bytes.Buffer
	WriteSummary(&buf, results, elapsed)
	out := buf.String()
	if !strings.Contains(out, "Total Tests:  2") || !strings.Contains(out, "Success Rate: 100.00%") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
