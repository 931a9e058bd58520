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

package vartemplate

import (
	"strconv"
	"strings"
	"sync"
	"testing"
)

func TestRandomInline(t *testing.T) {
	e := New()
	result := e.Process("https://api.example.com/users/{{random:1-100}}")
	if !strings.HasPrefix(result, "https://api.example.com/users/") {
		t.Fatalf("unexpected result: %s", result)
	}
	if strings.Contains(result, "{{") {
		t.Fatalf("placeholder not substituted: %s", result)
	}
}

func TestUUIDInline(t *testing.T) {
	e := New()
	result := e.Process("session={{uuid}}")
	if !strings.HasPrefix(result, "session=") || strings.Contains(result, "{{") {
		t.Fatalf("unexpected result: %s", result)
	}
}

func TestCustomVariable(t *testing.T) {
	e := New()
	if err := e.AddVariable("user_id", "random:1-1000"); err != nil {
		t.Fatalf("AddVariable: %v", err)
	}
	result := e.Process("https://api.example.com/users/{{user_id}}")
	if !strings.HasPrefix(result, "https://api.example.com/users/") {
		t.Fatalf("unexpected result: %s", result)
	}
}

func TestSequenceMonotonicAndShared(t *testing.T) {
	e := New()
	var got []int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := e.Process("{{sequence:1}}")
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				t.Errorf("sequence value not numeric: %s", v)
				return
			}
			mu.Lock()
			got = append(got, n)
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(got) != 20 {
		t.Fatalf("expected 20 values, got %d", len(got))
	}
	seen := make(map[int64]bool)
	for _, n := range got {
		if n < 1 || n > 20 {
			t.Fatalf("sequence value out of expected monotonic range: %d", n)
		}
		if seen[n] {
			t.Fatalf("duplicate sequence value %d, counter not shared correctly", n)
		}
		seen[n] = true
	}
}

func TestChoiceReturnsOneOfOptions(t *testing.T) {
	e := New()
	result := e.Process("{{choice:a,b,c}}")
	if result != "a" && result != "b" && result != "c" {
		t.Fatalf("unexpected choice result: %s", result)
	}
}

func TestUnknownPlaceholderLeftLiteral(t *testing.T) {
	e := New()
	result := e.Process("{{not_a_thing:nonsense}}")
	if !strings.Contains(result, "{{") {
		t.Fatalf("expected literal fallback, got %s", result)
	}
}
