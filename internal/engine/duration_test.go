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
	"testing"
	"time"
)

// TestParseDurationRoundTrip is spec.md §8's duration string round-trip law.
func TestParseDurationRoundTrip(t *testing.T) {
	cases := map[string]time.Duration{
		"100ms": 100 * time.Millisecond,
		"10s":   10 * time.Second,
		"5m":    5 * time.Minute,
		"1h":    time.Hour,
		"30":    30 * time.Second, // bare number defaults to seconds
	}
	for in, want := range cases {
		got, err := ParseDuration(in)
		if err != nil {
			t.Fatalf("ParseDuration(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseDuration(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseDurationRejectsGarbage(t *testing.T) {
	if _, err := ParseDuration(""); err == nil {
		t.Fatal("expected error for empty duration")
	}
	if _, err := ParseDuration("banana"); err == nil {
		t.Fatal("expected error for non-duration string")
	}
}
