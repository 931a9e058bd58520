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

// Package vartemplate implements the {{name}} template substitution
// grammar (spec.md §5 "Template variable engine"): random ranges, UUIDs,
// timestamps, monotonic sequences and random choices, plus user-bound
// --var name=value variables. Grounded on original_source/src/template.rs,
// reimplemented with real per-sequence monotonic counters (the original's
// sequence branch is a known simplification that always returns its start
// value; SPEC_FULL.md's Open Question resolves this to true shared,
// monotonically-increasing counters, one counter per distinct
// "sequence:START" text, advanced with atomic.AddInt64).
package vartemplate

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var placeholderRE = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// kind is the variable generator type, mirroring the original's
// VariableType enum.
type kind int

const (
	kindRandom kind = iota
	kindUUID
	kindTimestamp
	kindSequence
	kindChoice
	kindStatic
)

type variable struct {
	kind      kind
	min, max  int64
	format    string
	options   []string
	staticVal string
	seq       *int64 // pointer into Engine.sequences' counter
}

// Engine evaluates {{...}} placeholders against a set of named variables
// plus a fixed set of built-in inline functions (random:, uuid, timestamp,
// sequence:, choice:). It is safe for concurrent use by multiple worker
// goroutines, which is required since one Engine is shared across all
// tasks of a run so that e.g. {{sequence:1}} increments globally rather
// than per-connection.
type Engine struct {
	mu        sync.RWMutex
	variables map[string]*variable
	sequences map[string]*int64 // keyed by the raw "sequence:N" spec text
}

// New returns an Engine with no bound variables.
func New() *Engine {
	return &Engine{
		variables: make(map[string]*variable),
		sequences: make(map[string]*int64),
	}
}

// AddVariable binds name to the generator described by definition (the
// same grammar accepted inline, e.g. "random:1-1000", "uuid",
// "choice:a,b,c"). It corresponds to a --var name=definition flag.
func (e *Engine) AddVariable(name, definition string) error {
	v, err := e.parseDefinition(definition)
	if err != nil {
		return fmt.Errorf("variable %q: %w", name, err)
	}
	e.mu.Lock()
	e.variables[name] = v
	e.mu.Unlock()
	return nil
}

// Process replaces every {{...}} placeholder in text with its generated
// value. A placeholder that fails to parse or evaluate is left untouched,
// matching the original's fall-back-to-literal behavior.
func (e *Engine) Process(text string) string {
	return placeholderRE.ReplaceAllStringFunc(text, func(m string) string {
		inner := m[2 : len(m)-2]
		val, err := e.evaluate(inner)
		if err != nil {
			return m
		}
		return val
	})
}

func (e *Engine) evaluate(name string) (string, error) {
	e.mu.RLock()
	v, ok := e.variables[name]
	e.mu.RUnlock()
	if ok {
		return e.generate(v)
	}
	// Unregistered placeholder text only resolves as one of the built-in
	// inline functions; anything else (including a bare word, which would
	// otherwise hit parseDefinition's static catch-all) is left untouched
	// by Process via the error path below.
	switch {
	case strings.HasPrefix(name, "random:"), name == "uuid",
		strings.HasPrefix(name, "timestamp:"), strings.HasPrefix(name, "now:"),
		name == "timestamp", name == "now",
		strings.HasPrefix(name, "sequence:"), strings.HasPrefix(name, "choice:"):
		v, err := e.parseDefinition(name)
		if err != nil {
			return "", err
		}
		return e.generate(v)
	default:
		return "", fmt.Errorf("unknown template placeholder %q", name)
	}
}

func (e *Engine) parseDefinition(def string) (*variable, error) {
	switch {
	case strings.HasPrefix(def, "random:"):
		return parseRandom(def[len("random:"):])
	case def == "uuid":
		return &variable{kind: kindUUID}, nil
	case strings.HasPrefix(def, "timestamp:"):
		return &variable{kind: kindTimestamp, format: def[len("timestamp:"):]}, nil
	case strings.HasPrefix(def, "now:"):
		return &variable{kind: kindTimestamp, format: def[len("now:"):]}, nil
	case def == "timestamp" || def == "now":
		return &variable{kind: kindTimestamp, format: "unix"}, nil
	case strings.HasPrefix(def, "sequence:"):
		return e.parseSequence(def)
	case strings.HasPrefix(def, "choice:"):
		opts := strings.Split(def[len("choice:"):], ",")
		if len(opts) == 0 || (len(opts) == 1 && opts[0] == "") {
			return nil, fmt.Errorf("choice must have at least one option")
		}
		return &variable{kind: kindChoice, options: opts}, nil
	default:
		return &variable{kind: kindStatic, staticVal: def}, nil
	}
}

func parseRandom(rng string) (*variable, error) {
	parts := strings.SplitN(rng, "-", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid random range %q, expected min-max", rng)
	}
	min, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid random min: %w", err)
	}
	max, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid random max: %w", err)
	}
	return &variable{kind: kindRandom, min: min, max: max}, nil
}

// parseSequence resolves def ("sequence:START") to a shared, monotonic
// counter keyed by the definition text itself, so every task evaluating
// the same {{sequence:1}} placeholder advances one global counter.
func (e *Engine) parseSequence(def string) (*variable, error) {
	start, err := strconv.ParseInt(def[len("sequence:"):], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid sequence start: %w", err)
	}
	e.mu.Lock()
	counter, ok := e.sequences[def]
	if !ok {
		// Stored as start-1 so the first AddInt64(1) yields start.
		v := start - 1
		counter = &v
		e.sequences[def] = counter
	}
	e.mu.Unlock()
	return &variable{kind: kindSequence, seq: counter}, nil
}

func (e *Engine) generate(v *variable) (string, error) {
	switch v.kind {
	case kindRandom:
		if v.max < v.min {
			return "", fmt.Errorf("random range max < min")
		}
		span := v.max - v.min + 1
		//nolint:gosec // load shaping, not crypto
		return strconv.FormatInt(v.min+rand.Int63n(span), 10), nil
	case kindUUID:
		return uuid.NewString(), nil
	case kindTimestamp:
		return formatTimestamp(v.format), nil
	case kindSequence:
		return strconv.FormatInt(atomic.AddInt64(v.seq, 1), 10), nil
	case kindChoice:
		//nolint:gosec // load shaping, not crypto
		return v.options[rand.Intn(len(v.options))], nil
	case kindStatic:
		return v.staticVal, nil
	default:
		return "", fmt.Errorf("unknown variable kind")
	}
}

func formatTimestamp(format string) string {
	now := time.Now().UTC()
	switch format {
	case "unix_ms":
		return strconv.FormatInt(now.UnixMilli(), 10)
	case "rfc3339", "iso8601":
		return now.Format(time.RFC3339)
	case "date":
		return now.Format("2006-01-02")
	case "time":
		return now.Format("15:04:05")
	default: // "unix" and anything unrecognized
		return strconv.FormatInt(now.Unix(), 10)
	}
}
