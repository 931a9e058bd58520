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

import "sync/atomic"

// Pool is a fixed ring of shareable Clients handed out round-robin, as
// specified in spec.md §4.2. It is built once before workers start and
// shared read-only thereafter; clients are never removed or replaced.
type Pool struct {
	clients []*Client
	next    atomic.Uint64
}

// NewPool builds size identical clients from opts. Sizing policy (pool size
// = min(threads, 20)) is applied by the caller (engine.go), not here.
func NewPool(size int, opts Options) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	p := &Pool{clients: make([]*Client, size)}
	for i := range p.clients {
		c, err := NewClient(opts)
		if err != nil {
			return nil, err
		}
		p.clients[i] = c
	}
	return p, nil
}

// Get returns the client at counter.fetch_add(1) mod size, per spec.md
// §4.2 — relaxed round robin, no fairness guarantee under contention.
func (p *Pool) Get() *Client {
	idx := p.next.Add(1) - 1
	return p.clients[idx%uint64(len(p.clients))]
}

// Size returns the number of clients in the pool.
func (p *Pool) Size() int {
	return len(p.clients)
}

// poolSize implements the sizing policy from spec.md §4.2: pool size =
// min(threads, 20).
func poolSize(threads int) int {
	if threads > 20 {
		return 20
	}
	if threads < 1 {
		return 1
	}
	return threads
}
