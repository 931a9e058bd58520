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

// Package mockserver is a small self-test HTTP server: configurable status
// code, response body and artificial delay, plus an echo mode that
// reflects the request body back so substituted bodies can be asserted on
// in tests. Grounded on the query-string-driven echo handler the teacher
// ships for self-testing (status=, size=, delay= query parameters).
package mockserver

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	"fortio.org/log"
)

// Options configure the mock server's default behavior; Status, Delay and
// Echo can be overridden per-request via the status, delay and echo=true
// query parameters. Body has no per-request override.
type Options struct {
	Status int           // default response status; 0 defaults to 200
	Body   []byte        // default response body
	Delay  time.Duration // default artificial delay before responding
	Echo   bool          // echo mode: reflect the request body back verbatim
}

// Server wraps an httptest.Server configured with the echo/status/delay
// handler.
type Server struct {
	*httptest.Server
}

// New starts a mock server listening on an ephemeral local port.
func New(opts Options) *Server {
	if opts.Status == 0 {
		opts.Status = http.StatusOK
	}
	if len(opts.Body) == 0 {
		opts.Body = []byte("ok\n")
	}
	ts := httptest.NewServer(handler(opts))
	return &Server{Server: ts}
}

func handler(defaults Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := defaults.Status
		if s := r.URL.Query().Get("status"); s != "" {
			if v, err := strconv.Atoi(s); err == nil {
				status = v
			}
		}
		delay := defaults.Delay
		if d := r.URL.Query().Get("delay"); d != "" {
			if v, err := time.ParseDuration(d); err == nil {
				delay = v
			}
		}
		if delay > 0 {
			time.Sleep(delay)
		}
		body := defaults.Body
		echo := defaults.Echo || r.URL.Query().Get("echo") == "true"
		if echo {
			b, err := io.ReadAll(r.Body)
			if err != nil {
				log.Errf("mockserver: error reading body: %v", err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			body = b
		} else {
			// Drain the body even when not echoing, so keep-alive clients
			// can reuse the connection on the next request.
			_, _ = io.Copy(io.Discard, r.Body)
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}
}
