// Copyright 2018 Fortio Authors
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

// Command loadforge-curl performs a single HTTP request through the same
// client and connection-state machine the benchmark engine uses (one
// request, no keep-alive reuse across calls) — a debugging aid for
// checking a template's headers/body/TLS settings before running a full
// benchmark with them.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"fortio.org/cli"
	"fortio.org/log"

	"github.com/loadforge/loadforge/internal/cliopts"
	"github.com/loadforge/loadforge/internal/engine"
)

func main() {
	cli.ProgramName = "loadforge-curl"
	cli.ArgsHelp = "url"
	cli.MinArgs = 1
	cli.MaxArgs = 1
	cli.Main()

	templates, err := cliopts.Templates()
	if err != nil {
		// -url wasn't set; fall back to the bare positional argument.
		templates = nil
	}
	var method, url, body string
	headers := map[string]string{}
	if len(templates) == 1 {
		method, url, body = templates[0].Method, templates[0].URL, templates[0].Body
		headers = templates[0].Headers
	} else {
		url = flag.Arg(0)
		method = "GET"
	}

	substituter, err := cliopts.Substituter()
	if err != nil {
		cli.ErrUsage("%v", err)
	}
	url = substituter.Process(url)
	body = substituter.Process(body)

	opts, err := cliopts.RunnerOptions(nil, substituter)
	if err != nil {
		cli.ErrUsage("%v", err)
	}

	client, err := engine.NewClient(engine.Options{TLS: opts.TLS, Timeout: opts.Timeout, HTTP2: opts.HTTP2, KeepAlive: false})
	if err != nil {
		log.Fatalf("building client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout+time.Second)
	defer cancel()

	status, bytesRead, err := client.Do(ctx, engine.NewClientState(), method, url, headers, []byte(body))
	if err != nil {
		log.Errf("fetch failed: %v", err)
		os.Exit(1)
	}
	log.Infof("%s %s -> %d (%d bytes)", method, url, status, bytesRead)
	if status < 200 || status >= 400 {
		os.Exit(1)
	}
}
