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

// Package cliopts registers the flags shared by cmd/loadforge and
// cmd/loadforge-curl and turns them into an engine.RunnerOptions plus the
// collaborator inputs (templates, variable bindings). Grounded on
// bincommon/commonflags.go's flag-variable-then-transfer-function shape,
// using the standard library flag package instead of fortio.org/dflag
// since loadforge has no hot-reload server mode to serve (see DESIGN.md).
package cliopts

import (
	"flag"
	"fmt"
	"strings"

	"github.com/loadforge/loadforge/internal/curlparse"
	"github.com/loadforge/loadforge/internal/engine"
	"github.com/loadforge/loadforge/internal/reqtemplate"
	"github.com/loadforge/loadforge/internal/vartemplate"
)

// headerFlagList supports multiple instances of -H on the command line,
// the same pattern as bincommon's headersFlagList.
type headerFlagList struct {
	values map[string]string
}

func (h *headerFlagList) String() string { return "" }

func (h *headerFlagList) Set(value string) error {
	k, v, ok := strings.Cut(value, ":")
	if !ok {
		return fmt.Errorf("invalid -H value %q, expected key:value", value)
	}
	if h.values == nil {
		h.values = make(map[string]string)
	}
	h.values[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}

// varFlagList supports multiple instances of -var name=definition.
type varFlagList struct {
	values map[string]string
}

func (v *varFlagList) String() string { return "" }

func (v *varFlagList) Set(value string) error {
	k, def, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("invalid -var value %q, expected name=definition", value)
	}
	if v.values == nil {
		v.values = make(map[string]string)
	}
	v.values[k] = def
	return nil
}

var (
	urlFlag      = flag.String("url", "", "Target URL for a single-template run")
	methodFlag   = flag.String("X", "", "HTTP method to use (default GET, or POST if -data is set)")
	dataFlag     = flag.String("data", "", "Request body to send")
	headersFlags headerFlagList
	varFlags     varFlagList

	parseCurlFlag     = flag.String("parse-curl", "", "Parse a `curl command` as the request template instead of -url")
	parseCurlFileFlag = flag.String("parse-curl-file", "", "`Path` to a file of curl commands, one per line, for multi-template runs")

	connectionsFlag = flag.Int("c", 10, "Target total logical connections")
	threadsFlag     = flag.Int("t", 0, "Worker-thread count; 0 means the number of logical CPUs")
	durationFlag    = flag.String("d", "10s", "Total run `duration` (ms/s/m/h, bare number defaults to seconds)")
	rateFlag        = flag.Float64("r", 0, "Per-task requests/sec cap; 0 means unlimited")
	timeoutFlag     = flag.String("timeout", "3s", "Per-request wall-clock `timeout`")
	strategyFlag    = flag.String("load-strategy", "random", "Template selection policy: random or round-robin")

	h2Flag        = flag.Bool("h2", false, "Attempt HTTP/2 negotiation in addition to HTTP/1.1")
	keepAliveFlag = flag.Bool("keepalive", true, "Keep connections alive and reused across requests")
	latencyFlag   = flag.Bool("latency", false, "Include the percentile block in the final report")
	liveUIFlag    = flag.Bool("live-ui", false, "Render a live terminal panel of periodic statistics while the run is in progress")

	insecureFlag = flag.Bool("k", false, "Do not verify certs in https connections")
	certFlag     = flag.String("cert", "", "`Path` to the client certificate file for TLS")
	keyFlag      = flag.String("key", "", "`Path` to the key file matching -cert")
	caCertFlag   = flag.String("cacert", "", "`Path` to a custom CA certificate file")
	mtlsFlag     = flag.Bool("mtls", false, "Set the server-side client-auth fields (ClientAuth, ClientCAs from -cacert) on the TLS config; crypto/tls ignores them on the client connections the engine makes")

	batchConfigFlag = flag.String("batch-config", "", "`Path` to a batch config file (JSON or YAML) of engine configurations to run sequentially")
)

func init() {
	flag.Var(&headersFlags, "H", "Additional HTTP header, as `key:value`. Repeatable.")
	flag.Var(&varFlags, "var", "Template variable binding, as `name=definition` (e.g. user_id=random:1-1000). Repeatable.")
}

// BatchConfigPath returns the -batch-config flag value, or "" if unset.
func BatchConfigPath() string {
	return *batchConfigFlag
}

// Templates builds the request template set from whichever of -url,
// -parse-curl or -parse-curl-file was supplied, per spec.md §6's
// "url / templates" engine input.
func Templates() ([]*reqtemplate.Template, error) {
	switch {
	case *parseCurlFileFlag != "":
		templates, errs := curlparse.ParseFile(*parseCurlFileFlag)
		if len(templates) == 0 {
			return nil, fmt.Errorf("no templates parsed from %s: %v", *parseCurlFileFlag, errs)
		}
		return templates, nil
	case *parseCurlFlag != "":
		tmpl, err := curlparse.Parse(*parseCurlFlag)
		if err != nil {
			return nil, err
		}
		return []*reqtemplate.Template{tmpl}, nil
	case *urlFlag != "":
		headers := make(map[string]string, len(headersFlags.values))
		for k, v := range headersFlags.values {
			headers[k] = v
		}
		method := *methodFlag
		if method == "" && *dataFlag != "" {
			method = "POST"
		}
		return []*reqtemplate.Template{reqtemplate.New(method, *urlFlag, headers, *dataFlag)}, nil
	default:
		return nil, fmt.Errorf("one of -url, -parse-curl or -parse-curl-file is required")
	}
}

// Substituter builds the shared vartemplate.Engine seeded with every
// -var binding from the command line.
func Substituter() (*vartemplate.Engine, error) {
	eng := vartemplate.New()
	for name, def := range varFlags.values {
		if err := eng.AddVariable(name, def); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

// RunnerOptions builds engine.RunnerOptions from the registered flags,
// plus the already-resolved templates and substituter (so callers that
// build these from a batch config entry instead of flags can reuse the
// rest of this transfer logic... though batch currently builds its own
// engine.RunnerOptions directly; this path serves the two cmd/ binaries).
func RunnerOptions(templates []*reqtemplate.Template, substituter engine.Substituter) (engine.RunnerOptions, error) {
	duration, err := engine.ParseDuration(*durationFlag)
	if err != nil {
		return engine.RunnerOptions{}, fmt.Errorf("invalid -d: %w", err)
	}
	timeout, err := engine.ParseDuration(*timeoutFlag)
	if err != nil {
		return engine.RunnerOptions{}, fmt.Errorf("invalid -timeout: %w", err)
	}
	return engine.RunnerOptions{
		Templates:   templates,
		Connections: *connectionsFlag,
		Threads:     *threadsFlag,
		Duration:    duration,
		Rate:        *rateFlag,
		Timeout:     timeout,
		Strategy:    engine.ParseStrategy(*strategyFlag),
		HTTP2:       *h2Flag,
		KeepAlive:   *keepAliveFlag,
		Substituter: substituter,
		TLS: engine.TLSOptions{
			Insecure: *insecureFlag,
			MTLS:     *mtlsFlag,
			CACert:   *caCertFlag,
			Cert:     *certFlag,
			Key:      *keyFlag,
		},
	}, nil
}

// Latency reports whether -latency was passed.
func Latency() bool { return *latencyFlag }

// LiveUI reports whether -live-ui was passed.
func LiveUI() bool { return *liveUIFlag }
