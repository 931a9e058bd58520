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

// Package reqtemplate holds the immutable description of one request kind:
// method, URL pattern, headers and body pattern. Templates are produced by
// collaborators (curlparse, or a single -url flag) and are never mutated
// once the engine starts; they are shared read-only across all workers.
package reqtemplate

import (
	"net/http"
	"strings"
)

// knownMethods is the set of HTTP methods the engine recognizes verbatim;
// anything else is normalized to GET.
var knownMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodPatch:   true,
	http.MethodOptions: true,
}

// Template is an immutable, parametric request description. Once built via
// New it must not be mutated: it is shared read-only across all worker
// tasks and their ClientState.
type Template struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// New builds a Template, normalizing the method the way the engine expects:
// unknown or empty methods fall back to GET. Headers is copied defensively
// so the caller's map can be reused or mutated afterward.
func New(method, url string, headers map[string]string, body string) *Template {
	m := strings.ToUpper(strings.TrimSpace(method))
	if !knownMethods[m] {
		m = http.MethodGet
	}
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return &Template{Method: m, URL: url, Headers: h, Body: body}
}

// Endpoint returns the grouping key used for per-endpoint statistics: the
// template's URL, unchanged. Substitution happens per-request, not here;
// the raw (pre-substitution) URL is what stats group by, matching spec's
// "endpoint set to the template's URL" rule.
func (t *Template) Endpoint() string {
	return t.URL
}
