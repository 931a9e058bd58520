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

package curlparse

import "testing"

func TestParseSimpleGet(t *testing.T) {
	tmpl, err := Parse("curl https://example.com")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tmpl.URL != "https://example.com" {
		t.Fatalf("URL = %q", tmpl.URL)
	}
	if tmpl.Method != "GET" {
		t.Fatalf("Method = %q, want GET", tmpl.Method)
	}
}

func TestParsePostWithData(t *testing.T) {
	cmd := `curl -X POST -H "Content-Type: application/json" -d '{"key":"value"}' https://api.example.com`
	tmpl, err := Parse(cmd)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tmpl.URL != "https://api.example.com" {
		t.Fatalf("URL = %q", tmpl.URL)
	}
	if tmpl.Method != "POST" {
		t.Fatalf("Method = %q, want POST", tmpl.Method)
	}
	if tmpl.Headers["Content-Type"] != "application/json" {
		t.Fatalf("Content-Type header = %q", tmpl.Headers["Content-Type"])
	}
	if tmpl.Body != `{"key":"value"}` {
		t.Fatalf("Body = %q", tmpl.Body)
	}
}

func TestParseDataWithoutExplicitMethodDefaultsToPost(t *testing.T) {
	tmpl, err := Parse(`curl -d 'hello' https://example.com`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tmpl.Method != "POST" {
		t.Fatalf("Method = %q, want POST", tmpl.Method)
	}
}

func TestParseBasicAuth(t *testing.T) {
	tmpl, err := Parse("curl -u alice:secret https://api.example.com")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := "Basic YWxpY2U6c2VjcmV0"
	if tmpl.Headers["Authorization"] != want {
		t.Fatalf("Authorization = %q, want %q", tmpl.Headers["Authorization"], want)
	}
}

func TestParseCompressed(t *testing.T) {
	tmpl, err := Parse("curl --compressed https://example.com")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tmpl.Headers["Accept-Encoding"] != "gzip, deflate" {
		t.Fatalf("Accept-Encoding = %q", tmpl.Headers["Accept-Encoding"])
	}
}

func TestParseMissingURL(t *testing.T) {
	if _, err := Parse("curl -X POST"); err == nil {
		t.Fatalf("expected error for missing URL")
	}
}

func TestParseQuotedHeaderWithSpaces(t *testing.T) {
	tmpl, err := Parse(`curl -H "Authorization: Bearer token123" https://api.example.com`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if tmpl.Headers["Authorization"] != "Bearer token123" {
		t.Fatalf("Authorization = %q", tmpl.Headers["Authorization"])
	}
}
