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
	"crypto/tls"
	"crypto/x509"
	"os"

	"fortio.org/log"
)

// TLSOptions are the TLS related knobs the engine exposes to callers.
// Mirrors the shape of fortio's own TLSOptions/TLSConfig split: client cert,
// custom CA, and insecure mode for self-signed mock servers.
type TLSOptions struct {
	Insecure bool   // do not verify certs (for talking to self-signed mocks)
	MTLS     bool   // set ClientAuth/ClientCAs; crypto/tls reads these only on the server side
	CACert   string // path to a custom CA certificate file
	Cert     string // path to the client certificate file
	Key      string // path to the key file matching Cert
}

// Config builds a *tls.Config from the options. Used once per Client at
// construction time, never per-request.
func (to *TLSOptions) Config() (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if to.Insecure {
		log.LogVf("using insecure https (certs not verified)")
		cfg.InsecureSkipVerify = true
	}
	if to.Cert != "" && to.Key != "" {
		cert, err := tls.LoadX509KeyPair(to.Cert, to.Key)
		if err != nil {
			log.Errf("LoadX509KeyPair error for cert %v / key %v: %v", to.Cert, to.Key, err)
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if to.CACert != "" {
		caCert, err := os.ReadFile(to.CACert)
		if err != nil {
			log.Errf("unable to read CA from %v: %v", to.CACert, err)
			return nil, err
		}
		pool := x509.NewCertPool()
		pool.AppendCertsFromPEM(caCert)
		cfg.RootCAs = pool
	}
	if to.MTLS {
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
		cfg.ClientCAs = cfg.RootCAs
	}
	return cfg, nil
}
