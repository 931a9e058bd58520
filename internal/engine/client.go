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
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fortio.org/log"
	"golang.org/x/net/http2"
)

// Options configure a Client. A Client value is cheap to share: it holds
// only TLS configuration and connection factory parameters, never per-task
// state (see ClientState for the mutable, task-owned half).
type Options struct {
	TLS       TLSOptions
	Timeout   time.Duration
	HTTP2     bool
	KeepAlive bool
}

// Client is a thread-safe, cheaply cloneable factory for logical
// connections. It never holds a socket itself; ClientState does.
type Client struct {
	tlsConfig *tls.Config
	timeout   time.Duration
	http2     bool
	keepAlive bool
	h2t       *http2.Transport
}

// NewClient builds a Client from Options, building this client's own
// *tls.Config from o.TLS (each call builds a fresh one).
func NewClient(o Options) (*Client, error) {
	cfg, err := o.TLS.Config()
	if err != nil {
		return nil, err
	}
	c := &Client{
		tlsConfig: cfg,
		timeout:   o.Timeout,
		http2:     o.HTTP2,
		keepAlive: o.KeepAlive,
	}
	if o.HTTP2 {
		c.h2t = &http2.Transport{}
	}
	return c, nil
}

// ClientState is the per-logical-connection mutable state described in
// spec.md §3/§4.1: created empty, mutated only by its owning worker task,
// discarded (closed) when the task exits. Never shared across goroutines.
type ClientState struct {
	conn      net.Conn
	br        *bufio.Reader
	h2cc      *http2.ClientConn
	authority string // host:port this connection is bound to
	isTLS     bool
}

// NewClientState returns an empty ClientState (the "Empty" state of the
// state machine in spec.md §4.1).
func NewClientState() *ClientState {
	return &ClientState{}
}

// Close releases the connection held by state, if any. Safe to call on an
// already-empty state.
func (s *ClientState) Close() {
	if s.h2cc != nil {
		s.h2cc.Close() //nolint:errcheck
		s.h2cc = nil
	}
	if s.conn != nil {
		s.conn.Close() //nolint:errcheck
		s.conn = nil
	}
	s.br = nil
	s.authority = ""
}

func splitAuthority(u *url.URL) (host, port string, isTLS bool) {
	isTLS = strings.EqualFold(u.Scheme, "https")
	host = u.Hostname()
	port = u.Port()
	if port == "" {
		if isTLS {
			port = "443"
		} else {
			port = "80"
		}
	}
	return host, port, isTLS
}

// connect dials (and, for https, TLS-handshakes) a fresh connection to u's
// authority, replacing whatever state previously held. This is the
// Empty -> Connecting -> Ready transition of spec.md §4.1.
func (c *Client) connect(ctx context.Context, state *ClientState, u *url.URL, deadline time.Time) error {
	host, port, isTLS := splitAuthority(u)
	authority := net.JoinHostPort(host, port)
	state.Close()
	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", authority)
	if err != nil {
		log.Debugf("connect to %s failed: %v", authority, err)
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	_ = conn.SetDeadline(deadline)
	if isTLS {
		tlsConn := tls.Client(conn, withServerName(c.tlsConfig, host))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close() //nolint:errcheck
			return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
		}
		conn = tlsConn
		if c.http2 && c.h2t != nil && tlsConn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
			cc, err := c.h2t.NewClientConn(conn)
			if err != nil {
				conn.Close() //nolint:errcheck
				return fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
			}
			// An H2 ClientConn is reused across many requests (spec.md
			// §4.1 keep-alive reuse), so it cannot carry a single pinned
			// absolute deadline the way an H1 socket does: attemptH2
			// enforces the per-request deadline itself via the RoundTrip
			// context instead.
			_ = conn.SetDeadline(time.Time{})
			state.conn = conn
			state.h2cc = cc
			state.authority = authority
			state.isTLS = true
			return nil
		}
	}
	state.conn = conn
	state.br = bufio.NewReader(conn)
	state.authority = authority
	state.isTLS = isTLS
	return nil
}

func withServerName(base *tls.Config, host string) *tls.Config {
	cfg := base.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	return cfg
}

// countingReader counts bytes read through it without buffering them; it
// is the "streamed and discarded while counting bytes" mechanism required
// by spec.md §4.1(e).
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Do performs one request(state, method, url, headers, body) operation as
// specified in spec.md §4.1: reuse the connection in state if present,
// otherwise dial and handshake; write the request; read the status line;
// stream and discard the body while counting bytes; on a stale connection
// transparently reconnect and retry once, within the overall timeout.
func (c *Client) Do(ctx context.Context, state *ClientState, method, rawURL string, headers map[string]string, body []byte) (int, int64, error) {
	start := time.Now()
	deadline := start.Add(c.timeout)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	_, _, isTLS := splitAuthority(u)
	if state.conn == nil || (state.isTLS != isTLS) || !sameAuthority(state.authority, u) {
		if err := c.connect(ctx, state, u, deadline); err != nil {
			return 0, 0, err
		}
	}

	status, n, err := c.attempt(ctx, state, method, u, headers, body, deadline)
	if err != nil && isRetryable(err) {
		// A stale keep-alive connection fails the same way a deadline
		// expiry does (both surface as ErrSendFailed); check the deadline
		// first so a genuinely expired request reports Timeout instead of
		// racing net.Dialer into an immediate, misleading ConnectFailed.
		if time.Now().After(deadline) {
			return 0, 0, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		// stale keep-alive connection: reconnect once and retry, per
		// spec.md §4.1(g).
		if cerr := c.connect(ctx, state, u, deadline); cerr != nil {
			return 0, 0, classifyDeadline(cerr, deadline)
		}
		status, n, err = c.attempt(ctx, state, method, u, headers, body, deadline)
	}
	if err != nil {
		return 0, 0, classifyDeadline(err, deadline)
	}
	return status, n, nil
}

// classifyDeadline reports err as ErrTimeout if deadline has already
// passed, and verbatim otherwise, per spec.md §4.1(h): the wall-clock
// timeout covers the whole operation, so any failure discovered after it
// elapsed is a timeout regardless of its underlying cause.
func classifyDeadline(err error, deadline time.Time) error {
	if time.Now().After(deadline) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func sameAuthority(stateAuthority string, u *url.URL) bool {
	host, port, _ := splitAuthority(u)
	return stateAuthority == net.JoinHostPort(host, port)
}

func isRetryable(err error) bool {
	return errors.Is(err, ErrSendFailed)
}

func (c *Client) attempt(ctx context.Context, state *ClientState, method string, u *url.URL, headers map[string]string, body []byte, deadline time.Time) (int, int64, error) {
	if state.h2cc != nil {
		return c.attemptH2(ctx, state, method, u, headers, body, deadline)
	}
	return c.attemptH1(state, method, u, headers, body, deadline)
}

func (c *Client) attemptH1(state *ClientState, method string, u *url.URL, headers map[string]string, body []byte, deadline time.Time) (int, int64, error) {
	_ = state.conn.SetDeadline(deadline)
	if err := writeRequest(state.conn, method, u, headers, body); err != nil {
		state.Close()
		return 0, 0, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	resp, err := http.ReadResponse(state.br, nil)
	if err != nil {
		state.Close()
		return 0, 0, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	cr := &countingReader{r: resp.Body}
	_, _ = io.Copy(io.Discard, cr)
	resp.Body.Close() //nolint:errcheck
	if resp.Close || !c.keepAlive {
		state.Close()
	}
	return resp.StatusCode, cr.n, nil
}

func (c *Client) attemptH2(ctx context.Context, state *ClientState, method string, u *url.URL, headers map[string]string, body []byte, deadline time.Time) (int, int64, error) {
	reqCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, method, u.String(), bodyReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrBuildRequestFailed, err)
	}
	applyHeaders(req, u, headers)
	resp, err := state.h2cc.RoundTrip(req)
	if err != nil {
		state.Close()
		return 0, 0, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	cr := &countingReader{r: resp.Body}
	_, _ = io.Copy(io.Discard, cr)
	resp.Body.Close() //nolint:errcheck
	return resp.StatusCode, cr.n, nil
}

func bodyReader(body []byte) io.Reader {
	if len(body) == 0 {
		return nil
	}
	return strings.NewReader(string(body))
}

func applyHeaders(req *http.Request, u *url.URL, headers map[string]string) {
	req.Host = u.Host
	for k, v := range headers {
		if strings.EqualFold(k, "host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
}

func writeRequest(w io.Writer, method string, u *url.URL, headers map[string]string, body []byte) error {
	bw := bufio.NewWriter(w)
	path := u.RequestURI()
	if path == "" {
		path = "/"
	}
	if _, err := fmt.Fprintf(bw, "%s %s HTTP/1.1\r\n", method, path); err != nil {
		return err
	}
	host := u.Host
	hasHost := false
	for k := range headers {
		if strings.EqualFold(k, "host") {
			hasHost = true
			break
		}
	}
	if !hasHost {
		if _, err := fmt.Fprintf(bw, "Host: %s\r\n", host); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "Content-Length: %d\r\n", len(body)); err != nil {
		return err
	}
	for k, v := range headers {
		if _, err := fmt.Fprintf(bw, "%s: %s\r\n", k, v); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\r\n"); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := bw.Write(body); err != nil {
			return err
		}
	}
	return bw.Flush()
}
