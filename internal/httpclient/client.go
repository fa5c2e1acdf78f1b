// Package httpclient builds the HTTP client used to crawl live sites.
//
// Requests go out directly by default. A SOCKS5 proxy can be configured
// for sites only reachable through a bastion, and fixed headers or a
// cookie can be injected for staging sites behind a login.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// Default client settings.
const (
	DefaultTimeout = 30 * time.Second

	// maxRedirects stops redirect loops.
	maxRedirects = 10
)

var (
	// ErrInvalidProxyAddress is returned when the proxy address is not in
	// "host:port" form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

	// ErrInvalidHeader is returned by ParseHeader for a value that is not
	// in "Name: value" form.
	ErrInvalidHeader = errors.New("invalid header: expected \"Name: value\"")
)

// options collects the client settings.
type options struct {
	proxyAddress string
	timeout      time.Duration
	headers      map[string]string
	cookie       string
}

// Option configures the client returned by New.
type Option func(*options)

// WithProxy routes all connections through the SOCKS5 proxy at address
// ("127.0.0.1:1080"). An empty address means direct connections.
func WithProxy(address string) Option {
	return func(o *options) {
		o.proxyAddress = address
	}
}

// WithTimeout sets the timeout of a whole request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithHeaders adds headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithCookie adds a raw cookie string ("session=abc") to every request.
func WithCookie(cookie string) Option {
	return func(o *options) {
		o.cookie = cookie
	}
}

// New creates an HTTP client with the given options.
// The proxy address is validated but not contacted.
func New(opts ...Option) (*http.Client, error) {
	o := &options{
		timeout: DefaultTimeout,
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(o)
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}

	if o.proxyAddress != "" {
		if !isValidProxyAddress(o.proxyAddress) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProxyAddress, o.proxyAddress)
		}
		dialer, err := proxy.SOCKS5("tcp", o.proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.Proxy = nil
		transport.DialContext = dialContext(dialer)
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	client := &http.Client{
		Transport: transport,
		Timeout:   o.timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	if o.cookie != "" || len(o.headers) > 0 {
		client.Transport = &headerInjectingTransport{
			base:    transport,
			cookie:  o.cookie,
			headers: o.headers,
		}
	}

	return client, nil
}

// dialContext adapts a proxy dialer to http.Transport.DialContext.
// The SOCKS5 dialer of x/net supports contexts directly.
func dialContext(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}
}

// isValidProxyAddress checks for a non-empty host and a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// ParseHeader splits a "Name: value" flag value.
func ParseHeader(raw string) (string, string, error) {
	name, value, ok := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidHeader, raw)
	}
	return name, strings.TrimSpace(value), nil
}

// headerInjectingTransport adds fixed headers and a cookie to every
// request, redirects included.
type headerInjectingTransport struct {
	base    http.RoundTripper
	cookie  string
	headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *headerInjectingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if t.cookie != "" {
		if existing := clone.Header.Get("Cookie"); existing != "" {
			clone.Header.Set("Cookie", existing+"; "+t.cookie)
		} else {
			clone.Header.Set("Cookie", t.cookie)
		}
	}

	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}

	return t.base.RoundTrip(clone)
}
