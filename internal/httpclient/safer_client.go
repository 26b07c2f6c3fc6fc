// Package httpclient provides an HTTP client that refuses to reach private
// networks. It is used for fetching remote module manifests whose URLs come
// from configuration.
package httpclient

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teranos/worldtree/errors"
)

// DefaultMaxBody caps how much of a response Fetch reads
const DefaultMaxBody = 1 << 20

// SaferClient wraps http.Client with SSRF protection
type SaferClient struct {
	*http.Client
	allowedSchemes []string
	blockPrivateIP bool
	maxRedirects   int
}

// SaferClientOptions allows customization of SSRF protection
type SaferClientOptions struct {
	AllowedSchemes []string // Default: ["http", "https"]
	MaxRedirects   *int     // Default: 10
	BlockPrivateIP *bool    // Default: true
}

// NewSaferClient creates an HTTP client with SSRF protection
func NewSaferClient(timeout time.Duration) *SaferClient {
	return NewSaferClientWithOptions(timeout, SaferClientOptions{})
}

// NewSaferClientWithOptions creates an HTTP client with custom SSRF protection options
func NewSaferClientWithOptions(timeout time.Duration, opts SaferClientOptions) *SaferClient {
	client := &SaferClient{
		Client:         &http.Client{Timeout: timeout},
		allowedSchemes: []string{"http", "https"},
		blockPrivateIP: true,
		maxRedirects:   10,
	}
	if opts.AllowedSchemes != nil {
		client.allowedSchemes = opts.AllowedSchemes
	}
	if opts.MaxRedirects != nil {
		client.maxRedirects = *opts.MaxRedirects
	}
	if opts.BlockPrivateIP != nil {
		client.blockPrivateIP = *opts.BlockPrivateIP
	}

	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= client.maxRedirects {
			return errors.Newf("stopped after %d redirects", client.maxRedirects)
		}
		if err := client.validateURL(req.URL); err != nil {
			return errors.Wrap(err, "redirect blocked")
		}
		return nil
	}

	if client.blockPrivateIP {
		client.Transport = guardedTransport()
	}
	return client
}

// guardedTransport resolves every host itself and refuses private
// addresses, which also covers DNS names pointing at internal hosts
func guardedTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, _, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, errors.Wrap(err, "invalid address")
			}
			ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to resolve host %q", host)
			}
			for _, ip := range ips {
				if isPrivateIP(ip) {
					return nil, errors.Newf("private IP address blocked: %s", ip)
				}
			}
			return dialer.DialContext(ctx, network, addr)
		},
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

func (c *SaferClient) validateURL(u *url.URL) error {
	scheme := strings.ToLower(u.Scheme)
	allowed := false
	for _, s := range c.allowedSchemes {
		if scheme == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return errors.Newf("scheme %q not allowed (allowed: %v)", scheme, c.allowedSchemes)
	}

	// http://evil.com@localhost/ style host confusion
	if u.User != nil || strings.Contains(u.Host, "@") {
		return errors.New("URL contains @ character (potential SSRF attempt)")
	}

	hostname := u.Hostname()
	if hostname == "" {
		return errors.New("URL missing hostname")
	}

	if c.blockPrivateIP {
		if isLocalhost(hostname) {
			return errors.New("localhost access blocked")
		}
		if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
			return errors.Newf("private IP address blocked: %s", hostname)
		}
	}
	return nil
}

// ValidateURL validates a URL string before creating a request
func (c *SaferClient) ValidateURL(urlStr string) (*url.URL, error) {
	u, err := url.Parse(urlStr)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if err := c.validateURL(u); err != nil {
		return nil, err
	}
	return u, nil
}

var privateBlocks = []net.IPNet{
	{IP: net.IPv4(10, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(172, 16, 0, 0), Mask: net.CIDRMask(12, 32)},
	{IP: net.IPv4(192, 168, 0, 0), Mask: net.CIDRMask(16, 32)},
	{IP: net.IPv4(127, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(169, 254, 0, 0), Mask: net.CIDRMask(16, 32)},
	{IP: net.IPv4(0, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(224, 0, 0, 0), Mask: net.CIDRMask(4, 32)},
	{IP: net.IPv4(240, 0, 0, 0), Mask: net.CIDRMask(4, 32)},
}

// isPrivateIP checks if an IP is in private/special use ranges
func isPrivateIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		for _, block := range privateBlocks {
			if block.Contains(ip4) {
				return true
			}
		}
		return false
	}
	if len(ip) != net.IPv6len {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}
	// fc00::/7 unique local
	if ip[0]&0xfe == 0xfc {
		return true
	}
	// fec0::/10 site-local, deprecated
	if ip[0] == 0xfe && ip[1]&0xc0 == 0xc0 {
		return true
	}
	// 2001:db8::/32 documentation
	return ip[0] == 0x20 && ip[1] == 0x01 && ip[2] == 0x0d && ip[3] == 0xb8
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "localhost.localdomain" ||
		strings.HasSuffix(hostname, ".localhost")
}

// Do executes an HTTP request with SSRF protection
func (c *SaferClient) Do(req *http.Request) (*http.Response, error) {
	if err := c.validateURL(req.URL); err != nil {
		return nil, errors.Wrap(err, "request blocked by SSRF protection")
	}
	return c.Client.Do(req)
}

// Fetch GETs urlStr and returns at most maxBody bytes of a 2xx body.
// maxBody <= 0 uses DefaultMaxBody.
func (c *SaferClient) Fetch(ctx context.Context, urlStr string, maxBody int64) ([]byte, error) {
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	u, err := c.ValidateURL(urlStr)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", urlStr)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("fetch %s: HTTP %d", urlStr, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", urlStr)
	}
	if int64(len(body)) > maxBody {
		return nil, errors.Newf("fetch %s: body exceeds %d bytes", urlStr, maxBody)
	}
	return body, nil
}

// WrapClient wraps an existing http.Client without private-network
// blocking. Only for tests against httptest servers on localhost.
func WrapClient(client *http.Client) *SaferClient {
	return &SaferClient{
		Client:         client,
		allowedSchemes: []string{"http", "https"},
		blockPrivateIP: false,
		maxRedirects:   10,
	}
}
