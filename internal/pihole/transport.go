package pihole

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"holesync/internal/config"
)

// newHTTPClient builds the per-device HTTP client: device timeout, optional
// SOCKS5 jump proxy, optional acceptance of self-signed certificates.
func newHTTPClient(dev config.DeviceConfig, fallbackTimeout time.Duration) (*http.Client, error) {
	timeout := fallbackTimeout
	if dev.Timeout > 0 {
		timeout = time.Duration(dev.Timeout) * time.Millisecond
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: timeout,
		}).DialContext,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if dev.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if dev.SocksProxy != "" {
		dialer, err := socksDialer(dev.SocksProxy, timeout)
		if err != nil {
			return nil, err
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

func socksDialer(rawURL string, timeout time.Duration) (proxy.Dialer, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse socks proxy %q: %w", rawURL, err)
	}
	if parsed.Scheme != "socks5" && parsed.Scheme != "socks5h" {
		return nil, fmt.Errorf("unsupported socks proxy scheme %q", parsed.Scheme)
	}

	var auth *proxy.Auth
	if parsed.User != nil {
		password, _ := parsed.User.Password()
		auth = &proxy.Auth{User: parsed.User.Username(), Password: password}
	}

	dialer, err := proxy.SOCKS5("tcp", parsed.Host, auth, &net.Dialer{
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("socks proxy %q: %w", rawURL, err)
	}
	return dialer, nil
}
