package util

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

const maxRedirects = 3

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	bypass := splitNoProxy(noProxy)
	return func(req *http.Request) (*url.URL, error) {
		if bypass[req.URL.Hostname()] {
			return nil, nil
		}
		if req.URL.Scheme == "https" && httpsProxy != "" {
			return url.Parse(httpsProxy)
		}
		if httpProxy != "" {
			return url.Parse(httpProxy)
		}
		return http.ProxyFromEnvironment(req)
	}
}

// NewHTTPClient returns an outbound client honouring the proxy settings in cfg.
// Redirect chains longer than three hops are rejected.
func NewHTTPClient(timeout time.Duration, cfg model.HTTPConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

func splitNoProxy(noProxy string) map[string]bool {
	hosts := make(map[string]bool)
	for _, host := range strings.Split(noProxy, ",") {
		if host = strings.TrimSpace(host); host != "" {
			hosts[host] = true
		}
	}
	return hosts
}
