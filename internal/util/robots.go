package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

const (
	robotsTTL        = time.Hour
	robotsFailureTTL = 5 * time.Minute
	robotsMaxBytes   = 512 << 10

	// MaxCrawlDelay caps the Crawl-delay honored for a single page fetch.
	MaxCrawlDelay = 10 * time.Second
)

// RobotsDecision is the outcome of a robots.txt check for one URL.
type RobotsDecision struct {
	Allowed    bool
	CrawlDelay time.Duration
}

// RobotsChecker answers robots.txt questions for page fetches. Parsed files
// are cached per origin; origins whose robots.txt could not be read are
// treated as allow-all for a short while.
type RobotsChecker struct {
	client    *http.Client
	userAgent string
	token     string
	files     *gocache.Cache
}

// NewRobotsChecker creates a checker that identifies itself as userAgent.
func NewRobotsChecker(userAgent string, client *http.Client) *RobotsChecker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsChecker{
		client:    client,
		userAgent: userAgent,
		token:     NormalizeUserAgent(userAgent),
		files:     gocache.New(robotsTTL, robotsTTL),
	}
}

// Check reports whether rawURL may be fetched and the crawl delay to apply.
// Only a malformed URL is an error.
func (r *RobotsChecker) Check(ctx context.Context, rawURL string) (RobotsDecision, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return RobotsDecision{}, fmt.Errorf("parse URL: %w", err)
	}
	if u.Host == "" {
		return RobotsDecision{}, fmt.Errorf("parse URL: no host in %q", rawURL)
	}

	data := r.robotsFor(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return RobotsDecision{Allowed: true}, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	d := RobotsDecision{Allowed: data.TestAgent(path, r.token)}
	if group := data.FindGroup(r.token); group != nil {
		d.CrawlDelay = min(group.CrawlDelay, MaxCrawlDelay)
	}
	return d, nil
}

// robotsFor returns the parsed robots.txt of origin, or nil when it could
// not be read.
func (r *RobotsChecker) robotsFor(ctx context.Context, origin string) *robotstxt.RobotsData {
	if v, ok := r.files.Get(origin); ok {
		data, _ := v.(*robotstxt.RobotsData)
		return data
	}

	data, err := r.download(ctx, origin+"/robots.txt")
	if err != nil {
		if ctx.Err() == nil {
			r.files.Set(origin, (*robotstxt.RobotsData)(nil), robotsFailureTTL)
		}
		return nil
	}
	r.files.Set(origin, data, gocache.DefaultExpiration)
	return data
}

func (r *RobotsChecker) download(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBytes))
	if err != nil {
		return nil, err
	}
	// 4xx allows everything, 5xx disallows everything.
	return robotstxt.FromStatusAndBytes(resp.StatusCode, body)
}

// NormalizeUserAgent returns the product token of ua ("Veritas/1.0 (...)" -> "Veritas").
func NormalizeUserAgent(ua string) string {
	fields := strings.Fields(ua)
	if len(fields) == 0 {
		return ua
	}
	token, _, _ := strings.Cut(fields[0], "/")
	return token
}
