package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

func TestNormalizeUserAgent(t *testing.T) {
	tests := map[string]string{
		"Veritas/1.0 (Misinformation Detection Bot)": "Veritas",
		"curl/8.0":                                   "curl",
		"plain":                                      "plain",
		"":                                           "",
	}
	for in, want := range tests {
		if got := NormalizeUserAgent(in); got != want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRobotsChecker_Check(t *testing.T) {
	var robotsHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: Veritas\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Veritas/1.0 (test)", server.Client())
	ctx := context.Background()

	tests := []struct {
		path      string
		wantAllow bool
	}{
		{"/public/page", true},
		{"/private/page", false},
		{"/", true},
	}
	for _, tt := range tests {
		d, err := checker.Check(ctx, server.URL+tt.path)
		if err != nil {
			t.Fatalf("Check(%s): %v", tt.path, err)
		}
		if d.Allowed != tt.wantAllow {
			t.Errorf("Check(%s).Allowed = %v, want %v", tt.path, d.Allowed, tt.wantAllow)
		}
		if d.CrawlDelay != 2*time.Second {
			t.Errorf("Check(%s).CrawlDelay = %v, want 2s", tt.path, d.CrawlDelay)
		}
	}

	if got := robotsHits.Load(); got != 1 {
		t.Errorf("robots.txt fetched %d times, want 1", got)
	}
}

func TestRobotsChecker_CapsCrawlDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "User-agent: *\nCrawl-delay: 120\n")
	}))
	defer server.Close()

	checker := NewRobotsChecker("Veritas/1.0", server.Client())
	d, err := checker.Check(context.Background(), server.URL+"/page")
	if err != nil {
		t.Fatal(err)
	}
	if d.CrawlDelay != MaxCrawlDelay {
		t.Errorf("CrawlDelay = %v, want %v", d.CrawlDelay, MaxCrawlDelay)
	}
}

func TestRobotsChecker_StatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantAllow bool
	}{
		{"missing allows all", http.StatusNotFound, true},
		{"server error disallows all", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			checker := NewRobotsChecker("Veritas/1.0", server.Client())
			d, err := checker.Check(context.Background(), server.URL+"/anything")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Allowed != tt.wantAllow {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tt.wantAllow)
			}
		})
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	checker := NewRobotsChecker("Veritas/1.0", &http.Client{Timeout: time.Second})
	d, err := checker.Check(context.Background(), addr+"/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Allowed {
		t.Error("expected unreachable robots.txt to allow the fetch")
	}

	if _, err := checker.Check(context.Background(), "/relative"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy:3128", "http://secure-proxy:3128", "internal.local, other.local")

	tests := []struct {
		target string
		want   string
	}{
		{"http://example.com/a", "http://proxy:3128"},
		{"https://example.com/a", "http://secure-proxy:3128"},
		{"https://internal.local/a", ""},
		{"http://other.local/a", ""},
	}

	for _, tt := range tests {
		u, _ := url.Parse(tt.target)
		got, err := proxy(&http.Request{URL: u})
		if err != nil {
			t.Fatalf("proxy(%s) error: %v", tt.target, err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != tt.want {
			t.Errorf("proxy(%s) = %q, want %q", tt.target, gotStr, tt.want)
		}
	}
}

func TestNewHTTPClient_RedirectLimit(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	client := NewHTTPClient(5*time.Second, model.HTTPConfig{})
	resp, err := client.Get(server.URL + "/")
	if err == nil {
		_ = resp.Body.Close()
		t.Fatal("expected redirect limit error")
	}
}
