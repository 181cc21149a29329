package normalize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/util"
	"github.com/ppiankov/veritas/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a page.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Page is the readable content of a fetched web page.
type Page struct {
	Title    string
	Text     string // Heading, paragraph and article text
	FinalURL string
}

// PageFetcher retrieves and extracts a web page.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (*Page, error)
}

// Fetcher fetches HTML pages over HTTP.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
}

// NewFetcher creates a Fetcher from cfg. limiter may be nil.
func NewFetcher(cfg model.HTTPConfig, limiter *worker.Limiter) *Fetcher {
	client := util.NewHTTPClient(cfg.Timeout, cfg)

	var robots *util.RobotsChecker
	if cfg.RespectRobots {
		robots = util.NewRobotsChecker(cfg.UserAgent, client)
	}

	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}

	return &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   maxBytes,
		robots:     robots,
		limiter:    limiter,
	}
}

// FetchPage retrieves rawURL and extracts its title and readable text.
func (f *Fetcher) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	var crawlDelay time.Duration
	if f.robots != nil {
		d, err := f.robots.Check(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !d.Allowed {
			return nil, ErrDisallowed
		}
		crawlDelay = d.CrawlDelay
	}

	if err := f.limiter.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	page := extractPage(doc)
	page.FinalURL = resp.Request.URL.String()
	if page.Title == "" && page.Text == "" {
		return nil, errors.New("no readable content")
	}
	return page, nil
}

// Elements whose text makes up the readable body of a page.
var contentTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "article": true,
}

func extractPage(doc *html.Node) *Page {
	var title string
	var blocks []string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case skipTag(n.Data):
				return
			case n.Data == "title" && title == "":
				title = visibleText(n)
				return
			case contentTags[n.Data]:
				if text := visibleText(n); text != "" {
					blocks = append(blocks, text)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return &Page{Title: title, Text: strings.Join(blocks, " ")}
}

func skipTag(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "iframe":
		return true
	}
	return false
}

// visibleText collects text nodes under n, skipping scripts and styles,
// with whitespace collapsed.
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTag(n.Data) {
			return
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(buf.String()), " ")
}
