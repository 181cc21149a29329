package normalize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/veritas/internal/model"
)

type stubFetcher struct {
	page *Page
	err  error
	hits int
}

func (s *stubFetcher) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	s.hits++
	return s.page, s.err
}

func TestExtractKeywords(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"stop words and short tokens dropped", "The earth is flat and has been proven by scientists.", "earth flat proven scientists"},
		{"punctuation stripped", "Vaccines-cause autism? Study: no!", "vaccines cause autism study"},
		{"keeps first eight", "alpha bravo charlie delta echo foxtrot golf hotel india juliet", "alpha bravo charlie delta echo foxtrot golf hotel"},
		{"unicode words", "Überraschung: Café öffnet", "überraschung café öffnet"},
		{"fallback to raw text", "It is on a ...", "It is on a ..."},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractKeywords(tt.in); got != tt.want {
				t.Errorf("ExtractKeywords(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractKeywords_FallbackTruncates(t *testing.T) {
	in := strings.Repeat("a ", 80)
	got := ExtractKeywords(in)
	if len([]rune(got)) != 100 {
		t.Errorf("expected 100-char fallback, got %d chars", len([]rune(got)))
	}
}

func TestNormalize_Text(t *testing.T) {
	n := NewNormalizer(nil, nil)
	meta := map[string]any{"user": "u1"}

	res, err := n.Normalize(context.Background(), "The earth is flat", model.MediaText, meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content.TextContent != "The earth is flat" {
		t.Errorf("text content changed: %q", res.Content.TextContent)
	}
	if res.Content.SearchQuery != "earth flat" {
		t.Errorf("SearchQuery = %q", res.Content.SearchQuery)
	}
	if res.Degraded != "" {
		t.Errorf("unexpected degradation: %s", res.Degraded)
	}

	res.Content.Metadata["added"] = true
	if _, leaked := meta["added"]; leaked {
		t.Error("normalized metadata must not alias the request metadata")
	}
}

func TestNormalize_TextIsIdempotent(t *testing.T) {
	n := NewNormalizer(nil, nil)
	in := "Research shows that coffee improves memory, according to experts."

	first, err := n.Normalize(context.Background(), in, model.MediaText, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := n.Normalize(context.Background(), in, model.MediaText, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalization not idempotent: %+v vs %+v", first, second)
	}
}

func TestNormalize_UnsupportedMediaType(t *testing.T) {
	n := NewNormalizer(nil, nil)
	_, err := n.Normalize(context.Background(), "x", model.MediaType("audio"), nil)
	if !errors.Is(err, model.ErrUnsupportedMediaType) {
		t.Errorf("expected ErrUnsupportedMediaType, got %v", err)
	}
}

func TestNormalize_URL(t *testing.T) {
	pages := &stubFetcher{page: &Page{Title: "Moon landing", Text: "Apollo astronauts walked on the moon in 1969."}}
	n := NewNormalizer(pages, nil)

	res, err := n.Normalize(context.Background(), " https://example.com/moon ", model.MediaURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := res.Content
	if c.TextContent != "Moon landing. Apollo astronauts walked on the moon in 1969." {
		t.Errorf("TextContent = %q", c.TextContent)
	}
	if c.SearchQuery != "moon landing apollo astronauts walked moon 1969" {
		t.Errorf("SearchQuery = %q", c.SearchQuery)
	}
	if c.Metadata[MetaSourceURL] != "https://example.com/moon" || c.Metadata[MetaTitle] != "Moon landing" {
		t.Errorf("unexpected metadata %v", c.Metadata)
	}
}

func TestNormalize_URLFailureDegrades(t *testing.T) {
	pages := &stubFetcher{err: errors.New("connection refused")}
	n := NewNormalizer(pages, nil)

	res, err := n.Normalize(context.Background(), "https://down.example.com", model.MediaURL, nil)
	if err != nil {
		t.Fatalf("fetch failure must not propagate, got %v", err)
	}
	c := res.Content
	if c.TextContent != "Content from URL: https://down.example.com" {
		t.Errorf("TextContent = %q", c.TextContent)
	}
	if c.SearchQuery != "https://down.example.com" {
		t.Errorf("SearchQuery = %q", c.SearchQuery)
	}
	if c.Metadata[MetaError] != "connection refused" {
		t.Errorf("error not recorded in metadata: %v", c.Metadata)
	}
	if res.Degraded == "" {
		t.Error("expected degraded result")
	}
}

func TestNormalize_ImageAndVideo(t *testing.T) {
	n := NewNormalizer(nil, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		mediaType model.MediaType
		meta      map[string]any
		wantText  string
		wantQuery string
	}{
		{"image placeholder", model.MediaImage, nil, "Image analysis for file: /tmp/a.png", ImageQuery},
		{"image ocr", model.MediaImage, map[string]any{MetaOCRText: "Aliens built pyramids"}, "Aliens built pyramids", "aliens built pyramids"},
		{"image blank ocr", model.MediaImage, map[string]any{MetaOCRText: "   "}, "Image analysis for file: /tmp/a.png", ImageQuery},
		{"video placeholder", model.MediaVideo, nil, "Video analysis for file: /tmp/a.png", VideoQuery},
		{"video transcript", model.MediaVideo, map[string]any{MetaTranscript: "Climate change is accelerating"}, "Climate change is accelerating", "climate change accelerating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := n.Normalize(ctx, "/tmp/a.png", tt.mediaType, tt.meta)
			if err != nil {
				t.Fatal(err)
			}
			if res.Content.TextContent != tt.wantText {
				t.Errorf("TextContent = %q, want %q", res.Content.TextContent, tt.wantText)
			}
			if res.Content.SearchQuery != tt.wantQuery {
				t.Errorf("SearchQuery = %q, want %q", res.Content.SearchQuery, tt.wantQuery)
			}
			if res.Content.Metadata[MetaFilePath] != "/tmp/a.png" {
				t.Errorf("file_path missing: %v", res.Content.Metadata)
			}
		})
	}
}

func TestFetcher_FetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if ua := r.Header.Get("User-Agent"); ua != "Veritas/1.0 (test)" {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, `<html><head><title>Flat Earth</title><script>var x = 1;</script></head>
<body><nav>Menu</nav><article><h1>Claim</h1><p>The earth   is round.</p><style>p{}</style></article>
<p>Second paragraph.</p></body></html>`)
	}))
	defer server.Close()

	f := NewFetcher(model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "Veritas/1.0 (test)", RespectRobots: true}, nil)
	page, err := f.FetchPage(context.Background(), server.URL+"/article")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Title != "Flat Earth" {
		t.Errorf("Title = %q", page.Title)
	}
	if page.Text != "Claim The earth is round. Second paragraph." {
		t.Errorf("Text = %q", page.Text)
	}
}

func TestFetcher_RobotsDisallow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		t.Errorf("page should not be requested when disallowed")
	}))
	defer server.Close()

	f := NewFetcher(model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "Veritas/1.0", RespectRobots: true}, nil)
	_, err := f.FetchPage(context.Background(), server.URL+"/page")
	if !errors.Is(err, ErrDisallowed) {
		t.Errorf("expected ErrDisallowed, got %v", err)
	}
}

func TestFetcher_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f := NewFetcher(model.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "Veritas/1.0"}, nil)
	if _, err := f.FetchPage(context.Background(), server.URL); err == nil {
		t.Error("expected error for 500 response")
	}
}
