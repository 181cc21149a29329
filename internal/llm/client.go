package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/veritas/internal/model"
	"github.com/ppiankov/veritas/internal/util"
)

const maxResponseBytes = 4 << 20

// jsonClient performs JSON requests against one provider's REST API.
type jsonClient struct {
	provider string
	baseURL  string
	http     *http.Client
	header   http.Header

	// errorDetail extracts a code and message from an error body.
	errorDetail func(body []byte) (code, message string)
}

func newJSONClient(provider, baseURL string, cfg Config, defaultTimeout time.Duration) *jsonClient {
	return &jsonClient{
		provider: provider,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     newHTTPClient(cfg, defaultTimeout),
		header:   make(http.Header),
	}
}

// do sends in (if non-nil) to path and decodes the response into out (if
// non-nil). Non-2xx answers become *APIError.
func (c *jsonClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", c.provider, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.provider, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", c.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Provider: c.provider, Status: resp.StatusCode}
		if c.errorDetail != nil {
			apiErr.Code, apiErr.Message = c.errorDetail(data)
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
			if len(apiErr.Message) > 512 {
				apiErr.Message = apiErr.Message[:512]
			}
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.provider, err)
	}
	return nil
}

func newHTTPClient(cfg Config, defaultTimeout time.Duration) *http.Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return util.NewHTTPClient(timeout, model.HTTPConfig{
		HTTPProxy:  cfg.HTTPProxy,
		HTTPSProxy: cfg.HTTPSProxy,
		NoProxy:    cfg.NoProxy,
	})
}
