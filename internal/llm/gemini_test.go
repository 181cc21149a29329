package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGeminiProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-pro:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("api key header = %q", r.Header.Get("x-goog-api-key"))
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "system" {
			t.Errorf("system instruction = %+v", req.SystemInstruction)
		}
		if len(req.Contents) != 1 || req.Contents[0].Parts[0].Text != "prompt" {
			t.Errorf("contents = %+v", req.Contents)
		}
		if req.GenerationConfig.ResponseMIMEType != "application/json" {
			t.Errorf("responseMimeType = %q, want application/json", req.GenerationConfig.ResponseMIMEType)
		}

		_, _ = w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"verdict\": "}, {"text": "\"true\"}"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"totalTokenCount": 42},
			"modelVersion": "gemini-pro-001"
		}`))
	}))
	defer server.Close()

	provider, err := NewGeminiProvider(Config{APIKey: "test-key", BaseURL: server.URL, Model: "gemini-pro", Timeout: 5})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{System: "system", Prompt: "prompt", JSON: true})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != `{"verdict": "true"}` {
		t.Errorf("text = %s", resp.Text)
	}
	if resp.Model != "gemini-pro-001" || resp.TokensUsed != 42 {
		t.Errorf("metadata = %+v", resp)
	}
}

func TestGeminiProvider_Complete_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int // 0: not an APIError
	}{
		{"invalid key", http.StatusBadRequest, `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`, 400},
		{"no candidates", http.StatusOK, `{"candidates": []}`, 0},
		{"blocked", http.StatusOK, `{"candidates": [{"content": {"parts": []}, "finishReason": "SAFETY"}]}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider, _ := NewGeminiProvider(Config{APIKey: "k", BaseURL: server.URL, Timeout: 5})
			_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"})
			if err == nil {
				t.Fatal("expected error")
			}

			var apiErr *APIError
			if got := errors.As(err, &apiErr); got != (tt.wantStatus != 0) {
				t.Fatalf("errors.As(APIError) = %v for %v", got, err)
			}
			if apiErr != nil {
				if apiErr.Status != tt.wantStatus || apiErr.Code != "INVALID_ARGUMENT" || apiErr.Message != "API key not valid" {
					t.Errorf("APIError = %+v", apiErr)
				}
				if apiErr.Temporary() {
					t.Error("400 must not be temporary")
				}
			}
		})
	}
}

func TestGeminiProvider_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1beta/models/gemini-1.5-flash" {
			_, _ = w.Write([]byte(`{"name": "models/gemini-1.5-flash"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewGeminiProvider(Config{APIKey: "k", BaseURL: server.URL})
	if err := provider.Ping(context.Background()); err != nil {
		t.Errorf("Ping = %v", err)
	}

	missing, _ := NewGeminiProvider(Config{APIKey: "k", BaseURL: server.URL, Model: "unknown"})
	if err := missing.Ping(context.Background()); err == nil {
		t.Error("expected Ping to fail for unknown model")
	}

	if _, err := NewGeminiProvider(Config{}); err == nil {
		t.Error("expected error without API key")
	}
}
