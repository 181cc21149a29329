package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s, want /api/generate", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("expected non-streaming request")
		}
		if req.Format != "json" {
			t.Errorf("format = %q, want json", req.Format)
		}
		if req.Options.NumPredict != 1000 {
			t.Errorf("num_predict = %d, want default 1000", req.Options.NumPredict)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llama3.1",
			Response:        ` {"verdict": "misleading"} `,
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       20,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL + "/", Model: "llama3.1", Timeout: 5})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "Analyze", JSON: true})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Text != `{"verdict": "misleading"}` {
		t.Errorf("text = %q", resp.Text)
	}
	if resp.TokensUsed != 30 {
		t.Errorf("tokens = %d, want 30", resp.TokensUsed)
	}
}

func TestOllamaProvider_Complete_EstimatesTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Model: "m", Response: "abcd", Done: true})
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "m", Timeout: 5})
	resp, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "abcdefgh"})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.TokensUsed != 3 {
		t.Errorf("tokens = %d, want estimated 3", resp.TokensUsed)
	}
}

func TestOllamaProvider_Complete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantAPI bool
		wantMsg string
	}{
		{"server error", http.StatusInternalServerError, `{"error": "model crashed"}`, true, "model crashed"},
		{"plain text error", http.StatusNotFound, `404 page not found`, true, "404 page not found"},
		{"malformed body", http.StatusOK, `{malformed`, false, "decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "m", Timeout: 5})
			_, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"})
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) != tt.wantAPI {
				t.Errorf("APIError = %v, want %v (%v)", apiErr != nil, tt.wantAPI, err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestOllamaProvider_Complete_NoModel(t *testing.T) {
	provider, _ := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1"})
	if _, err := provider.Complete(context.Background(), CompletionRequest{Prompt: "x"}); err == nil {
		t.Fatal("expected error without a model")
	}
}

func TestOllamaProvider_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL})
	if err := provider.Ping(context.Background()); err != nil {
		t.Errorf("Ping = %v", err)
	}

	server.Close()
	if err := provider.Ping(context.Background()); err == nil {
		t.Error("expected Ping to fail once the server is gone")
	}
}
