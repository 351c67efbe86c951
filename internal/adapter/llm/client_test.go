package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		var req ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "llama3" || req.Stream {
			t.Fatalf("unexpected request: %+v", req)
		}
		if len(req.Messages) != 3 || req.Messages[0].Content != "a" || req.Messages[2].Content != "b" {
			t.Fatalf("transcript not forwarded in order: %+v", req.Messages)
		}
		if req.MaxTokens == nil || *req.MaxTokens != 256 {
			t.Fatalf("unexpected max_tokens: %v", req.MaxTokens)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"llama3","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, 256)
	reply, err := client.Complete(context.Background(), &CompletionRequest{
		Model: "llama3",
		Messages: []ChatMessage{
			{Role: "user", Content: "a"},
			{Role: "assistant", Content: "x"},
			{Role: "user", Content: "b"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "hi" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestClientCompleteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, 0)
	_, err := client.Complete(context.Background(), &CompletionRequest{
		Model:    "llama3",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestClientCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"llama3","choices":[]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, 0)
	_, err := client.Complete(context.Background(), &CompletionRequest{
		Model:    "llama3",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestClientCompleteMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `not json`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second, 0)
	_, err := client.Complete(context.Background(), &CompletionRequest{Model: "llama3"})
	if err == nil {
		t.Fatalf("expected error for malformed body")
	}
}

func TestClientCompleteTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, "", 50*time.Millisecond, 0)
	_, err := client.Complete(context.Background(), &CompletionRequest{Model: "llama3"})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestClientSetHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("unexpected Authorization header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret", time.Second, 0)
	if _, err := client.Complete(context.Background(), &CompletionRequest{Model: "llama3"}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
}

func TestNewClientDefaultBaseURL(t *testing.T) {
	client := NewClient("", "", time.Second, 0)
	if client.baseURL != DefaultBaseURL {
		t.Fatalf("unexpected base url: %s", client.baseURL)
	}
	client = NewClient("http://litellm:4000/", "", time.Second, 0)
	if client.baseURL != "http://litellm:4000" {
		t.Fatalf("trailing slash not trimmed: %s", client.baseURL)
	}
}

func TestDecodeErrorResponse(t *testing.T) {
	data := []byte(`{"error":{"message":"bad","type":"invalid_request_error","code":"401"}}`)
	var resp ErrorResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != "401" {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}
