package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAnthropicClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if body.Model != "claude-test" || len(body.Messages) != 3 {
			t.Errorf("unexpected request: %+v", body)
		} else if body.Messages[1].Role != "assistant" {
			t.Errorf("roles not preserved: %+v", body.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test","content":[{"type":"text","text":"hi "},{"type":"text","text":"there"}],"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":2}}`)
	}))
	defer server.Close()

	client := NewAnthropicClient(server.URL, "test-key", time.Second, 64)
	reply, err := client.Complete(context.Background(), &CompletionRequest{
		Model: "claude-test",
		Messages: []ChatMessage{
			{Role: "user", Content: "a"},
			{Role: "assistant", Content: "x"},
			{Role: "user", Content: "b"},
		},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if reply != "hi there" {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestAnthropicClientCompleteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`)
	}))
	defer server.Close()

	client := NewAnthropicClient(server.URL, "test-key", time.Second, 0)
	_, err := client.Complete(context.Background(), &CompletionRequest{
		Model:    "claude-test",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}
