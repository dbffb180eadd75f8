package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompleteSendsModelAndMessages(t *testing.T) {
	var got map[string]interface{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		json.NewDecoder(r.Body).Decode(&got)
		resp := map[string]interface{}{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []map[string]interface{}{{"index": 0, "message": map[string]string{"role": "assistant", "content": "ok"}, "finish_reason": "stop"}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer ts.Close()

	c := NewOpenAIClient("test-key", ts.URL, "gpt-test")
	out, err := c.Complete(context.Background(), Request{
		Messages:  []Message{{Role: "system", Content: "sys"}, {Role: "doctor", Content: "hi"}},
		MaxTokens: 42,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected content: %q", out)
	}
	if got["model"] != "gpt-test" {
		t.Fatalf("default model not used: %v", got["model"])
	}
	if got["max_tokens"] != float64(42) {
		t.Fatalf("max_tokens not forwarded: %v", got["max_tokens"])
	}
	msgs, _ := got["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("want 2 messages, got %d", len(msgs))
	}
	second, _ := msgs[1].(map[string]interface{})
	if second["role"] != "user" {
		t.Fatalf("unknown role should be coerced to user, got %v", second["role"])
	}
}

func TestCompleteNoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "x", "choices": []interface{}{}})
	}))
	defer ts.Close()

	c := NewOpenAIClient("k", ts.URL, "")
	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if !errors.Is(err, ErrNoChoices) {
		t.Fatalf("want ErrNoChoices, got %v", err)
	}
}

func TestCompleteAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]string{"message": "bad key", "type": "invalid_request_error"}})
	}))
	defer ts.Close()

	c := NewOpenAIClient("k", ts.URL, "")
	if _, err := c.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected an error")
	}
}
