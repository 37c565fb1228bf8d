package reasoning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/felixgeelhaar/sourcequery/domain/query"
)

func TestAnthropicProviderComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "key-1" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("anthropic-version header missing")
		}

		var req anthropicRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.System != "system prompt" {
			t.Errorf("system = %q", req.System)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "hello"}},
			"model":   "claude",
			"usage":   map[string]int{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer server.Close()

	p := NewAnthropicProvider(Config{APIKey: "key-1", BaseURL: server.URL, Model: "claude"})
	resp, err := p.Complete(context.Background(), Request{System: "system prompt", Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "hello" {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.PromptTokens != 10 || resp.CompletionTokens != 5 {
		t.Errorf("usage = %d/%d", resp.PromptTokens, resp.CompletionTokens)
	}
}

func TestOpenAIProviderComplete(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key-2" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "gpt-test",
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "world"}},
			},
		})
	}))
	defer server.Close()

	p := NewOpenAIProvider(Config{APIKey: "key-2", BaseURL: server.URL})
	resp, err := p.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "world" {
		t.Errorf("Text = %q", resp.Text)
	}
}

func TestProviderErrorsMapToReasoning(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewOpenAIProvider(Config{BaseURL: server.URL})
	_, err := p.Complete(context.Background(), Request{Prompt: "hi"})
	if !errors.Is(err, query.ErrReasoning) {
		t.Errorf("Complete() error = %v, want ErrReasoning", err)
	}
}

func TestProviderErrorOmitsBody(t *testing.T) {
	t.Parallel()

	err := providerError("openai", http.StatusBadGateway)
	if got := err.Error(); len(got) > 120 {
		t.Errorf("provider error too verbose: %q", got)
	}
	if !errors.Is(err, query.ErrReasoning) {
		t.Errorf("providerError should wrap ErrReasoning, got %v", err)
	}
}

func TestScriptedProvider(t *testing.T) {
	t.Parallel()

	p := NewScriptedProvider(
		ScriptStep{Text: "one"},
		ScriptStep{Err: errors.New("boom")},
	)

	resp, err := p.Complete(context.Background(), Request{Prompt: "a"})
	if err != nil || resp.Text != "one" {
		t.Errorf("first step = %q, %v", resp.Text, err)
	}
	if _, err := p.Complete(context.Background(), Request{Prompt: "b"}); err == nil {
		t.Error("second step should return the scripted error")
	}
	// Exhausted scripts fail as an unavailable engine.
	if _, err := p.Complete(context.Background(), Request{Prompt: "c"}); !errors.Is(err, query.ErrReasoning) {
		t.Errorf("exhausted script error = %v, want ErrReasoning", err)
	}
	if p.Calls() != 3 {
		t.Errorf("Calls() = %d, want 3", p.Calls())
	}
}

func TestRetryingProviderRecovers(t *testing.T) {
	t.Parallel()

	inner := NewScriptedProvider(
		ScriptStep{Err: query.ErrReasoning},
		ScriptStep{Text: "recovered"},
	)
	p := WithRetry(inner, RetryConfig{MaxAttempts: 2, InitialDelay: 1})

	resp, err := p.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "recovered" {
		t.Errorf("Text = %q", resp.Text)
	}
	if inner.Calls() != 2 {
		t.Errorf("inner calls = %d, want 2", inner.Calls())
	}
}

func TestRetryingProviderGivesUp(t *testing.T) {
	t.Parallel()

	inner := NewScriptedProvider() // fails every call
	p := WithRetry(inner, RetryConfig{MaxAttempts: 3, InitialDelay: 1})

	if _, err := p.Complete(context.Background(), Request{Prompt: "hi"}); !errors.Is(err, query.ErrReasoning) {
		t.Errorf("Complete() error = %v, want ErrReasoning", err)
	}
	if inner.Calls() != 3 {
		t.Errorf("inner calls = %d, want 3", inner.Calls())
	}
}
