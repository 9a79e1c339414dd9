package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pavelanni/quizexam/internal/model"
)

// fakeAPI serves the two OpenAI endpoints the client uses.
func fakeAPI(t *testing.T, reply string, gotPrompt *string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) > 0 && gotPrompt != nil {
			*gotPrompt = req.Messages[0].Content
		}
		w.Header().Set("Content-Type", "application/json")
		choices := []map[string]any{}
		if reply != "" {
			choices = append(choices, map[string]any{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "chatcmpl-1", "object": "chat.completion", "model": req.Model, "choices": choices,
		})
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]string{{"id": "tutor-small", "object": "model"}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestExplain(t *testing.T) {
	var prompt string
	srv := fakeAPI(t, "  Paris has been the capital since 987.  ", &prompt)
	c := New(srv.URL+"/v1", "test-key", "tutor-small", "detailed")

	q := model.Question{ID: 7, Title: "Capital of France", Type: model.FillBlank, Answer: model.Collection("Paris", "paris")}
	got, err := c.Explain(context.Background(), q, "Lyon", false)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if got != "Paris has been the capital since 987." {
		t.Errorf("unexpected explanation %q", got)
	}
	if !strings.Contains(prompt, "Capital of France") || !strings.Contains(prompt, "Lyon") {
		t.Errorf("prompt missing question or answer:\n%s", prompt)
	}
	if !strings.Contains(prompt, "misunderstood") {
		t.Error("detailed variant should be used")
	}
}

func TestExplainNoChoices(t *testing.T) {
	srv := fakeAPI(t, "", nil)
	c := New(srv.URL+"/v1", "test-key", "tutor-small", "brief")

	_, err := c.Explain(context.Background(), model.Question{Title: "q", Type: model.SingleChoice, Answer: model.Scalar("A")}, "B", false)
	if err == nil {
		t.Error("expected error when the model returns no choices")
	}
}

func TestUnknownVariantFallsBackToBrief(t *testing.T) {
	c := New("", "k", "m", "verbose")
	if c.variant != "brief" {
		t.Errorf("expected brief variant, got %q", c.variant)
	}
}

func TestPing(t *testing.T) {
	srv := fakeAPI(t, "ok", nil)

	if err := New(srv.URL+"/v1", "k", "tutor-small", "").Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	if err := New(srv.URL+"/v1", "k", "other-model", "").Ping(context.Background()); err == nil {
		t.Error("expected error for a model the endpoint does not serve")
	}
}
