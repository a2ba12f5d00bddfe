package adapters

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/af-corp/relay-gateway/internal/config"
	"github.com/af-corp/relay-gateway/internal/types"
)

func decodeBody(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(req.Body)
	if err != nil {
		t.Fatalf("read request body: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	return payload
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestOpenAIChatBuildRequest(t *testing.T) {
	a := NewOpenAIChat(config.ProviderConfig{
		Name:    "openai",
		BaseURL: "https://api.openai.com/v1",
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
	})

	req := &types.ChatRequest{
		Model:           "gpt-4o",
		Messages:        []types.Message{{Role: types.RoleUser, Content: "hi"}},
		Temperature:     floatPtr(0.5),
		MaxOutputTokens: intPtr(256),
		Extra: map[string]any{
			"seed":  float64(42),
			"model": "smuggled-model",
		},
	}

	httpReq, err := a.BuildRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if httpReq.URL.String() != "https://api.openai.com/v1/chat/completions" {
		t.Errorf("unexpected URL: %s", httpReq.URL)
	}
	if got := httpReq.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Errorf("unexpected auth header: %q", got)
	}

	payload := decodeBody(t, httpReq)
	if payload["model"] != "gpt-4o" {
		t.Errorf("expected requested model to pass through, got %v", payload["model"])
	}
	if payload["temperature"] != 0.5 {
		t.Errorf("unexpected temperature: %v", payload["temperature"])
	}
	if payload["max_tokens"] != float64(256) {
		t.Errorf("unexpected max_tokens: %v", payload["max_tokens"])
	}
	if payload["seed"] != float64(42) {
		t.Errorf("expected extra field forwarded, got %v", payload["seed"])
	}
}

func TestOpenAIChatBuildRequest_ForeignModelFallsBack(t *testing.T) {
	a := NewOpenAIChat(config.ProviderConfig{
		Name:    "openai",
		BaseURL: "https://api.openai.com/v1",
		APIKey:  "sk-test",
		Model:   "gpt-4o-mini",
	})

	req := &types.ChatRequest{
		Model:    "claude-sonnet-4",
		Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}},
	}

	httpReq, err := a.BuildRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	payload := decodeBody(t, httpReq)
	if payload["model"] != "gpt-4o-mini" {
		t.Errorf("expected foreign model replaced with configured default, got %v", payload["model"])
	}
}

func TestOpenAIChatParseResponse(t *testing.T) {
	a := NewOpenAIChat(config.ProviderConfig{Name: "openai", Model: "gpt-4o-mini"})

	tests := []struct {
		name      string
		body      string
		wantText  string
		wantModel string
	}{
		{
			name:      "message content",
			body:      `{"model":"gpt-4o","choices":[{"message":{"content":"hello"}}]}`,
			wantText:  "hello",
			wantModel: "gpt-4o",
		},
		{
			name:      "empty content still counts",
			body:      `{"choices":[{"message":{"content":""},"text":"legacy"}]}`,
			wantText:  "",
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "legacy text field",
			body:      `{"choices":[{"text":"legacy completion"}]}`,
			wantText:  "legacy completion",
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "top level output_text",
			body:      `{"output_text":"flat"}`,
			wantText:  "flat",
			wantModel: "gpt-4o-mini",
		},
		{
			name:      "unrecognized shape stringified",
			body:      `{"something":"else"}`,
			wantText:  `{"something":"else"}`,
			wantModel: "gpt-4o-mini",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := a.ParseResponse([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Text != tt.wantText {
				t.Errorf("expected text %q, got %q", tt.wantText, resp.Text)
			}
			if resp.Model != tt.wantModel {
				t.Errorf("expected model %q, got %q", tt.wantModel, resp.Model)
			}
			if resp.Provider != "openai" {
				t.Errorf("expected provider openai, got %q", resp.Provider)
			}
		})
	}
}
