package gateway

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/af-corp/relay-gateway/internal/config"
	"github.com/af-corp/relay-gateway/internal/relay"
	"github.com/af-corp/relay-gateway/internal/types"
)

func newTestHandler(cfg *config.Config, providers *config.ProvidersConfig) (*Handler, *relay.Stats) {
	stats := relay.NewStats()
	chat := relay.BuildChatChain(providers.Chat, stats, nil)
	image := relay.BuildImageChain(providers.Image, stats, nil)
	h := NewHandler(
		func() *relay.ChatChain { return chat },
		func() *relay.ImageChain { return image },
		func() *config.Config { return cfg },
		func() *config.ProvidersConfig { return providers },
		stats,
	)
	return h, stats
}

func openAIStub(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChatCompletions_Success(t *testing.T) {
	upstream := openAIStub(t, http.StatusOK, `{"model":"gpt-4o","choices":[{"message":{"content":"hello from upstream"}}]}`)

	cfg := config.DefaultConfig()
	providers := &config.ProvidersConfig{
		Chat: []config.ProviderConfig{{
			Name:    "openai",
			Type:    "openai",
			BaseURL: upstream.URL,
			APIKey:  "sk-test",
			Model:   "gpt-4o-mini",
			Retry:   config.RetryPolicy{Attempts: 1},
		}},
	}
	h, _ := newTestHandler(cfg, providers)

	body := `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.ChatCompletions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Relay-Provider"); got != "openai" {
		t.Errorf("expected provider header openai, got %q", got)
	}

	var resp types.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Text != "hello from upstream" {
		t.Errorf("unexpected text: %q", resp.Text)
	}
	if resp.Model != "gpt-4o" {
		t.Errorf("unexpected model: %q", resp.Model)
	}
}

func TestChatCompletions_FallsBackToSecondProvider(t *testing.T) {
	broken := openAIStub(t, http.StatusInternalServerError, `{"error":"overloaded"}`)
	healthy := openAIStub(t, http.StatusOK, `{"choices":[{"message":{"content":"rescued"}}]}`)

	cfg := config.DefaultConfig()
	providers := &config.ProvidersConfig{
		Chat: []config.ProviderConfig{
			{Name: "primary", BaseURL: broken.URL, APIKey: "k1", Model: "gpt-4o", Retry: config.RetryPolicy{Attempts: 1}},
			{Name: "secondary", BaseURL: healthy.URL, APIKey: "k2", Model: "gpt-4o-mini", Retry: config.RetryPolicy{Attempts: 1}},
		},
	}
	h, stats := newTestHandler(cfg, providers)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		bytes.NewBufferString(`{"messages":[{"role":"user","content":"hi"}]}`))
	w := httptest.NewRecorder()
	h.ChatCompletions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Relay-Provider"); got != "secondary" {
		t.Errorf("expected fallback provider, got %q", got)
	}

	snap := stats.Snapshot()
	if snap[relay.StatsKey("chat", "primary")].Failures != 1 || snap[relay.StatsKey("chat", "secondary")].Successes != 1 {
		t.Errorf("unexpected stats: %+v", snap)
	}
}

func TestChatCompletions_BadRequest(t *testing.T) {
	cfg := config.DefaultConfig()
	providers := &config.ProvidersConfig{}
	h, _ := newTestHandler(cfg, providers)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"no messages", `{"messages":[]}`},
		{"only non-string content", `{"messages":[{"role":"user","content":{"parts":[1,2]}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.ChatCompletions(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestChatCompletions_AllProvidersFailed(t *testing.T) {
	broken := openAIStub(t, http.StatusBadGateway, `{"error":"down"}`)

	cfg := config.DefaultConfig()
	providers := &config.ProvidersConfig{
		Chat: []config.ProviderConfig{
			{Name: "primary", BaseURL: broken.URL, APIKey: "k1", Retry: config.RetryPolicy{Attempts: 1}},
			{Name: "secondary", BaseURL: broken.URL, Retry: config.RetryPolicy{Attempts: 1}}, // no key
		},
	}
	h, _ := newTestHandler(cfg, providers)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions",
		bytes.NewBufferString(`{"messages":[{"role":"user","content":"hi"}]}`))
	w := httptest.NewRecorder()
	h.ChatCompletions(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", w.Code, w.Body.String())
	}

	var envelope struct {
		Error struct {
			Message   string            `json:"message"`
			Code      string            `json:"code"`
			Providers map[string]string `json:"providers"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if envelope.Error.Code != "all_providers_failed" {
		t.Errorf("unexpected code: %q", envelope.Error.Code)
	}
	if len(envelope.Error.Providers) != 2 {
		t.Errorf("expected 2 provider entries, got %v", envelope.Error.Providers)
	}
	if envelope.Error.Providers["secondary"] != "credential not set" {
		t.Errorf("unexpected secondary detail: %q", envelope.Error.Providers["secondary"])
	}
}

func TestImageGenerations_Success(t *testing.T) {
	upstream := openAIStub(t, http.StatusOK, `{"data":[{"url":"https://img.example/x.png"}]}`)

	cfg := config.DefaultConfig()
	providers := &config.ProvidersConfig{
		Image: []config.ProviderConfig{{
			Name:    "openai",
			BaseURL: upstream.URL,
			APIKey:  "sk-test",
			Model:   "dall-e-3",
			Retry:   config.RetryPolicy{Attempts: 1},
		}},
	}
	h, _ := newTestHandler(cfg, providers)

	req := httptest.NewRequest(http.MethodPost, "/v1/images/generations",
		bytes.NewBufferString(`{"prompt":"a lighthouse"}`))
	w := httptest.NewRecorder()
	h.ImageGenerations(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result types.ImageResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.URL != "https://img.example/x.png" {
		t.Errorf("unexpected url: %q", result.URL)
	}
	if result.Prompt != "a lighthouse" {
		t.Errorf("expected prompt echoed back, got %q", result.Prompt)
	}
}

func TestImageGenerations_MissingPrompt(t *testing.T) {
	cfg := config.DefaultConfig()
	h, _ := newTestHandler(cfg, &config.ProvidersConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/images/generations", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	h.ImageGenerations(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestListModels(t *testing.T) {
	cfg := config.DefaultConfig()
	providers := &config.ProvidersConfig{
		Chat: []config.ProviderConfig{
			{Name: "openai", Model: "gpt-4o"},
			{Name: "anthropic", Model: "claude-sonnet-4"},
			{Name: "mirror", Model: "gpt-4o"}, // duplicate model
		},
		Image: []config.ProviderConfig{
			{Name: "openai", Model: "dall-e-3"},
		},
	}
	h, _ := newTestHandler(cfg, providers)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()
	h.ListModels(w, req)

	var resp modelListResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Object != "list" {
		t.Errorf("unexpected object: %q", resp.Object)
	}
	if len(resp.Data) != 3 {
		t.Fatalf("expected 3 deduplicated models, got %v", resp.Data)
	}
	if resp.Data[0].ID != "gpt-4o" || resp.Data[0].OwnedBy != "openai" {
		t.Errorf("unexpected first model: %+v", resp.Data[0])
	}
}

func TestProviderStats(t *testing.T) {
	cfg := config.DefaultConfig()
	providers := &config.ProvidersConfig{
		Chat: []config.ProviderConfig{
			{Name: "openai", APIKey: "k"},
			{Name: "anthropic"},
		},
		Image: []config.ProviderConfig{
			{Name: "openai", APIKey: "k"},
		},
	}
	h, stats := newTestHandler(cfg, providers)
	stats.RecordSuccess("chat", "openai")
	stats.RecordSkip("chat", "anthropic")
	stats.RecordFailure("image", "openai", relay.Aggregate(nil))

	req := httptest.NewRequest(http.MethodGet, "/relay/v1/providers", nil)
	w := httptest.NewRecorder()
	h.ProviderStats(w, req)

	var out []providerStatus
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(out))
	}
	if !out[0].Configured || out[0].Stats.Successes != 1 || out[0].Stats.Failures != 0 {
		t.Errorf("unexpected chat openai entry: %+v", out[0])
	}
	if out[1].Configured {
		t.Error("expected anthropic reported unconfigured")
	}
	if out[1].Stats.Skips != 1 {
		t.Errorf("expected one skip for anthropic, got %+v", out[1].Stats)
	}
	// Same provider name on the image route carries its own counters.
	if out[2].Route != "image" || out[2].Stats.Failures != 1 || out[2].Stats.Successes != 0 {
		t.Errorf("unexpected image openai entry: %+v", out[2])
	}
}
