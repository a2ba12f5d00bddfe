package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/af-corp/relay-gateway/internal/config"
	"github.com/af-corp/relay-gateway/internal/types"
)

const (
	defaultAnthropicVersion   = "2023-06-01"
	defaultAnthropicMaxTokens = 1024
)

// AnthropicChat speaks the Anthropic Messages API. The structural
// differences from the canonical shape are handled here: system-role
// messages move into the dedicated system field, empty-content messages
// are dropped, and max_tokens is always present because the API requires
// it.
type AnthropicChat struct {
	base
}

func NewAnthropicChat(cfg config.ProviderConfig) *AnthropicChat {
	return &AnthropicChat{base: newBase(cfg)}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequestBody struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
}

func (a *AnthropicChat) BuildRequest(ctx context.Context, req *types.ChatRequest) (*http.Request, error) {
	var system []string
	var messages []anthropicMessage
	for _, m := range req.Messages {
		if m.Content == "" {
			continue
		}
		if m.Role == types.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	maxTokens := defaultAnthropicMaxTokens
	if req.MaxOutputTokens != nil {
		maxTokens = *req.MaxOutputTokens
	}

	body := anthropicRequestBody{
		Model:       a.resolveModel(req.Model, "claude"),
		Messages:    messages,
		System:      strings.Join(system, "\n\n"),
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	a.setHeaders(httpReq)
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)
	version := a.cfg.APIVersion
	if version == "" {
		version = defaultAnthropicVersion
	}
	httpReq.Header.Set("anthropic-version", version)
	return httpReq, nil
}

// ParseResponse joins all text content blocks; older responses carried a
// bare completion field instead. Anything unrecognized is stringified so
// the canonical text is always present.
func (a *AnthropicChat) ParseResponse(body []byte) (*types.ChatResponse, error) {
	var resp struct {
		Model   string `json:"model"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Completion *string `json:"completion"`
	}

	text := ""
	extracted := false
	if err := json.Unmarshal(body, &resp); err == nil {
		if len(resp.Content) > 0 {
			var sb strings.Builder
			for _, block := range resp.Content {
				if block.Type == "text" {
					sb.WriteString(block.Text)
				}
			}
			text = sb.String()
			extracted = true
		} else if resp.Completion != nil {
			text = *resp.Completion
			extracted = true
		}
	}
	if !extracted {
		text = string(body)
	}

	model := resp.Model
	if model == "" {
		model = a.cfg.Model
	}

	return &types.ChatResponse{Text: text, Provider: a.Name(), Model: model}, nil
}
