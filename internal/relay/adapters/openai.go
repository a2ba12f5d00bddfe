package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/af-corp/relay-gateway/internal/config"
	"github.com/af-corp/relay-gateway/internal/types"
)

// openAIModelPrefixes are the model families accepted from the canonical
// request; anything else falls back to the configured default.
var openAIModelPrefixes = []string{"gpt-", "chatgpt-", "o1", "o3", "o4"}

// OpenAIChat speaks the OpenAI chat completions API, which doubles as the
// wire format for every OpenAI-compatible provider. Extra passthrough
// fields are forwarded; canonical fields win on collision.
type OpenAIChat struct {
	base
}

func NewOpenAIChat(cfg config.ProviderConfig) *OpenAIChat {
	return &OpenAIChat{base: newBase(cfg)}
}

func (a *OpenAIChat) BuildRequest(ctx context.Context, req *types.ChatRequest) (*http.Request, error) {
	payload := make(map[string]any, len(req.Extra)+5)
	for k, v := range req.Extra {
		payload[k] = v
	}
	payload["model"] = a.resolveModel(req.Model, openAIModelPrefixes...)
	payload["messages"] = req.Messages
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		payload["top_p"] = *req.TopP
	}
	if req.MaxOutputTokens != nil {
		payload["max_tokens"] = *req.MaxOutputTokens
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal openai request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	a.setHeaders(httpReq)
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	return httpReq, nil
}

// ParseResponse extracts text with a fixed precedence:
// choices[0].message.content, then the legacy choices[0].text, then a
// top-level output_text, then the stringified raw payload. The last step
// always succeeds, so the canonical text field is never missing.
func (a *OpenAIChat) ParseResponse(body []byte) (*types.ChatResponse, error) {
	var resp struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content *string `json:"content"`
			} `json:"message"`
			Text *string `json:"text"`
		} `json:"choices"`
		OutputText *string `json:"output_text"`
	}

	text := ""
	extracted := false
	if err := json.Unmarshal(body, &resp); err == nil {
		switch {
		case len(resp.Choices) > 0 && resp.Choices[0].Message.Content != nil:
			text = *resp.Choices[0].Message.Content
			extracted = true
		case len(resp.Choices) > 0 && resp.Choices[0].Text != nil:
			text = *resp.Choices[0].Text
			extracted = true
		case resp.OutputText != nil:
			text = *resp.OutputText
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
