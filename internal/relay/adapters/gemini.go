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

// GeminiChat speaks the Gemini generateContent API: messages become
// role-tagged contents with parts, the assistant role maps to "model",
// and system messages move into systemInstruction.
type GeminiChat struct {
	base
}

func NewGeminiChat(cfg config.ProviderConfig) *GeminiChat {
	return &GeminiChat{base: newBase(cfg)}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequestBody struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

func geminiRole(role string) string {
	if role == types.RoleAssistant {
		return "model"
	}
	return "user"
}

func (a *GeminiChat) BuildRequest(ctx context.Context, req *types.ChatRequest) (*http.Request, error) {
	var system []string
	var contents []geminiContent
	for _, m := range req.Messages {
		if m.Content == "" {
			continue
		}
		if m.Role == types.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, geminiContent{
			Role:  geminiRole(m.Role),
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	body := geminiRequestBody{Contents: contents}
	if len(system) > 0 {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}
	if req.Temperature != nil || req.TopP != nil || req.MaxOutputTokens != nil {
		body.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxOutputTokens,
		}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	model := a.resolveModel(req.Model, "gemini")
	url := fmt.Sprintf("%s/models/%s:generateContent", a.cfg.BaseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	a.setHeaders(httpReq)
	httpReq.Header.Set("x-goog-api-key", a.cfg.APIKey)
	return httpReq, nil
}

// ParseResponse joins the text parts of the first candidate; anything
// unrecognized is stringified so the canonical text is always present.
func (a *GeminiChat) ParseResponse(body []byte) (*types.ChatResponse, error) {
	var resp struct {
		ModelVersion string `json:"modelVersion"`
		Candidates   []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	text := ""
	extracted := false
	if err := json.Unmarshal(body, &resp); err == nil && len(resp.Candidates) > 0 {
		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			sb.WriteString(part.Text)
		}
		text = sb.String()
		extracted = true
	}
	if !extracted {
		text = string(body)
	}

	model := resp.ModelVersion
	if model == "" {
		model = a.cfg.Model
	}

	return &types.ChatResponse{Text: text, Provider: a.Name(), Model: model}, nil
}
