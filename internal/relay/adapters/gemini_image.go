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

// GeminiImage speaks the Imagen predict API. Inline base64 has appeared
// under two different key names across API revisions, so extraction
// checks both. Size is stripped unless the provider is flagged as
// accepting it; the hosted API rejects requests carrying one.
type GeminiImage struct {
	base
}

func NewGeminiImage(cfg config.ProviderConfig) *GeminiImage {
	return &GeminiImage{base: newBase(cfg)}
}

func (a *GeminiImage) BuildRequest(ctx context.Context, req *types.ImageRequest) (*http.Request, error) {
	parameters := map[string]any{"sampleCount": 1}
	if a.cfg.SupportsSize && req.Size != "" {
		parameters["size"] = req.Size
	}
	payload := map[string]any{
		"instances":  []map[string]any{{"prompt": req.Prompt}},
		"parameters": parameters,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini image request: %w", err)
	}

	model := a.resolveModel(req.Model, "imagen", "gemini")
	url := fmt.Sprintf("%s/models/%s:predict", a.cfg.BaseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	a.setHeaders(httpReq)
	httpReq.Header.Set("x-goog-api-key", a.cfg.APIKey)
	return httpReq, nil
}

// ParseResponse extracts the image with a fixed precedence: an explicit
// URL, then base64 under bytesBase64Encoded, then base64 under
// inlineData (the generateContent-style shape), then any descriptive
// text, which is surfaced as a refusal failure with the text truncated.
func (a *GeminiImage) ParseResponse(body []byte) (*types.ImageResult, error) {
	var resp struct {
		Predictions []struct {
			URL                string `json:"url"`
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
			Text               string `json:"text"`
		} `json:"predictions"`
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: unparseable image response: %s", a.Name(), truncate(string(body), maxRefusalLen))
	}

	if len(resp.Predictions) > 0 {
		p := resp.Predictions[0]
		if p.URL != "" {
			return &types.ImageResult{Provider: a.Name(), URL: p.URL}, nil
		}
		if p.BytesBase64Encoded != "" {
			mime := p.MimeType
			if mime == "" {
				mime = "image/png"
			}
			return &types.ImageResult{Provider: a.Name(), B64: p.BytesBase64Encoded, MimeType: mime}, nil
		}
	}

	var refusal strings.Builder
	for _, c := range resp.Candidates {
		for _, part := range c.Content.Parts {
			if part.InlineData.Data != "" {
				mime := part.InlineData.MimeType
				if mime == "" {
					mime = "image/png"
				}
				return &types.ImageResult{Provider: a.Name(), B64: part.InlineData.Data, MimeType: mime}, nil
			}
			refusal.WriteString(part.Text)
		}
	}
	if len(resp.Predictions) > 0 && resp.Predictions[0].Text != "" {
		refusal.WriteString(resp.Predictions[0].Text)
	}
	if refusal.Len() > 0 {
		return nil, fmt.Errorf("%s returned text instead of an image: %s", a.Name(), truncate(refusal.String(), maxRefusalLen))
	}

	return nil, fmt.Errorf("%s: no image in response: %s", a.Name(), truncate(string(body), maxRefusalLen))
}
