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

// OpenAIImage speaks the OpenAI image generations API. The size field is
// forwarded only when the provider is flagged as accepting it; for
// providers that reject it the field is stripped outright, including any
// copy smuggled through extra passthrough.
type OpenAIImage struct {
	base
}

func NewOpenAIImage(cfg config.ProviderConfig) *OpenAIImage {
	return &OpenAIImage{base: newBase(cfg)}
}

func (a *OpenAIImage) BuildRequest(ctx context.Context, req *types.ImageRequest) (*http.Request, error) {
	payload := make(map[string]any, len(req.Extra)+3)
	for k, v := range req.Extra {
		payload[k] = v
	}
	payload["prompt"] = req.Prompt
	payload["model"] = a.resolveModel(req.Model, "dall-e", "gpt-image")
	if a.cfg.SupportsSize && req.Size != "" {
		payload["size"] = req.Size
	}
	if !a.cfg.SupportsSize {
		delete(payload, "size")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal openai image request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/images/generations", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	a.setHeaders(httpReq)
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	return httpReq, nil
}

// ParseResponse extracts the image with a fixed precedence: an explicit
// URL, then inline base64 data. A 2xx body carrying descriptive text
// instead of an image (a refusal) is a normal failure with the text
// included, truncated.
func (a *OpenAIImage) ParseResponse(body []byte) (*types.ImageResult, error) {
	var resp struct {
		Data []struct {
			URL     string `json:"url"`
			B64JSON string `json:"b64_json"`
		} `json:"data"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%s: unparseable image response: %s", a.Name(), truncate(string(body), maxRefusalLen))
	}

	if len(resp.Data) > 0 {
		if resp.Data[0].URL != "" {
			return &types.ImageResult{Provider: a.Name(), URL: resp.Data[0].URL}, nil
		}
		if resp.Data[0].B64JSON != "" {
			return &types.ImageResult{Provider: a.Name(), B64: resp.Data[0].B64JSON, MimeType: "image/png"}, nil
		}
	}

	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		return nil, fmt.Errorf("%s returned text instead of an image: %s", a.Name(), truncate(resp.Choices[0].Message.Content, maxRefusalLen))
	}

	return nil, fmt.Errorf("%s: no image in response: %s", a.Name(), truncate(string(body), maxRefusalLen))
}
