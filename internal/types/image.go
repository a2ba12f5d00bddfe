package types

import (
	"encoding/json"
	"fmt"
)

// ImageRequest is the canonical internal representation of an image
// generation request.
type ImageRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
	Size   string `json:"size,omitempty"`

	// Extra carries unrecognized top-level fields for provider-specific
	// passthrough.
	Extra map[string]any `json:"-"`
}

var imageKnownFields = map[string]struct{}{
	"prompt": {},
	"model":  {},
	"size":   {},
}

// UnmarshalJSON decodes a canonical image request, collecting unknown
// top-level fields into Extra.
func (r *ImageRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["prompt"]; ok {
		if err := json.Unmarshal(v, &r.Prompt); err != nil {
			return fmt.Errorf("decode prompt: %w", err)
		}
	}
	if v, ok := raw["model"]; ok {
		if err := json.Unmarshal(v, &r.Model); err != nil {
			return fmt.Errorf("decode model: %w", err)
		}
	}
	if v, ok := raw["size"]; ok {
		if err := json.Unmarshal(v, &r.Size); err != nil {
			return fmt.Errorf("decode size: %w", err)
		}
	}

	for k, v := range raw {
		if _, known := imageKnownFields[k]; known {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]any)
		}
		r.Extra[k] = val
	}

	return nil
}

// Validate checks the basic shape of the request.
func (r *ImageRequest) Validate() error {
	if r.Prompt == "" {
		return &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	return nil
}

// ImageResult is the canonical image generation result. Exactly one of
// URL or B64 is set.
type ImageResult struct {
	Provider string `json:"provider"`
	Prompt   string `json:"prompt"`
	URL      string `json:"url,omitempty"`
	B64      string `json:"b64_json,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}
