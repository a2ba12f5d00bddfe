package types

import (
	"encoding/json"
	"fmt"
)

// Roles recognized in canonical chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single canonical chat message. Content is always a string;
// messages whose wire content is not a JSON string are dropped during
// decoding rather than coerced.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the canonical internal representation of a completion
// request. All provider-specific formats are converted to/from this type.
type ChatRequest struct {
	Model           string    `json:"model,omitempty"`
	Messages        []Message `json:"messages"`
	Temperature     *float64  `json:"temperature,omitempty"`
	TopP            *float64  `json:"top_p,omitempty"`
	MaxOutputTokens *int      `json:"max_tokens,omitempty"`

	// Extra carries unrecognized top-level fields for provider-specific
	// passthrough. Adapters decide which of these survive translation.
	Extra map[string]any `json:"-"`
}

var chatKnownFields = map[string]struct{}{
	"model":       {},
	"messages":    {},
	"temperature": {},
	"top_p":       {},
	"max_tokens":  {},
}

// UnmarshalJSON decodes a canonical chat request, collecting unknown
// top-level fields into Extra and dropping messages whose content is not
// a string.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["model"]; ok {
		if err := json.Unmarshal(v, &r.Model); err != nil {
			return fmt.Errorf("decode model: %w", err)
		}
	}
	if v, ok := raw["temperature"]; ok {
		if err := json.Unmarshal(v, &r.Temperature); err != nil {
			return fmt.Errorf("decode temperature: %w", err)
		}
	}
	if v, ok := raw["top_p"]; ok {
		if err := json.Unmarshal(v, &r.TopP); err != nil {
			return fmt.Errorf("decode top_p: %w", err)
		}
	}
	if v, ok := raw["max_tokens"]; ok {
		if err := json.Unmarshal(v, &r.MaxOutputTokens); err != nil {
			return fmt.Errorf("decode max_tokens: %w", err)
		}
	}

	if v, ok := raw["messages"]; ok {
		var items []struct {
			Role    string          `json:"role"`
			Content json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(v, &items); err != nil {
			return fmt.Errorf("decode messages: %w", err)
		}
		r.Messages = nil
		for _, it := range items {
			var content string
			if err := json.Unmarshal(it.Content, &content); err != nil {
				// Non-string content (arrays, objects, null) is dropped.
				continue
			}
			r.Messages = append(r.Messages, Message{Role: it.Role, Content: content})
		}
	}

	for k, v := range raw {
		if _, known := chatKnownFields[k]; known {
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

// Validate checks the basic shape of the request. It runs after decoding,
// so a request whose every message carried non-string content fails here.
func (r *ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return &ValidationError{Field: "messages", Reason: "must contain at least one message"}
	}
	return nil
}

// ChatResponse is the canonical completion result returned to the caller.
// Text is always present, possibly empty, never absent.
type ChatResponse struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}
