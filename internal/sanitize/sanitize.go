// Package sanitize clamps canonical requests to configured cost bounds
// before any provider is attempted. Clamping is pure and never fails: an
// oversized request is trimmed, never rejected. A request that ends up
// empty after trimming is passed through and left for the provider's own
// validation to reject.
package sanitize

import (
	"unicode/utf8"

	"github.com/af-corp/relay-gateway/internal/types"
)

// Limits bounds the size and spend of a single request.
type Limits struct {
	MaxMessages         int `yaml:"max_messages"`
	MaxCharsPerMessage  int `yaml:"max_chars_per_message"`
	MaxTotalChars       int `yaml:"max_total_chars"`
	MaxOutputTokens     int `yaml:"max_output_tokens"`
	DefaultOutputTokens int `yaml:"default_output_tokens"`
}

// DefaultLimits are applied when the config file does not set its own.
func DefaultLimits() Limits {
	return Limits{
		MaxMessages:         40,
		MaxCharsPerMessage:  32_000,
		MaxTotalChars:       120_000,
		MaxOutputTokens:     4096,
		DefaultOutputTokens: 1024,
	}
}

// Clamp returns a copy of req bounded by the configured limits:
//   - messages truncated to the last MaxMessages entries,
//   - each message's content clamped to its trailing MaxCharsPerMessage
//     characters (the tail carries the recent conversational context),
//   - oldest messages evicted until the total character count fits
//     MaxTotalChars or a single message remains,
//   - max output tokens forced to min(requested or default, MaxOutputTokens).
//
// Clamp is idempotent: a request already within limits passes through
// unchanged except for the output token clamp.
func Clamp(req *types.ChatRequest, limits Limits) *types.ChatRequest {
	out := *req

	msgs := req.Messages
	if limits.MaxMessages > 0 && len(msgs) > limits.MaxMessages {
		msgs = msgs[len(msgs)-limits.MaxMessages:]
	}

	clamped := make([]types.Message, len(msgs))
	copy(clamped, msgs)
	if limits.MaxCharsPerMessage > 0 {
		for i := range clamped {
			clamped[i].Content = tail(clamped[i].Content, limits.MaxCharsPerMessage)
		}
	}

	if limits.MaxTotalChars > 0 {
		for len(clamped) > 1 && totalChars(clamped) > limits.MaxTotalChars {
			clamped = clamped[1:]
		}
	}
	out.Messages = clamped

	tokens := limits.DefaultOutputTokens
	if req.MaxOutputTokens != nil {
		tokens = *req.MaxOutputTokens
	}
	if limits.MaxOutputTokens > 0 && tokens > limits.MaxOutputTokens {
		tokens = limits.MaxOutputTokens
	}
	out.MaxOutputTokens = &tokens

	return &out
}

// tail keeps the trailing max characters of s. Limits count characters,
// not bytes, so multi-byte content is never cut mid-rune.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[len(runes)-max:])
}

func totalChars(msgs []types.Message) int {
	total := 0
	for _, m := range msgs {
		total += utf8.RuneCountInString(m.Content)
	}
	return total
}
