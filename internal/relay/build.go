package relay

import (
	"github.com/af-corp/relay-gateway/internal/config"
	"github.com/af-corp/relay-gateway/internal/relay/adapters"
	"github.com/af-corp/relay-gateway/internal/telemetry"
	"github.com/af-corp/relay-gateway/internal/types"
)

// BuildChatChain constructs the chat fallback chain from config, in file
// order. Unknown provider types fall back to the OpenAI-compatible
// adapter, the de facto common wire format.
func BuildChatChain(cfgs []config.ProviderConfig, stats *Stats, metrics *telemetry.Metrics) *ChatChain {
	var list []Adapter[*types.ChatRequest, *types.ChatResponse]
	for _, cfg := range cfgs {
		switch cfg.Type {
		case "anthropic":
			list = append(list, adapters.NewAnthropicChat(cfg))
		case "gemini":
			list = append(list, adapters.NewGeminiChat(cfg))
		default:
			list = append(list, adapters.NewOpenAIChat(cfg))
		}
	}
	return NewChain("chat", list, stats, metrics)
}

// BuildImageChain constructs the image fallback chain from config.
func BuildImageChain(cfgs []config.ProviderConfig, stats *Stats, metrics *telemetry.Metrics) *ImageChain {
	var list []Adapter[*types.ImageRequest, *types.ImageResult]
	for _, cfg := range cfgs {
		switch cfg.Type {
		case "gemini":
			list = append(list, adapters.NewGeminiImage(cfg))
		default:
			list = append(list, adapters.NewOpenAIImage(cfg))
		}
	}
	return NewChain("image", list, stats, metrics)
}
