package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/af-corp/relay-gateway/internal/config"
	"github.com/af-corp/relay-gateway/internal/httputil"
	"github.com/af-corp/relay-gateway/internal/relay"
	"github.com/af-corp/relay-gateway/internal/sanitize"
	"github.com/af-corp/relay-gateway/internal/types"
)

// Handler holds dependencies for the gateway HTTP handlers. The chain
// getters indirect through the config loader so a hot reload swaps in
// freshly built chains without touching requests already in flight.
type Handler struct {
	chatChain  func() *relay.ChatChain
	imageChain func() *relay.ImageChain
	cfg        func() *config.Config
	providers  func() *config.ProvidersConfig
	stats      *relay.Stats
}

func NewHandler(chatChain func() *relay.ChatChain, imageChain func() *relay.ImageChain, cfg func() *config.Config, providers func() *config.ProvidersConfig, stats *relay.Stats) *Handler {
	return &Handler{
		chatChain:  chatChain,
		imageChain: imageChain,
		cfg:        cfg,
		providers:  providers,
		stats:      stats,
	}
}

// ChatCompletions handles POST /v1/chat/completions
func (h *Handler) ChatCompletions(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var chatReq types.ChatRequest
	if err := json.Unmarshal(body, &chatReq); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if err := chatReq.Validate(); err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}

	clamped := sanitize.Clamp(&chatReq, h.cfg().Limits)

	resp, err := h.chatChain().Dispatch(r.Context(), clamped)
	if err != nil {
		h.writeDispatchError(w, reqID, "chat", err)
		return
	}

	slog.Info("request completed",
		"request_id", reqID,
		"route", "chat",
		"provider", resp.Provider,
		"model", resp.Model,
		"duration_ms", time.Since(receivedAt).Milliseconds(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Relay-Provider", resp.Provider)
	w.Header().Set("X-Relay-Model", resp.Model)
	json.NewEncoder(w).Encode(resp)
}

// ImageGenerations handles POST /v1/images/generations
func (h *Handler) ImageGenerations(w http.ResponseWriter, r *http.Request) {
	reqID := w.Header().Get("X-Request-ID")
	receivedAt := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	var imageReq types.ImageRequest
	if err := json.Unmarshal(body, &imageReq); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if err := imageReq.Validate(); err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}

	result, err := h.imageChain().Dispatch(r.Context(), &imageReq)
	if err != nil {
		h.writeDispatchError(w, reqID, "image", err)
		return
	}
	result.Prompt = imageReq.Prompt

	slog.Info("request completed",
		"request_id", reqID,
		"route", "image",
		"provider", result.Provider,
		"duration_ms", time.Since(receivedAt).Milliseconds(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Relay-Provider", result.Provider)
	json.NewEncoder(w).Encode(result)
}

func (h *Handler) writeDispatchError(w http.ResponseWriter, reqID, route string, err error) {
	var agg *relay.AggregateError
	if errors.As(err, &agg) {
		slog.Warn("all providers failed",
			"request_id", reqID,
			"route", route,
			"providers", agg.Providers,
		)
		httputil.WriteAllProvidersFailed(w, reqID, agg.PerProvider)
		return
	}
	slog.Error("dispatch failed", "request_id", reqID, "route", route, "error", err)
	httputil.WriteInternalError(w, reqID, "Failed to process request")
}

// ListModels handles GET /v1/models
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	provCfg := h.providers()

	var models []modelObject
	seen := make(map[string]bool)
	for _, chain := range [][]config.ProviderConfig{provCfg.Chat, provCfg.Image} {
		for _, p := range chain {
			if p.Model == "" || seen[p.Model] {
				continue
			}
			seen[p.Model] = true
			models = append(models, modelObject{
				ID:      p.Model,
				Object:  "model",
				OwnedBy: p.Name,
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(modelListResponse{
		Object: "list",
		Data:   models,
	})
}

// ProviderStats handles GET /relay/v1/providers
func (h *Handler) ProviderStats(w http.ResponseWriter, r *http.Request) {
	provCfg := h.providers()
	snapshot := h.stats.Snapshot()

	var out []providerStatus
	appendChain := func(route string, cfgs []config.ProviderConfig) {
		for _, p := range cfgs {
			out = append(out, providerStatus{
				Name:       p.Name,
				Route:      route,
				Configured: p.Configured(),
				Stats:      snapshot[relay.StatsKey(route, p.Name)],
			})
		}
	}
	appendChain("chat", provCfg.Chat)
	appendChain("image", provCfg.Image)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

type modelObject struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type modelListResponse struct {
	Object string        `json:"object"`
	Data   []modelObject `json:"data"`
}

type providerStatus struct {
	Name       string              `json:"name"`
	Route      string              `json:"route"`
	Configured bool                `json:"configured"`
	Stats      relay.ProviderStats `json:"stats"`
}
