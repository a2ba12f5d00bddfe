// Package relay implements the provider-fallback core: an ordered chain of
// provider adapters tried strictly in sequence, a per-provider retry
// executor with linear backoff, and aggregation of every failure into one
// reportable error when the chain is exhausted.
package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/af-corp/relay-gateway/internal/config"
	"github.com/af-corp/relay-gateway/internal/telemetry"
	"github.com/af-corp/relay-gateway/internal/types"
)

// Adapter binds one provider's wire format to a canonical request/response
// pair. BuildRequest and ParseResponse are pure translations; Do performs
// the upstream call on the provider's own client, which carries the
// per-attempt timeout.
type Adapter[Req, Resp any] interface {
	Name() string
	Configured() bool
	Policy() config.RetryPolicy
	BuildRequest(ctx context.Context, req Req) (*http.Request, error)
	ParseResponse(body []byte) (Resp, error)
	Do(req *http.Request) (*http.Response, error)
}

// Chain tries an ordered list of providers until one succeeds. The list is
// immutable after construction; a config reload builds a new chain.
// Providers are never tried concurrently: one upstream is paid for at a
// time, at the cost of worst-case latency being the sum of every
// provider's attempts × timeout.
type Chain[Req, Resp any] struct {
	route    string
	adapters []Adapter[Req, Resp]
	stats    *Stats
	metrics  *telemetry.Metrics
	sleep    sleepFunc
}

// ChatChain and ImageChain are the two chains the gateway runs.
type (
	ChatChain  = Chain[*types.ChatRequest, *types.ChatResponse]
	ImageChain = Chain[*types.ImageRequest, *types.ImageResult]
)

func NewChain[Req, Resp any](route string, adapters []Adapter[Req, Resp], stats *Stats, metrics *telemetry.Metrics) *Chain[Req, Resp] {
	return &Chain[Req, Resp]{
		route:    route,
		adapters: adapters,
		stats:    stats,
		metrics:  metrics,
		sleep:    defaultSleep,
	}
}

// Providers returns the configured provider names in chain order.
func (c *Chain[Req, Resp]) Providers() []string {
	names := make([]string, len(c.adapters))
	for i, a := range c.adapters {
		names[i] = a.Name()
	}
	return names
}

// Dispatch walks the chain in order. The first success is terminal; later
// providers are never invoked. Unconfigured providers are skipped without
// a network call and recorded as failed with "credential not set". When
// every provider has been tried or skipped, Dispatch returns an
// *AggregateError holding each provider's last failure detail.
func (c *Chain[Req, Resp]) Dispatch(ctx context.Context, req Req) (Resp, error) {
	var zero Resp
	outcomes := make([]AttemptOutcome, 0, len(c.adapters))

	for _, a := range c.adapters {
		if !a.Configured() {
			slog.Debug("skipping unconfigured provider", "route", c.route, "provider", a.Name())
			outcomes = append(outcomes, AttemptOutcome{Provider: a.Name(), Detail: detailCredentialNotSet})
			if c.stats != nil {
				c.stats.RecordSkip(c.route, a.Name())
			}
			if c.metrics != nil {
				c.metrics.RecordAttempt(a.Name(), "skipped")
			}
			continue
		}

		start := time.Now()
		resp, err := c.callProvider(ctx, a, req)
		elapsed := time.Since(start)

		if err != nil {
			slog.Warn("provider failed, falling back",
				"route", c.route,
				"provider", a.Name(),
				"error", err,
				"duration_ms", elapsed.Milliseconds(),
			)
			outcomes = append(outcomes, AttemptOutcome{Provider: a.Name(), Detail: err.Error()})
			if c.stats != nil {
				c.stats.RecordFailure(c.route, a.Name(), err)
			}
			if c.metrics != nil {
				c.metrics.RecordDispatch(c.route, a.Name(), "failed", float64(elapsed.Milliseconds()))
			}
			continue
		}

		if c.stats != nil {
			c.stats.RecordSuccess(c.route, a.Name())
		}
		if c.metrics != nil {
			c.metrics.RecordDispatch(c.route, a.Name(), "ok", float64(elapsed.Milliseconds()))
		}
		return resp, nil
	}

	if c.metrics != nil {
		c.metrics.RecordExhausted(c.route)
	}
	return zero, Aggregate(outcomes)
}

// callProvider runs one provider under its retry policy.
func (c *Chain[Req, Resp]) callProvider(ctx context.Context, a Adapter[Req, Resp], req Req) (Resp, error) {
	var resp Resp
	attempt := 0
	err := executeWithRetry(ctx, a.Policy(), c.sleep, func() error {
		attempt++
		r, err := c.attempt(ctx, a, req)
		if err != nil {
			if c.metrics != nil {
				c.metrics.RecordAttempt(a.Name(), "error")
			}
			slog.Debug("attempt failed", "route", c.route, "provider", a.Name(), "attempt", attempt, "error", err)
			return err
		}
		if c.metrics != nil {
			c.metrics.RecordAttempt(a.Name(), "ok")
		}
		resp = r
		return nil
	})
	return resp, err
}

// attempt performs exactly one upstream call: translate, send, check the
// status, translate back. Any non-2xx status is a failure.
func (c *Chain[Req, Resp]) attempt(ctx context.Context, a Adapter[Req, Resp], req Req) (Resp, error) {
	var zero Resp

	httpReq, err := a.BuildRequest(ctx, req)
	if err != nil {
		return zero, fmt.Errorf("build %s request: %w", a.Name(), err)
	}

	httpResp, err := a.Do(httpReq)
	if err != nil {
		return zero, &UpstreamError{Provider: a.Name(), Detail: truncateDetail(err.Error())}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return zero, &UpstreamError{Provider: a.Name(), Detail: "read response: " + truncateDetail(err.Error())}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return zero, &UpstreamError{
			Provider: a.Name(),
			Status:   httpResp.StatusCode,
			Detail:   truncateDetail(string(body)),
		}
	}

	return a.ParseResponse(body)
}
