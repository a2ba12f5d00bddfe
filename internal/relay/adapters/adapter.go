// Package adapters translates between the canonical request/response model
// and each upstream provider's wire format. Translation is a pair of pure
// functions per provider; compatibility rules (fields a provider rejects,
// model names that must not leak across providers) live here and nowhere
// else.
package adapters

import (
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/af-corp/relay-gateway/internal/config"
)

// base carries what every adapter shares: its config entry and the HTTP
// client enforcing the per-attempt timeout.
type base struct {
	cfg    config.ProviderConfig
	client *http.Client
}

func newBase(cfg config.ProviderConfig) base {
	return base{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.EffectiveTimeout(),
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

func (b *base) Name() string               { return b.cfg.Name }
func (b *base) Configured() bool           { return b.cfg.Configured() }
func (b *base) Policy() config.RetryPolicy { return b.cfg.Retry }
func (b *base) Do(req *http.Request) (*http.Response, error) {
	return b.client.Do(req)
}

// resolveModel returns the canonical model when it belongs to this
// provider's family, else the configured default. A model name valid for
// one provider must never reach another.
func (b *base) resolveModel(requested string, familyPrefixes ...string) string {
	for _, p := range familyPrefixes {
		if requested != "" && strings.HasPrefix(requested, p) {
			return requested
		}
	}
	return b.cfg.Model
}

func (b *base) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	for k, v := range b.cfg.Headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
}

// truncate bounds provider text surfaced in failure details, backing the
// cut off to a rune boundary.
func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// maxRefusalLen bounds refusal text carried into error details.
const maxRefusalLen = 200
