package relay

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxDetailLen bounds provider error text carried in failure details.
const maxDetailLen = 200

// detailCredentialNotSet is recorded for providers skipped because no
// credential was configured.
const detailCredentialNotSet = "credential not set"

// UpstreamError is a failed call to one provider. Status is the upstream
// HTTP status, or 0 for transport-level failures such as timeouts.
type UpstreamError struct {
	Provider string
	Status   int
	Detail   string
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Detail)
}

// AttemptOutcome records the final result of one provider in the chain.
// Outcomes exist only for providers actually reached; a success
// short-circuits the chain before later providers are touched.
type AttemptOutcome struct {
	Provider  string
	Succeeded bool
	Detail    string
}

// AggregateError is the terminal failure of a whole chain: every provider
// was tried or skipped and none succeeded. PerProvider maps each provider
// name to its last attempt's failure detail.
type AggregateError struct {
	Providers   []string
	PerProvider map[string]string
}

func (e *AggregateError) Error() string {
	return "all providers failed"
}

// Aggregate folds per-provider outcomes into a single reportable failure.
func Aggregate(outcomes []AttemptOutcome) *AggregateError {
	agg := &AggregateError{PerProvider: make(map[string]string, len(outcomes))}
	for _, o := range outcomes {
		agg.Providers = append(agg.Providers, o.Provider)
		agg.PerProvider[o.Provider] = o.Detail
	}
	return agg
}

// truncateDetail bounds provider text included in error details so failure
// payloads stay small. The cut backs off to a rune boundary so multi-byte
// text is never split mid-sequence.
func truncateDetail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxDetailLen {
		return s
	}
	cut := maxDetailLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
