package httputil

import (
	"encoding/json"
	"net/http"
)

// APIError is the error envelope returned to callers.
type APIError struct {
	Error APIErrorBody `json:"error"`
}

type APIErrorBody struct {
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       string `json:"code"`
	RelayReqID string `json:"relay_request_id,omitempty"`

	// Providers maps each provider name to its final failure reason.
	// Present only on the all-providers-failed envelope.
	Providers map[string]string `json:"providers,omitempty"`
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, errType, code, message string) {
	writeEnvelope(w, requestID, statusCode, APIErrorBody{
		Message:    message,
		Type:       errType,
		Code:       code,
		RelayReqID: requestID,
	})
}

func writeEnvelope(w http.ResponseWriter, requestID string, statusCode int, body APIErrorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIError{Error: body})
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, "invalid_request_error", "invalid_request", message)
}

func WriteRateLimitError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, "rate_limit_error", "rate_limit_exceeded", message)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, "server_error", "internal_error", message)
}

// WriteAllProvidersFailed writes the terminal 502 envelope carrying every
// provider's last failure reason.
func WriteAllProvidersFailed(w http.ResponseWriter, requestID string, perProvider map[string]string) {
	writeEnvelope(w, requestID, http.StatusBadGateway, APIErrorBody{
		Message:    "all providers failed",
		Type:       "upstream_error",
		Code:       "all_providers_failed",
		RelayReqID: requestID,
		Providers:  perProvider,
	})
}
