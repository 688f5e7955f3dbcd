package api

import (
	"encoding/json"
	"net/http"

	"bskb/internal/errors"
)

// ErrorResponse represents an HTTP error response
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := ErrorResponse{
		Error: err.Error(),
		Code:  string(errors.CodeOf(err)),
	}
	var coded *errors.Error
	if e, ok := err.(*errors.Error); ok {
		coded = e
	}
	if coded != nil {
		resp.Details = coded.Details
	}

	json.NewEncoder(w).Encode(resp)
}

// WriteCodedError writes a coded error with automatic status mapping
func WriteCodedError(w http.ResponseWriter, err error) {
	WriteError(w, err, statusOf(errors.CodeOf(err)))
}

// statusOf maps error codes to HTTP status codes
func statusOf(code errors.ErrorCode) int {
	switch code {
	case errors.InvalidRequest:
		return http.StatusBadRequest // 400
	case errors.RetrievalUnavailable, errors.InferenceUnavailable:
		return http.StatusServiceUnavailable // 503
	case errors.Timeout:
		return http.StatusGatewayTimeout // 504
	case errors.MalformedInferenceOutput:
		return http.StatusBadGateway // 502
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 Bad Request error
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, errors.New(errors.InvalidRequest, message, nil), http.StatusBadRequest)
}

// MethodNotAllowed writes a 405 Method Not Allowed error
func MethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, errors.New(errors.InvalidRequest, "method not allowed", nil), http.StatusMethodNotAllowed)
}

// InternalError writes a 500 Internal Server Error
func InternalError(w http.ResponseWriter, err error) {
	WriteError(w, errors.New(errors.InternalError, "internal server error", err), http.StatusInternalServerError)
}
