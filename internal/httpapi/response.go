package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError represents an API error
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseWriter provides utility methods for writing API responses
type ResponseWriter struct {
	w         http.ResponseWriter
	requestID string
}

// NewResponseWriter creates a new response writer
func NewResponseWriter(w http.ResponseWriter, requestID string) *ResponseWriter {
	return &ResponseWriter{
		w:         w,
		requestID: requestID,
	}
}

// Success writes a successful response
func (rw *ResponseWriter) Success(data interface{}) {
	rw.write(http.StatusOK, data)
}

// Created writes a created response (201)
func (rw *ResponseWriter) Created(data interface{}) {
	rw.write(http.StatusCreated, data)
}

func (rw *ResponseWriter) write(status int, data interface{}) {
	rw.writeJSON(status, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rw.requestID,
	})
}

// NoContent writes a no content response (204)
func (rw *ResponseWriter) NoContent() {
	rw.w.WriteHeader(http.StatusNoContent)
}

// Error writes an error response
func (rw *ResponseWriter) Error(statusCode int, code, message string) {
	rw.writeJSON(statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now(),
		RequestID: rw.requestID,
	})
}

// BadRequest writes a bad request error (400)
func (rw *ResponseWriter) BadRequest(message string) {
	rw.Error(http.StatusBadRequest, "BAD_REQUEST", message)
}

// NotFound writes a not found error (404)
func (rw *ResponseWriter) NotFound(message string) {
	rw.Error(http.StatusNotFound, "NOT_FOUND", message)
}

// Conflict writes a conflict error (409)
func (rw *ResponseWriter) Conflict(message string) {
	rw.Error(http.StatusConflict, "CONFLICT", message)
}

// RequestTooLarge writes a payload too large error (413)
func (rw *ResponseWriter) RequestTooLarge(message string) {
	rw.Error(http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", message)
}

// BadGateway writes a recognition failure (502)
func (rw *ResponseWriter) BadGateway(message string) {
	rw.Error(http.StatusBadGateway, "RECOGNITION_FAILED", message)
}

// InternalServerError writes an internal server error (500)
func (rw *ResponseWriter) InternalServerError(message string) {
	rw.Error(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message)
}

// PNG writes raw image bytes.
func (rw *ResponseWriter) PNG(data []byte) {
	rw.w.Header().Set("Content-Type", "image/png")
	rw.w.WriteHeader(http.StatusOK)
	rw.w.Write(data)
}

// RawJSON writes an unwrapped JSON body.
func (rw *ResponseWriter) RawJSON(statusCode int, data interface{}) {
	rw.writeJSON(statusCode, data)
}

// writeJSON encodes before writing the header so an unencodable value
// becomes a 500 rather than a truncated body.
func (rw *ResponseWriter) writeJSON(statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		buf.Reset()
		statusCode = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(APIResponse{
			Success: false,
			Error: &APIError{
				Code:    "INTERNAL_SERVER_ERROR",
				Message: "encode response: " + err.Error(),
			},
			Timestamp: time.Now(),
			RequestID: rw.requestID,
		})
	}
	rw.w.Header().Set("Content-Type", "application/json")
	rw.w.WriteHeader(statusCode)
	rw.w.Write(buf.Bytes())
}
