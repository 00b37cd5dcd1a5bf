package handlers

import (
	"time"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeRefreshFailed    = "REFRESH_FAILED"
	CodeCancelled        = "REQUEST_CANCELLED"
	CodeInternal         = "INTERNAL_ERROR"
)
