// Package server provides the HTTP server for the video join API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// ResultResponse wraps every successful API payload.
type ResultResponse[T any] struct {
	// Result is the media service's description of the outcome.
	Result T `json:"result"`
}

// DeleteVideosRequest is the HTTP request body for deleting videos.
type DeleteVideosRequest struct {
	// IDs are the public IDs to delete.
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
