package server

import "market-qa/internal/models"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse reports service status and whether the LLM is configured
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	LLMEnabled bool   `json:"llm_enabled"`
	Model      string `json:"model,omitempty"`
}

// QueryRequest is a natural language question about the market data
type QueryRequest struct {
	Query string `json:"query"`
}

// AssetsResponse lists the asset catalog with type names
type AssetsResponse struct {
	Success bool                   `json:"success"`
	Data    []models.AssetWithType `json:"data"`
}
