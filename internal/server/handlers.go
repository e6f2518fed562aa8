package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"market-qa/internal/query"
	"market-qa/internal/store"
)

const appVersion = "1.0.0"

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Service    *query.Service // Orchestrates both resolution pipelines
	Store      *store.Store   // MySQL store, used directly for the catalog endpoint
	LLMEnabled bool           // Whether the SQL generator is configured
	Model      string         // Configured LLM model name, for the health probe
	LLMTimeout time.Duration  // Budget for one LLM round trip plus execution
	DevMode    bool           // Enable detailed error responses in development
	Logger     *logrus.Logger // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health reports service status and whether the LLM pipeline is available
func (h *Handlers) Health(c echo.Context) error {
	resp := HealthResponse{
		Status:     "ok",
		Version:    appVersion,
		LLMEnabled: h.LLMEnabled,
	}
	if h.LLMEnabled {
		resp.Model = h.Model
	}
	return c.JSON(http.StatusOK, resp)
}

// Assets returns the full asset catalog joined with type names
func (h *Handlers) Assets(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	assets, err := h.Store.ListAssetsWithTypes(ctx)
	if err != nil {
		if errors.Is(err, store.ErrConnectionFailed) {
			return h.err(c, http.StatusInternalServerError, "database connection failed", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to list assets", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, AssetsResponse{Success: true, Data: assets})
}

// Query answers a natural language question via the LLM pipeline.
// The generated SQL must clear the safety gate before execution; rejected
// SQL is returned in the body so the caller can see what was refused.
func (h *Handlers) Query(c echo.Context) error {
	if !h.LLMEnabled {
		return h.err(c, http.StatusBadRequest, "llm is not configured", nil)
	}

	req, ok := h.bindQuery(c)
	if !ok {
		return nil
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.LLMTimeout)
	defer cancel()

	res, err := h.Service.AskLLM(ctx, req.Query)
	switch {
	case errors.Is(err, query.ErrUnsafeSQL):
		return c.JSON(http.StatusBadRequest, res)
	case err != nil && res != nil:
		// Store-level failure; the result carries the vetted SQL and the
		// store's message.
		return c.JSON(http.StatusInternalServerError, res)
	case err != nil:
		h.Logger.WithError(err).Error("llm query failed")
		return h.err(c, http.StatusInternalServerError, "llm error", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, res)
}

// QueryBasic answers a natural language question via the rule-based
// resolver and fixed query templates. Resolver misses (no asset named,
// unrecognized phrasing) are conversational outcomes, not HTTP errors.
func (h *Handlers) QueryBasic(c echo.Context) error {
	req, ok := h.bindQuery(c)
	if !ok {
		return nil
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	res, err := h.Service.AskRules(ctx, req.Query)
	switch {
	case errors.Is(err, query.ErrMissingAsset), errors.Is(err, query.ErrUnrecognized):
		return c.JSON(http.StatusOK, res)
	case err != nil:
		h.Logger.WithError(err).Error("rule-based query failed")
		return h.err(c, http.StatusInternalServerError, "query failed", map[string]any{"err": err.Error()})
	}
	return c.JSON(http.StatusOK, res)
}

// bindQuery decodes and validates the shared request body. On failure it
// writes the error response itself and returns ok=false.
func (h *Handlers) bindQuery(c echo.Context) (QueryRequest, bool) {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		_ = h.err(c, http.StatusBadRequest, "invalid json", nil)
		return req, false
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		_ = h.err(c, http.StatusBadRequest, "query is required", map[string]any{"query": "required"})
		return req, false
	}
	return req, true
}
