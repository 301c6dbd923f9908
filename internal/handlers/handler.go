// Package handlers translates HTTP requests into document store operations.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskapi/internal/config"
	"taskapi/internal/output"
	"taskapi/internal/store"
)

// Handler serves the user and task routes of one API version.
// It holds no per-request state; all state lives in the store.
type Handler struct {
	store   store.Store
	env     output.Envelope
	logger  *zap.Logger
	version int
	timeout time.Duration
}

// NewHandler creates a Handler for cfg.APIVersion backed by s.
func NewHandler(cfg *config.Config, s store.Store, logger *zap.Logger) *Handler {
	return &Handler{
		store:   s,
		env:     output.ForVersion(cfg.APIVersion),
		logger:  logger,
		version: cfg.APIVersion,
		timeout: cfg.Store.Timeout,
	}
}

// storeContext derives the context for a store call from the request.
func (h *Handler) storeContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return store.WithTimeout(c.Request.Context(), h.timeout)
}

// bindJSON decodes the request body into v. An empty body decodes as
// the zero value of v.
func bindJSON(c *gin.Context, v any) error {
	raw, err := c.GetRawData()
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return fmt.Errorf("expected %s, got JSON %s", typeErr.Type, typeErr.Value)
		}
		return fmt.Errorf("malformed JSON: %w", err)
	}
	return nil
}

// bindObject decodes a JSON object body, writing a 400 on failure.
func (h *Handler) bindObject(c *gin.Context) (map[string]any, bool) {
	var body map[string]any
	if err := bindJSON(c, &body); err != nil {
		h.logger.Warn("Rejected request body",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		h.env.BadRequest(c, err.Error())
		return nil, false
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, true
}
