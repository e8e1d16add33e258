// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"net/http"

	"github.com/apex/log"
	"github.com/labstack/echo/v4"

	"github.com/staranto/recipectl/internal/apperr"
	"github.com/staranto/recipectl/internal/images"
	"github.com/staranto/recipectl/internal/recipes"
)

// RecipeSource supplies the recipe list.
type RecipeSource interface {
	Fetch(ctx context.Context) (recipes.Collection, error)
}

// Handler holds the HTTP handlers
type Handler struct {
	images  *images.Manager
	recipes RecipeSource
}

// NewHandler creates a new handler.
func NewHandler(manager *images.Manager, recipes RecipeSource) *Handler {
	return &Handler{
		images:  manager,
		recipes: recipes,
	}
}

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Kind        string `json:"kind"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
	Action      string `json:"action,omitempty"`
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetImage handles GET /images?url=
func (h *Handler) GetImage(c echo.Context) error {
	u := c.QueryParam("url")
	if u == "" {
		return badRequest(c, "missing url parameter")
	}

	img, err := h.images.Get(c.Request().Context(), u)
	if err != nil {
		return handleError(c, err)
	}

	cache := "MISS"
	if img.Hit {
		cache = "HIT"
	}
	c.Response().Header().Set("X-Cache", cache)
	return c.Blob(http.StatusOK, http.DetectContentType(img.Data), img.Data)
}

// HeadImage handles HEAD /images?url=. It never fetches.
func (h *Handler) HeadImage(c echo.Context) error {
	u := c.QueryParam("url")
	if u == "" {
		return c.NoContent(http.StatusBadRequest)
	}
	if h.images.IsCached(u) {
		return c.NoContent(http.StatusOK)
	}
	return c.NoContent(http.StatusNotFound)
}

// ClearCache handles DELETE /cache. The clear runs in the background.
func (h *Handler) ClearCache(c echo.Context) error {
	h.images.ClearCache()
	return c.JSON(http.StatusAccepted, map[string]string{"status": "clearing"})
}

// CacheStats handles GET /cache/stats
func (h *Handler) CacheStats(c echo.Context) error {
	stats, err := h.images.Cache().Stats()
	if err != nil {
		log.WithError(err).Warn("failed to read cache stats")
		return c.JSON(http.StatusInternalServerError, ErrorBody{
			Kind:    "cache_error",
			Message: err.Error(),
		})
	}
	return c.JSON(http.StatusOK, stats)
}

// Recipes handles GET /recipes?q=
func (h *Handler) Recipes(c echo.Context) error {
	if h.recipes == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorBody{
			Kind:    "unavailable",
			Message: "recipe source not configured",
		})
	}

	all, err := h.recipes.Fetch(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(http.StatusOK, recipes.Search(all, c.QueryParam("q")))
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorBody{Kind: "bad_request", Message: msg})
}

// StatusFor maps an error kind to the HTTP status returned for it.
func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindNetworkUnavailable, apperr.KindServerError:
		return http.StatusBadGateway
	case apperr.KindInvalidData, apperr.KindNoData, apperr.KindMalformedData:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleError converts classified errors to HTTP responses.
func handleError(c echo.Context, err error) error {
	ae := apperr.FromTransport(err)
	log.WithError(err).WithField("kind", ae.Kind).Debug("request failed")

	return c.JSON(StatusFor(ae.Kind), ErrorBody{
		Kind:        ae.Kind.String(),
		Message:     ae.UserMessage(),
		Recoverable: ae.Recoverable(),
		Action:      ae.RecoveryAction(),
	})
}
