package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"launcher-proxy/internal/compression"
	"launcher-proxy/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg       *config.Config
	version   Version
	whitelist *compression.Whitelist
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version, whitelist *compression.Whitelist) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v, whitelist: whitelist}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type statusResponse struct {
	Status      string   `json:"status"`
	Version     string   `json:"version"`
	UpstreamURL string   `json:"upstream_url"`
	ServerID    string   `json:"server_id"`
	MimeTypes   []string `json:"mime_types"`
}

// Status returns proxy status information.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:      "ok",
		Version:     string(h.version),
		UpstreamURL: h.cfg.Upstream.BaseURL,
		ServerID:    h.cfg.Proxy.ServerID,
		MimeTypes:   h.whitelist.Types(),
	})
}
