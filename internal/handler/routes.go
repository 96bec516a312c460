package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"launcher-proxy/internal/config"
	"launcher-proxy/internal/metrics"
	"launcher-proxy/internal/middleware"
)

// RegisterRoutes wires all route handlers onto the Echo instance. Every path
// not claimed by the proxy's own endpoints is forwarded to the game server,
// and only those forwarded responses pass through the compression pipeline.
func RegisterRoutes(
	e *echo.Echo,
	cfg *config.Config,
	m *metrics.Metrics,
	interceptor *middleware.Interceptor,
	proxy *ProxyHandler,
	health *HealthHandler,
	auditLog *AuditHandler,
) {
	e.GET("/healthz", health.Healthz)
	e.GET("/proxy/status", health.Status)
	e.GET("/proxy/audit", auditLog.List)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	e.Any("/*", proxy.Handle, middleware.Compression(interceptor))
}
