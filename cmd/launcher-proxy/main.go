package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"launcher-proxy/internal/audit"
	"launcher-proxy/internal/client"
	"launcher-proxy/internal/compression"
	"launcher-proxy/internal/config"
	"launcher-proxy/internal/handler"
	"launcher-proxy/internal/metrics"
	"launcher-proxy/internal/middleware"
	"launcher-proxy/internal/service"
)

// Set by goreleaser ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("launcher-proxy"),
		kong.Description("Compressing local proxy between the game launcher and a game server."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
			newLogger,
			metrics.New,
			newAudit,
			newWhitelist,
			newCompressor,
			newInterceptor,
			newEcho,
			client.NewUpstreamClient,
			service.NewProxyService,
			handler.NewProxyHandler,
			handler.NewHealthHandler,
			handler.NewAuditHandler,
		),
		fx.Invoke(handler.RegisterRoutes, warnConfigPermissions, startServer),
	).Run()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

// newAudit builds the in-memory ring served on /proxy/audit and, when a path
// is configured, an append-only file sink next to it.
func newAudit(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*audit.Ring, audit.Logger, error) {
	ring := audit.NewRing(cfg.Audit.RingSize)
	if cfg.Audit.Path == "" {
		return ring, ring, nil
	}

	file, err := audit.OpenFileLog(cfg.Audit.Path, logger)
	if err != nil {
		return nil, nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return file.Close()
		},
	})
	logger.Info("audit log enabled", "path", cfg.Audit.Path)

	return ring, audit.Multi{ring, file}, nil
}

func newWhitelist(cfg *config.Config) *compression.Whitelist {
	return compression.NewWhitelist(cfg.Compression.MimeTypes)
}

func newCompressor(cfg *config.Config, logger *slog.Logger) (*compression.Compressor, error) {
	return compression.NewCompressor(cfg.Compression.GzipLevel, cfg.Compression.DeflateLevel, logger)
}

func newInterceptor(
	cfg *config.Config,
	whitelist *compression.Whitelist,
	compressor *compression.Compressor,
	auditLog audit.Logger,
	logger *slog.Logger,
	m *metrics.Metrics,
) *middleware.Interceptor {
	gate := compression.NewGate(whitelist, logger)
	return middleware.NewInterceptor(gate, compressor, auditLog, cfg.Proxy.ServerID, logger, m)
}

func newEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Inbound timeouts to mitigate slow-client attacks.
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = 0
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))
	e.Use(middleware.SecurityHeaders())

	if cfg.Metrics.Enabled {
		e.Use(middleware.MetricsMiddleware(m))
		logger.Info("metrics enabled", "path", cfg.Metrics.Path)
	}

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimiter(cfg.Server.RateLimit.RequestsPerSecond))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server",
				"addr", addr,
				"upstream", cfg.Upstream.BaseURL,
				"server_id", cfg.Proxy.ServerID,
			)
			go func() {
				if err := e.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
