// Package client provides the upstream HTTP client for the game server.
package client

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"launcher-proxy/internal/config"
	"launcher-proxy/internal/metrics"
	"launcher-proxy/internal/model"
)

// Launcher identity headers sent with every upstream request.
const (
	HeaderHWID        = "X-HWID"
	HeaderHiddenHWID  = "X-HiddenHWID"
	HeaderUserAgent   = "X-UserAgent"
	HeaderHash        = "X-GameLauncherHash"
	HeaderCertificate = "X-GameLauncherCertificate"
	HeaderDiscordID   = "X-DiscordID"
)

// UpstreamClient sends requests to the game server on behalf of the launcher.
type UpstreamClient struct {
	httpClient *http.Client
	identity   http.Header
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewUpstreamClient creates an UpstreamClient with a bounded timeout and
// keep-alive disabled, matching how the launcher talks to game servers.
// The metrics parameter is optional; pass nil to disable upstream metrics recording.
func NewUpstreamClient(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *UpstreamClient {
	transport := &http.Transport{
		MaxIdleConns:        cfg.Upstream.IdleConnections,
		MaxIdleConnsPerHost: cfg.Upstream.IdleConnections,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   true,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &UpstreamClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
		},
		identity: identityHeaders(&cfg.Launcher),
		logger:   logger.With("component", "upstream_client"),
		metrics:  m,
	}
}

// identityHeaders builds the launcher identity header set, skipping empty values.
func identityHeaders(l *config.LauncherConfig) http.Header {
	h := make(http.Header)
	set := func(key, val string) {
		if val != "" {
			h.Set(key, val)
		}
	}
	set("User-Agent", l.UserAgent)
	set(HeaderHWID, l.HWID)
	set(HeaderHiddenHWID, l.HiddenHWID)
	set(HeaderUserAgent, l.UserAgent)
	set(HeaderHash, l.Hash)
	set(HeaderCertificate, l.Certificate)
	set(HeaderDiscordID, l.DiscordID)
	return h
}

// Do executes an HTTP request against the upstream and returns the raw response.
// Identity headers replace any same-named headers on req.
// The caller is responsible for closing the response body.
func (c *UpstreamClient) Do(req *http.Request) (*model.ProxyResponse, error) {
	for key, vals := range c.identity {
		req.Header[key] = vals
	}
	req.Close = true

	c.logger.Debug("upstream request",
		"method", req.Method,
		"path", req.URL.Path,
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:bodyclose // body ownership transfers to caller via ProxyResponse
	duration := time.Since(start).Seconds()

	method := metrics.NormalizeMethod(req.Method)

	if err != nil {
		if c.metrics != nil {
			c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		}
		return nil, fmt.Errorf("upstream request: %w", err)
	}

	if c.metrics != nil {
		status := strconv.Itoa(resp.StatusCode)
		c.metrics.UpstreamDuration.WithLabelValues(method).Observe(duration)
		c.metrics.UpstreamResponses.WithLabelValues(method, status).Inc()
	}

	return &model.ProxyResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       resp.Body,
	}, nil
}

// DoStream executes a request and returns the response body as a stream.
// The caller is responsible for closing the returned ReadCloser.
// The provided context controls the lifetime of the upstream request:
// when the context is canceled (e.g. the launcher disconnects), the upstream
// request is also canceled.
func (c *UpstreamClient) DoStream(ctx context.Context, method, url string, header http.Header, body io.Reader) (*model.ProxyResponse, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header = header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}

	return c.Do(req)
}
