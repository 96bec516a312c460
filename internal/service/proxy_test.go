package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"launcher-proxy/internal/client"
	"launcher-proxy/internal/config"
	"launcher-proxy/internal/model"
)

func newTestService(t *testing.T, baseURL string) *ProxyService {
	t.Helper()
	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			BaseURL:         baseURL,
			TimeoutSeconds:  10,
			IdleConnections: 10,
		},
		Launcher: config.LauncherConfig{UserAgent: "GameLauncherReborn test", HWID: "hwid"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	uc := client.NewUpstreamClient(cfg, logger, nil)
	svc, err := NewProxyService(uc, cfg, logger)
	if err != nil {
		t.Fatalf("NewProxyService: %v", err)
	}
	return svc
}

func TestFilterRequestHeaders(t *testing.T) {
	s := &ProxyService{}
	src := http.Header{
		"Accept":          {"application/xml"},
		"Accept-Encoding": {"gzip, deflate"},
		"Content-Type":    {"application/xml"},
		"Securitytoken":   {"token-abc"},
		"Userid":          {"100"},
		"Authorization":   {"Bearer secret"},
		"Connection":      {"keep-alive"},
		"X-Hwid":          {"launcher-supplied"},
		"X-Custom-Header": {"should-be-dropped"},
		"X-Forwarded-For": {"1.2.3.4, 5.6.7.8"},
	}

	dst := s.filterRequestHeaders(src)

	tests := []struct {
		name    string
		key     string
		wantLen int
	}{
		{"Accept forwarded", "Accept", 1},
		{"Accept-Encoding forwarded", "Accept-Encoding", 1},
		{"Content-Type forwarded", "Content-Type", 1},
		{"securityToken forwarded", "securityToken", 1},
		{"userId forwarded", "userId", 1},
		{"Authorization stripped", "Authorization", 0},
		{"Connection stripped", "Connection", 0},
		{"X-HWID stripped (client sets identity)", "X-HWID", 0},
		{"X-Custom-Header stripped", "X-Custom-Header", 0},
		{"X-Forwarded-For stripped", "X-Forwarded-For", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := len(dst.Values(tt.key))
			if got != tt.wantLen {
				t.Errorf("header %q: got %d values, want %d", tt.key, got, tt.wantLen)
			}
		})
	}
}

func TestFilterResponseHeaders(t *testing.T) {
	s := &ProxyService{}
	src := http.Header{
		"Content-Type":           {"application/xml"},
		"Content-Length":         {"42"},
		"Content-Encoding":       {"gzip"},
		"Transfer-Encoding":      {"chunked"},
		"Set-Cookie":             {"session=abc"},
		"X-Content-Type-Options": {"nosniff"},
		"Date":                   {"Mon, 01 Jan 2025 00:00:00 GMT"},
	}

	dst := s.filterResponseHeaders(src)

	tests := []struct {
		name    string
		key     string
		wantLen int
	}{
		{"Content-Type forwarded", "Content-Type", 1},
		{"Content-Length forwarded", "Content-Length", 1},
		{"Content-Encoding forwarded", "Content-Encoding", 1},
		{"Date forwarded", "Date", 1},
		{"Set-Cookie stripped", "Set-Cookie", 0},
		{"X-Content-Type-Options stripped", "X-Content-Type-Options", 0},
		{"Transfer-Encoding stripped (hop-by-hop)", "Transfer-Encoding", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := len(dst.Values(tt.key))
			if got != tt.wantLen {
				t.Errorf("header %q: got %d values, want %d", tt.key, got, tt.wantLen)
			}
		})
	}
}

func TestBuildUpstreamURL(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		path      string
		query     url.Values
		wantPath  string
		wantQuery string
	}{
		{
			name:      "root base",
			base:      "http://game.example.net",
			path:      "/Engine.svc/User/GetPermanentSession",
			query:     url.Values{},
			wantPath:  "/Engine.svc/User/GetPermanentSession",
			wantQuery: "",
		},
		{
			name:      "base with path prefix",
			base:      "http://game.example.net/soapbox-race-core/",
			path:      "/Engine.svc/systeminfo",
			query:     url.Values{},
			wantPath:  "/soapbox-race-core/Engine.svc/systeminfo",
			wantQuery: "",
		},
		{
			name:      "query preserved",
			base:      "https://game.example.net",
			path:      "/Engine.svc/catalog/productsInCategory",
			query:     url.Values{"categoryName": {"NFSW_NA_EP_PRESET_RIDES_ALL_Category"}, "clientProductType": {"PresetCar"}},
			wantPath:  "/Engine.svc/catalog/productsInCategory",
			wantQuery: "categoryName=NFSW_NA_EP_PRESET_RIDES_ALL_Category&clientProductType=PresetCar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseURL, err := url.Parse(tt.base)
			if err != nil {
				t.Fatal(err)
			}
			s := &ProxyService{baseURL: baseURL}

			u, err := url.Parse(s.buildUpstreamURL(tt.path, tt.query))
			if err != nil {
				t.Fatalf("parse URL: %v", err)
			}
			if u.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", u.Path, tt.wantPath)
			}
			if u.RawQuery != tt.wantQuery {
				t.Errorf("query = %q, want %q", u.RawQuery, tt.wantQuery)
			}
			if u.Host != baseURL.Host {
				t.Errorf("host = %q, want %q", u.Host, baseURL.Host)
			}
		})
	}
}

func TestForward_HappyPath(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-HWID") != "hwid" {
			t.Errorf("X-HWID = %q, want %q", r.Header.Get("X-HWID"), "hwid")
		}
		if r.Header.Get("securityToken") != "token-abc" {
			t.Errorf("securityToken = %q, want %q", r.Header.Get("securityToken"), "token-abc")
		}
		if r.URL.Query().Get("userId") != "100" {
			t.Errorf("query userId = %q, want %q", r.URL.Query().Get("userId"), "100")
		}
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<echo>" + string(body) + "</echo>"))
	}))
	defer upstream.Close()

	svc := newTestService(t, upstream.URL)

	header := http.Header{}
	header.Set("securityToken", "token-abc")
	pr := &model.ProxyRequest{
		Ctx:    context.Background(),
		Method: http.MethodPost,
		Path:   "/Engine.svc/User/SecureLoginPersona",
		Query:  url.Values{"userId": {"100"}},
		Header: header,
		Body:   io.NopCloser(strings.NewReader("persona")),
	}

	resp, err := svc.Forward(pr)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != "<echo>persona</echo>" {
		t.Errorf("body = %q, want %q", string(body), "<echo>persona</echo>")
	}
}

func TestForward_FiltersResponseHeaders(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Set-Cookie", "session=abc")
		w.Header().Set("X-Internal-Debug", "secret")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer upstream.Close()

	svc := newTestService(t, upstream.URL)

	pr := &model.ProxyRequest{
		Ctx:    context.Background(),
		Method: http.MethodGet,
		Path:   "/Engine.svc/test",
		Query:  url.Values{},
		Header: http.Header{},
		Body:   http.NoBody,
	}

	resp, err := svc.Forward(pr)
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want %q", resp.Header.Get("Content-Type"), "application/json")
	}
	if resp.Header.Get("Set-Cookie") != "" {
		t.Errorf("Set-Cookie should be stripped, got %q", resp.Header.Get("Set-Cookie"))
	}
	if resp.Header.Get("X-Internal-Debug") != "" {
		t.Errorf("X-Internal-Debug should be stripped, got %q", resp.Header.Get("X-Internal-Debug"))
	}
}

func TestForward_UpstreamUnreachable(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1")

	pr := &model.ProxyRequest{
		Ctx:    context.Background(),
		Method: http.MethodGet,
		Path:   "/Engine.svc/systeminfo",
		Query:  url.Values{},
		Header: http.Header{},
		Body:   http.NoBody,
	}

	_, err := svc.Forward(pr)
	if err == nil {
		t.Fatal("Forward() expected error for unreachable upstream, got nil")
	}
	if !strings.Contains(err.Error(), "forward to upstream") {
		t.Errorf("error = %q, want forward context", err)
	}
}
