package metrics

import (
	"testing"
)

func TestNew_GathersMetrics(t *testing.T) {
	m := New()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	// Should include at least Go runtime and process collectors.
	if len(families) == 0 {
		t.Fatal("expected non-empty metric families from Gather()")
	}

	// Verify our custom metrics exist by incrementing one and gathering again.
	m.RequestsTotal.WithLabelValues("GET", "200", "/Engine.svc").Inc()

	families, err = m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "launcher_proxy_http_requests_total" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected launcher_proxy_http_requests_total in gathered metrics")
	}
}

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"GET", "GET"},
		{"POST", "POST"},
		{"PUT", "PUT"},
		{"DELETE", "DELETE"},
		{"PATCH", "PATCH"},
		{"HEAD", "HEAD"},
		{"OPTIONS", "OPTIONS"},
		{"FOOBAR", "other"},
		{"get", "other"},
		{"X-CUSTOM", "other"},
		{"", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got := NormalizeMethod(tt.method)
			if got != tt.want {
				t.Errorf("NormalizeMethod(%q) = %q, want %q", tt.method, got, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/Engine.svc/User/GetPermanentSession", "/Engine.svc"},
		{"/Engine.svc", "/Engine.svc"},
		{"/Engine.svc?x=1", "/Engine.svc"},
		{"/healthz", "/healthz"},
		{"/proxy/status", "/proxy/status"},
		{"/proxy/audit", "/proxy/audit"},
		{"/metrics", "/metrics"},
		{"/unknown", "other"},
		{"/", "other"},
		{"/Engine.svcx/foo", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := NormalizePath(tt.path)
			if got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestNew_CompressionCollectors(t *testing.T) {
	m := New()

	m.CompressionVerdicts.WithLabelValues("accepted").Inc()
	m.CompressionVerdicts.WithLabelValues("already_compressed").Add(2)
	m.PipelineFaults.Inc()

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}

	got := make(map[string]float64)
	for _, f := range families {
		switch f.GetName() {
		case "launcher_proxy_compression_verdicts_total":
			for _, metric := range f.GetMetric() {
				for _, lp := range metric.GetLabel() {
					if lp.GetName() == "verdict" {
						got[lp.GetValue()] = metric.GetCounter().GetValue()
					}
				}
			}
		case "launcher_proxy_pipeline_faults_total":
			got["faults"] = f.GetMetric()[0].GetCounter().GetValue()
		}
	}

	if got["accepted"] != 1 {
		t.Errorf("accepted = %v, want 1", got["accepted"])
	}
	if got["already_compressed"] != 2 {
		t.Errorf("already_compressed = %v, want 2", got["already_compressed"])
	}
	if got["faults"] != 1 {
		t.Errorf("faults = %v, want 1", got["faults"])
	}
}

func TestNormalizeEncoding(t *testing.T) {
	tests := []struct {
		enc  string
		want string
	}{
		{"", "identity"},
		{"identity", "identity"},
		{"gzip", "gzip"},
		{" GZIP ", "gzip"},
		{"deflate", "deflate"},
		{"br", "br"},
		{"x-custom", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.enc, func(t *testing.T) {
			if got := NormalizeEncoding(tt.enc); got != tt.want {
				t.Errorf("NormalizeEncoding(%q) = %q, want %q", tt.enc, got, tt.want)
			}
		})
	}
}
