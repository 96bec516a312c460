package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"launcher-proxy/internal/audit"
	"launcher-proxy/internal/compression"
	"launcher-proxy/internal/metrics"
	"launcher-proxy/internal/model"
)

// Gate decides whether an exchange may be compressed.
type Gate interface {
	Evaluate(ex *model.Exchange) (compression.Verdict, error)
}

// Compressor rewrites an accepted exchange in place.
type Compressor interface {
	Compress(ex *model.Exchange) error
}

// Outcome is the final response produced for an exchange.
type Outcome struct {
	Status int
	Header http.Header
	Body   []byte
	// Fault is set when Outcome is the fallback error response.
	Fault error
}

// Interceptor runs the compression pipeline for one exchange and converts
// any fault inside it into a 400 plain-text response.
//
// The fallback body is the raw fault message. That is acceptable for a local
// launcher proxy but leaks internals if the proxy is ever exposed publicly.
type Interceptor struct {
	gate       Gate
	compressor Compressor
	audit      audit.Logger
	serverID   string
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewInterceptor creates an Interceptor. The metrics parameter is optional.
func NewInterceptor(gate Gate, compressor Compressor, auditLog audit.Logger, serverID string, logger *slog.Logger, m *metrics.Metrics) *Interceptor {
	return &Interceptor{
		gate:       gate,
		compressor: compressor,
		audit:      auditLog,
		serverID:   serverID,
		logger:     logger.With("component", "proxy_interceptor"),
		metrics:    m,
	}
}

// Process evaluates the gate, compresses accepted exchanges and materializes
// the body to deliver. Errors and panics anywhere in that path yield the
// fallback outcome, which is never passed back through the gate.
func (i *Interceptor) Process(ex *model.Exchange) (out *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = i.fail(ex, panicError(r), "stack", string(debug.Stack()))
		}
	}()

	if err := i.compress(ex); err != nil {
		return i.fail(ex, err)
	}

	body, err := ex.Materialize()
	if err != nil {
		return i.fail(ex, fmt.Errorf("deliver response body: %w", err))
	}
	return &Outcome{Status: ex.Status, Header: ex.Header, Body: body}
}

func (i *Interceptor) compress(ex *model.Exchange) error {
	v, err := i.gate.Evaluate(ex)
	if err != nil {
		return err
	}
	if i.metrics != nil {
		i.metrics.CompressionVerdicts.WithLabelValues(v.Label()).Inc()
	}

	if !v.Accepted {
		i.reject(ex, v.Reason)
		return nil
	}
	return i.compressor.Compress(ex)
}

func (i *Interceptor) reject(ex *model.Exchange, reason compression.Reason) {
	i.logger.Debug("compression skipped",
		"reason", reason.String(),
		"path", ex.Path,
		"method", ex.Method,
	)
	i.audit.RecordEntry(i.serverID, audit.CategoryProxy, audit.EntryRejected, audit.Record{
		Message: reason.Message(),
		Path:    ex.Path,
		Method:  ex.Method,
	})
}

// fail builds the fallback outcome. attrs are appended to the error log line.
func (i *Interceptor) fail(ex *model.Exchange, err error, attrs ...any) *Outcome {
	msg := err.Error()
	i.logger.Error("proxy handler fault",
		append([]any{"err", msg, "path", ex.Path, "method", ex.Method}, attrs...)...,
	)
	i.audit.RecordEntry(i.serverID, audit.CategoryProxy, audit.EntryError, audit.Record{
		Message: msg,
		Path:    ex.Path,
		Method:  ex.Method,
	})
	if i.metrics != nil {
		i.metrics.PipelineFaults.Inc()
	}

	h := make(http.Header)
	h.Set("Content-Type", "text/plain; charset=UTF-8")
	return &Outcome{
		Status: http.StatusBadRequest,
		Header: h,
		Body:   []byte(msg),
		Fault:  err,
	}
}

// panicError converts a recovered value into an error.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	if s, ok := r.(string); ok {
		return errors.New(s)
	}
	return fmt.Errorf("%v", r)
}
