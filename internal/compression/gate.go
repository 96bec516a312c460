package compression

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"launcher-proxy/internal/model"
)

// ErrInvalidContentLength is returned when a response carries a Content-Length
// header that is not an integer.
var ErrInvalidContentLength = errors.New("invalid Content-Length header")

// Gate decides whether an exchange is eligible for compression.
type Gate struct {
	whitelist *Whitelist
	logger    *slog.Logger
}

// NewGate creates a Gate. A nil whitelist selects the default one.
func NewGate(whitelist *Whitelist, logger *slog.Logger) *Gate {
	if whitelist == nil {
		whitelist = DefaultWhitelist()
	}
	return &Gate{
		whitelist: whitelist,
		logger:    logger.With("component", "compression_gate"),
	}
}

// Evaluate runs the eligibility checks in order and stops at the first one
// that fails. The response is never modified, except that a body without a
// Content-Length header is buffered once to measure it.
func (g *Gate) Evaluate(ex *model.Exchange) (Verdict, error) {
	if !g.requestIsCompressionCompatible(ex) {
		return Reject(RequestNotCompatible), nil
	}
	if !g.responseIsCompatibleMimeType(ex) {
		return Reject(IncompatibleMimeType), nil
	}
	if g.responseIsAlreadyCompressed(ex) {
		return Reject(AlreadyCompressed), nil
	}
	small, err := g.contentLengthIsTooSmall(ex)
	if err != nil {
		return Verdict{}, err
	}
	if small {
		return Reject(ContentLengthTooSmall), nil
	}
	return Accept(), nil
}

func (g *Gate) requestIsCompressionCompatible(ex *model.Exchange) bool {
	ok := acceptsEncoding(ex.AcceptEncoding, "gzip") || acceptsEncoding(ex.AcceptEncoding, "deflate")
	if !ok {
		g.logger.Debug("request does not accept gzip or deflate", "path", ex.Path)
	}
	return ok
}

func (g *Gate) responseIsCompatibleMimeType(ex *model.Exchange) bool {
	ok := g.whitelist.Allows(ex.ContentType())
	if !ok {
		g.logger.Debug("response content type not compressible",
			"path", ex.Path,
			"content_type", ex.ContentType(),
		)
	}
	return ok
}

// responseIsAlreadyCompressed matches header names by substring so that
// non-canonical variants of Content-Encoding are caught too.
func (g *Gate) responseIsAlreadyCompressed(ex *model.Exchange) bool {
	for key := range ex.Header {
		if strings.Contains(key, "Content-Encoding") {
			g.logger.Debug("response already compressed", "path", ex.Path, "header", key)
			return true
		}
	}
	return false
}

func (g *Gate) contentLengthIsTooSmall(ex *model.Exchange) (bool, error) {
	length, err := resolveContentLength(ex)
	if err != nil {
		return false, err
	}
	g.logger.Debug("resolved content length", "path", ex.Path, "content_length", length)
	if length <= 0 {
		g.logger.Debug("content length too small", "path", ex.Path)
		return true, nil
	}
	return false, nil
}

// resolveContentLength prefers the Content-Length header. Without one, the
// body is materialized once and the exchange keeps the buffered copy so the
// original producer is not run again.
func resolveContentLength(ex *model.Exchange) (int64, error) {
	if vals := ex.Header.Values("Content-Length"); len(vals) > 0 {
		n, err := strconv.ParseInt(strings.TrimSpace(vals[0]), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidContentLength, vals[0])
		}
		return n, nil
	}

	body, err := ex.Materialize()
	if err != nil {
		return 0, fmt.Errorf("measure response body: %w", err)
	}
	ex.Body = model.BytesProducer(body)
	return int64(len(body)), nil
}

// acceptsEncoding reports whether any token contains enc, ignoring case.
func acceptsEncoding(tokens []string, enc string) bool {
	for _, tok := range tokens {
		if strings.Contains(strings.ToLower(tok), enc) {
			return true
		}
	}
	return false
}
