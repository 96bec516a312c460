package model

import (
	"bytes"
	"io"
	"net/http"
	"strings"
)

// BodyProducer writes a complete response body to w.
//
// A producer may be invoked more than once for the same exchange (length
// measurement and delivery), so every invocation must write the same bytes.
type BodyProducer func(w io.Writer) error

// BytesProducer returns a BodyProducer that writes b on every invocation.
func BytesProducer(b []byte) BodyProducer {
	return func(w io.Writer) error {
		_, err := w.Write(b)
		return err
	}
}

// Exchange is one request/response pair flowing through the compression
// pipeline. It is owned by a single request and never shared.
type Exchange struct {
	Path           string
	Method         string
	AcceptEncoding []string

	Status int
	Header http.Header
	Body   BodyProducer
}

// NewExchange builds an Exchange for req with an empty response.
func NewExchange(req *http.Request) *Exchange {
	return &Exchange{
		Path:           req.URL.Path,
		Method:         req.Method,
		AcceptEncoding: ParseAcceptEncoding(req.Header.Values("Accept-Encoding")),
		Status:         http.StatusOK,
		Header:         make(http.Header),
		Body:           BytesProducer(nil),
	}
}

// ContentType returns the response Content-Type, or "" when absent.
func (e *Exchange) ContentType() string {
	return e.Header.Get("Content-Type")
}

// Materialize invokes the body producer once into memory.
func (e *Exchange) Materialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Body(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ParseAcceptEncoding splits Accept-Encoding header values into trimmed
// tokens, keeping their order. Parameters such as q-values stay attached to
// their token; matching against them is substring based.
func ParseAcceptEncoding(values []string) []string {
	var tokens []string
	for _, v := range values {
		for _, tok := range strings.Split(v, ",") {
			if tok = strings.TrimSpace(tok); tok != "" {
				tokens = append(tokens, tok)
			}
		}
	}
	return tokens
}
